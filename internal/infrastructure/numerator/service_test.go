package numerator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences keyed by (sequence_type, year).
type mockQuerier struct {
	mu   sync.Mutex
	seqs map[string]int64
	err  error
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.seqs == nil {
		m.seqs = map[string]int64{}
	}
	key := fmt.Sprintf("%v/%v", args[0], args[1])
	m.seqs[key]++
	return &mockRow{val: m.seqs[key]}
}

func (m *mockQuerier) source(context.Context) Querier { return m }

func TestGetNextNumber_DeliveryNotes(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q.source)
	ctx := context.Background()
	cfg := corenumerator.DeliveryNoteConfig()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	first, err := svc.GetNextNumber(ctx, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2026-001", first)

	second, err := svc.GetNextNumber(ctx, cfg, now)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2026-002", second)
}

func TestGetNextNumber_YearsAreIndependent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q.source)
	ctx := context.Background()
	cfg := corenumerator.DeliveryNoteConfig()

	y1 := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	y2 := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := svc.GetNextNumber(ctx, cfg, y1)
		require.NoError(t, err)
	}

	got, err := svc.GetNextNumber(ctx, cfg, y2)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2026-001", got)

	got, err = svc.GetNextNumber(ctx, cfg, y1)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2025-004", got)
}

func TestGetNextNumber_Errors(t *testing.T) {
	q := &mockQuerier{err: errors.New("connection reset")}
	svc := New(q.source)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DeliveryNoteConfig(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next OTP number")

	_, err = svc.GetNextNumber(context.Background(), corenumerator.Config{}, time.Now())
	require.Error(t, err)
}

func TestConfig_Format(t *testing.T) {
	period := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "OTP-2026-042", corenumerator.DeliveryNoteConfig().Format(period, 42))
	assert.Equal(t, "OTP-2026-1000", corenumerator.DeliveryNoteConfig().Format(period, 1000))

	plain := corenumerator.Config{Prefix: "X", ResetPeriod: corenumerator.ResetNever}
	assert.Equal(t, "X-00007", plain.Format(period, 7))
	assert.Equal(t, 0, plain.SequenceYear(period))
}
