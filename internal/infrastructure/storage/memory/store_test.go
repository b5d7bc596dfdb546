package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
)

func TestRunInTransaction_Rollback(t *testing.T) {
	s := New()
	m := &material.Material{ID: id.New(), Name: "Papir", Active: true}

	boom := errors.New("boom")
	err := s.TxManager().RunInTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Materials().Create(ctx, m))
		got, err := s.Materials().GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Papir", got.Name, "visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Materials().GetByID(context.Background(), m.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRunInTransaction_NestedJoins(t *testing.T) {
	s := New()
	txm := s.TxManager()
	m := &material.Material{ID: id.New(), Name: "Folija"}

	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return s.Materials().Create(ctx, m)
		})
	})
	require.NoError(t, err)

	_, err = s.Materials().GetByID(context.Background(), m.ID)
	assert.NoError(t, err)
}

func TestGetNextNumber_PerYear(t *testing.T) {
	s := New()
	ctx := context.Background()
	cfg := numerator.DeliveryNoteConfig()
	y24 := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	y25 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := s.GetNextNumber(ctx, cfg, y24)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2024-001", n)
	n, err = s.GetNextNumber(ctx, cfg, y25)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2025-001", n)
	n, err = s.GetNextNumber(ctx, cfg, y24)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2024-002", n)

	// A rolled back allocation is released.
	_ = s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.GetNextNumber(ctx, cfg, y25)
		require.NoError(t, err)
		return errors.New("abort")
	})
	n, err = s.GetNextNumber(ctx, cfg, y25)
	require.NoError(t, err)
	assert.Equal(t, "OTP-2025-002", n)
}
