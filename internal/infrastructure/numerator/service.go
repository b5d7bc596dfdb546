// Package numerator implements core/numerator.Generator on PostgreSQL.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierSource resolves the querier for ctx: the open transaction when
// there is one, the pool otherwise (see postgres.TxManager.GetQuerier).
type QuerierSource func(ctx context.Context) Querier

// Service hands out strictly sequential numbers from sys_sequences.
// The UPSERT takes a row lock on (sequence_type, year) that is held until
// the caller's transaction ends, so concurrent allocations serialize and a
// rollback returns the number.
type Service struct {
	source QuerierSource
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(source QuerierSource) *Service {
	return &Service{source: source}
}

// GetNextNumber allocates the next counter value for cfg and period and
// formats it, e.g. OTP-2026-007.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time) (string, error) {
	if s == nil || s.source == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if cfg.Prefix == "" {
		return "", fmt.Errorf("numerator prefix is required")
	}

	var num int64
	err := s.source(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, cfg.Prefix, cfg.SequenceYear(period)).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", cfg.Prefix, err)
	}

	return cfg.Format(period, num), nil
}
