// Package tx defines the transaction contract used by domain services.
// The implementation lives in infrastructure/storage (postgres, memory).
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// The transaction travels in the returned context; repositories pick it up
// from there. Nested calls reuse the outer transaction, so a service method
// that opens a transaction can be called from another one.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
