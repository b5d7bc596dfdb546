package stock

import (
	"context"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
)

// Repository defines persistence for the ledger and consumptions.
// All mutating methods must run inside the caller's transaction.
type Repository interface {
	// LockMaterial reads a material and holds a row lock on it until the
	// transaction ends. Bookings against one material serialize on it.
	LockMaterial(ctx context.Context, materialID id.ID) (*material.Material, error)
	SetOnHand(ctx context.Context, materialID id.ID, onHand types.Quantity) error
	AppendEntry(ctx context.Context, entry *LedgerEntry) error

	CreateConsumption(ctx context.Context, c *Consumption) error
	// GetConsumptionForUpdate reads a consumption with a row lock.
	GetConsumptionForUpdate(ctx context.Context, consumptionID id.ID) (*Consumption, error)
	MarkReversed(ctx context.Context, consumptionID id.ID, by string, at time.Time, cause ReversalCause) error
	// ListActiveByOrder returns unreversed consumptions of an order.
	ListActiveByOrder(ctx context.Context, orderID id.ID) ([]Consumption, error)
	// ListRestorable returns consumptions reversed by order deletion that
	// no later consumption re-books.
	ListRestorable(ctx context.Context, orderID id.ID) ([]Consumption, error)
	HasActiveConsumptions(ctx context.Context, orderID id.ID) (bool, error)

	// LockOrder holds a row lock on the work order until the transaction
	// ends. It is taken before any material lock.
	LockOrder(ctx context.Context, orderID id.ID) error
	// ConsumptionOrderID returns the order a consumption belongs to,
	// without locking.
	ConsumptionOrderID(ctx context.Context, consumptionID id.ID) (id.ID, error)

	// OrderRef resolves the order and, when lineID is set, the line.
	// A missing line is not an error.
	OrderRef(ctx context.Context, orderID id.ID, lineID *id.ID) (*OrderRef, error)
	// SetOrderBooked updates the order's booked flag. The first-booked
	// timestamp is set on the first true and cleared on false.
	SetOrderBooked(ctx context.Context, orderID id.ID, booked bool, at time.Time) error

	ListEntries(ctx context.Context, materialID id.ID) ([]LedgerRow, error)
	ListConsumptionsByMaterial(ctx context.Context, materialID id.ID) ([]ConsumptionRow, error)
	ListConsumptionsByOrder(ctx context.Context, orderID id.ID) ([]ConsumptionRow, error)
}

// Observer is notified after each ledger append.
type Observer interface {
	EntryAppended(entry *LedgerEntry)
}
