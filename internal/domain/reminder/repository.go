package reminder

import (
	"context"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// Filter selects reminders. LineID wins over OrderID.
type Filter struct {
	OrderID *id.ID
	LineID  *id.ID
}

// LineInfo is the live state of an order line.
type LineInfo struct {
	OrderID  id.ID
	Name     string
	Quantity types.Quantity
	Unit     string
}

// Repository defines persistence for reminders.
type Repository interface {
	Create(ctx context.Context, r *Reminder) error
	GetByID(ctx context.Context, reminderID id.ID) (*Reminder, error)
	Update(ctx context.Context, r *Reminder) error
	Delete(ctx context.Context, reminderID id.ID) error
	// List returns rows ordered as Less orders them.
	List(ctx context.Context, filter Filter) ([]Row, error)

	// OrderExists returns NOT_FOUND for an unknown order.
	OrderExists(ctx context.Context, orderID id.ID) error
	// Line returns nil for an unknown line.
	Line(ctx context.Context, lineID id.ID) (*LineInfo, error)
}
