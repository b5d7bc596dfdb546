package workorder

import (
	"context"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
)

// Repository defines persistence for work orders, their lines and
// procedures. The booked flag is owned by the stock engine and is not
// written here.
type Repository interface {
	// LockNumbering serializes order number allocation until the
	// transaction ends.
	LockNumbering(ctx context.Context) error
	// MaxNumberSuffix returns the largest numeric suffix among numbers
	// starting with prefix, or 0.
	MaxNumberSuffix(ctx context.Context, prefix string) (int64, error)
	NumberExists(ctx context.Context, number string) (bool, error)

	Create(ctx context.Context, o *WorkOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*WorkOrder, error)
	// GetForUpdate reads an order with a row lock.
	GetForUpdate(ctx context.Context, orderID id.ID) (*WorkOrder, error)
	List(ctx context.Context, filter ListFilter) ([]WorkOrder, error)

	UpdateHeader(ctx context.Context, o *WorkOrder) error
	SetDeleted(ctx context.Context, orderID id.ID, deleted bool, by *string, at *time.Time) error
	SetDelivery(ctx context.Context, orderID id.ID, issued bool, number *string, by *string, at *time.Time) error
	SetInvoice(ctx context.Context, orderID id.ID, ref string, at time.Time) error

	GetLines(ctx context.Context, orderID id.ID) ([]Line, error)
	GetLinesByOrders(ctx context.Context, orderIDs []id.ID) (map[id.ID][]Line, error)
	InsertLines(ctx context.Context, lines []Line) error
	DeleteLines(ctx context.Context, orderID id.ID) error
	// RelinkLine re-points consumptions, ledger entries and reminders from
	// one line id to another.
	RelinkLine(ctx context.Context, fromLineID, toLineID id.ID) error

	GetProcedures(ctx context.Context, orderID id.ID) ([]Procedure, error)
	ReplaceProcedures(ctx context.Context, orderID id.ID, procs []Procedure) error
	GetProcedure(ctx context.Context, procedureID id.ID) (*Procedure, error)
	UpdateProcedure(ctx context.Context, p *Procedure) error
}
