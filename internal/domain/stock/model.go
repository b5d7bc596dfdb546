// Package stock provides the material ledger and booking engine.
//
// Every change to a material's on-hand quantity is an appended ledger entry
// written in the same transaction as the on-hand update, so on-hand always
// equals the sum of the signed quantities in the material's ledger.
package stock

import (
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// Kind is the type of a ledger entry.
type Kind string

const (
	// KindIn receives stock (positive quantity).
	KindIn Kind = "IN"
	// KindOut consumes stock for a work order (negative quantity).
	KindOut Kind = "OUT"
	// KindCorrection is a manual adjustment of either sign.
	KindCorrection Kind = "CORRECTION"
	// KindReversal returns a consumption to stock (positive quantity).
	KindReversal Kind = "REVERSAL"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindIn, KindOut, KindCorrection, KindReversal:
		return k, true
	}
	return "", false
}

// LedgerEntry is an immutable record of a stock change.
// BalanceAfter == BalanceBefore + Quantity.
type LedgerEntry struct {
	ID            id.ID          `db:"id" json:"id"`
	Seq           int64          `db:"seq" json:"-"`
	MaterialID    id.ID          `db:"material_id" json:"materialId"`
	Kind          Kind           `db:"kind" json:"kind"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice     types.Money    `db:"unit_price" json:"unitPrice"`
	BalanceBefore types.Quantity `db:"balance_before" json:"balanceBefore"`
	BalanceAfter  types.Quantity `db:"balance_after" json:"balanceAfter"`
	OrderID       *id.ID         `db:"order_id" json:"orderId,omitempty"`
	LineID        *id.ID         `db:"line_id" json:"lineId,omitempty"`
	ConsumptionID *id.ID         `db:"consumption_id" json:"consumptionId,omitempty"`
	Note          string         `db:"note" json:"note"`
	CreatedBy     string         `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// ReversalCause records why a consumption was reversed.
type ReversalCause string

const (
	CauseManual       ReversalCause = "manual"
	CauseOrderDeleted ReversalCause = "order_deleted"
)

// Consumption is material booked against a work order. It is never
// deleted; a reversal ends it. Restoring a deleted order books a new
// consumption pointing back at the reversed one through RestoredFrom.
type Consumption struct {
	ID            id.ID          `db:"id" json:"id"`
	OrderID       id.ID          `db:"order_id" json:"orderId"`
	LineID        *id.ID         `db:"line_id" json:"lineId,omitempty"`
	MaterialID    id.ID          `db:"material_id" json:"materialId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice     types.Money    `db:"unit_price" json:"unitPrice"`
	Reversed      bool           `db:"reversed" json:"reversed"`
	ReversedBy    *string        `db:"reversed_by" json:"reversedBy,omitempty"`
	ReversedAt    *time.Time     `db:"reversed_at" json:"reversedAt,omitempty"`
	ReversalCause *ReversalCause `db:"reversal_cause" json:"reversalCause,omitempty"`
	RestoredFrom  *id.ID         `db:"restored_from" json:"restoredFrom,omitempty"`
	CreatedBy     string         `db:"created_by" json:"createdBy"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// Value returns quantity * unit price.
func (c *Consumption) Value() types.Money {
	return c.Quantity.Value(c.UnitPrice)
}

// OrderRef is the work order context a booking needs: number for notes,
// state for checks, and the line label.
type OrderRef struct {
	OrderID      id.ID
	Number       string
	Deleted      bool
	LineName     *string
	LineQuantity types.Quantity
	LineUnit     string
}

// LedgerRow is a ledger entry with the order context it was posted for.
type LedgerRow struct {
	LedgerEntry
	OrderNumber  *string         `db:"order_number" json:"orderNumber,omitempty"`
	OrderTitle   *string         `db:"order_title" json:"orderTitle,omitempty"`
	CustomerName *string         `db:"customer_name" json:"customerName,omitempty"`
	LineName     *string         `db:"line_name" json:"lineName,omitempty"`
	LineQuantity *types.Quantity `db:"line_quantity" json:"lineQuantity,omitempty"`
	LineUnit     *string         `db:"line_unit" json:"lineUnit,omitempty"`
}

// ConsumptionRow is a consumption with material and order context.
type ConsumptionRow struct {
	Consumption
	MaterialName string      `db:"material_name" json:"materialName"`
	MaterialUnit string      `db:"material_unit" json:"materialUnit"`
	OrderNumber  *string     `db:"order_number" json:"orderNumber,omitempty"`
	OrderTitle   *string     `db:"order_title" json:"orderTitle,omitempty"`
	CustomerName *string     `db:"customer_name" json:"customerName,omitempty"`
	LineName     *string     `db:"line_name" json:"lineName,omitempty"`
	Value        types.Money `db:"-" json:"value"`
}
