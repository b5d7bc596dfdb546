// Package workorder provides the work order aggregate and its lifecycle.
package workorder

import (
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

// Number prefix of auto-generated order numbers.
const NumberPrefix = "RN-"

// DefaultStatus of a new order.
const DefaultStatus = "u_tijeku"

// EntityType names work orders in the audit log.
const EntityType = "work_order"

// WorkOrder is the order header. The number never changes once assigned.
type WorkOrder struct {
	ID            id.ID      `db:"id" json:"id"`
	Number        string     `db:"number" json:"number"`
	OrderDate     time.Time  `db:"order_date" json:"date"`
	Deadline      *time.Time `db:"deadline" json:"deadline,omitempty"`
	CustomerID    *string    `db:"customer_id" json:"customerId,omitempty"`
	CustomerName  string     `db:"customer_name" json:"customerName"`
	ContactPerson string     `db:"contact_person" json:"contactPerson"`
	Phone         string     `db:"phone" json:"phone"`
	Email         string     `db:"email" json:"email"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	InvoiceNumber string     `db:"invoice_number" json:"invoiceNumber"`
	Status        string     `db:"status" json:"status"`

	Booked   bool       `db:"booked" json:"booked"`
	BookedAt *time.Time `db:"booked_at" json:"bookedAt,omitempty"`

	Deleted   bool       `db:"deleted" json:"deleted"`
	DeletedBy *string    `db:"deleted_by" json:"deletedBy,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`

	DeliveryIssued   bool       `db:"delivery_issued" json:"deliveryIssued"`
	DeliveryNumber   *string    `db:"delivery_number" json:"deliveryNumber,omitempty"`
	DeliveryIssuedBy *string    `db:"delivery_issued_by" json:"deliveryIssuedBy,omitempty"`
	DeliveryIssuedAt *time.Time `db:"delivery_issued_at" json:"deliveryIssuedAt,omitempty"`

	InvoiceRef    *string    `db:"invoice_ref" json:"invoiceRef,omitempty"`
	InvoiceSentAt *time.Time `db:"invoice_sent_at" json:"invoiceSentAt,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedBy *string   `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// AssignedProcedure is a catalog procedure attached to a line.
type AssignedProcedure struct {
	ProcedureID *string `json:"procedureId,omitempty"`
	Name        string  `json:"name"`
}

// Line is an order line. SeqIndex is the line's position in the order and
// is what ties consumptions and reminders to a line across edits.
type Line struct {
	ID          id.ID               `db:"id" json:"id"`
	OrderID     id.ID               `db:"order_id" json:"orderId"`
	ArticleID   *string             `db:"article_id" json:"articleId,omitempty"`
	Name        string              `db:"name" json:"name"`
	Quantity    types.Quantity      `db:"quantity" json:"quantity"`
	Unit        string              `db:"unit" json:"unit"`
	Price       types.Money         `db:"price" json:"price"`
	Format      string              `db:"format" json:"format"`
	Description string              `db:"description" json:"description"`
	Note        string              `db:"note" json:"note"`
	SeqIndex    int                 `db:"seq_index" json:"seqIndex"`
	Procedures  []AssignedProcedure `db:"procedures" json:"procedures"`
}

// Value returns quantity * price.
func (l *Line) Value() types.Money {
	return l.Quantity.Value(l.Price)
}

// Label renders "name (qty unit)", the snapshot kept on reminders.
func (l *Line) Label() string {
	return reminder.LineLabel(l.Name, l.Quantity, l.Unit)
}

// Procedure is a whole-order procedure with a completion sub-state.
type Procedure struct {
	ID              id.ID          `db:"id" json:"id"`
	OrderID         id.ID          `db:"order_id" json:"orderId"`
	ProcedureID     *string        `db:"procedure_id" json:"procedureId,omitempty"`
	Name            string         `db:"name" json:"name"`
	Description     string         `db:"description" json:"description"`
	Quantity        types.Quantity `db:"quantity" json:"quantity"`
	Price           types.Money    `db:"price" json:"price"`
	DurationMinutes *int           `db:"duration_minutes" json:"durationMinutes,omitempty"`
	Position        int            `db:"position" json:"position"`
	Done            bool           `db:"done" json:"done"`
	DoneBy          *string        `db:"done_by" json:"doneBy,omitempty"`
	DoneAt          *time.Time     `db:"done_at" json:"doneAt,omitempty"`
}

// Value returns quantity * price.
func (p *Procedure) Value() types.Money {
	return p.Quantity.Value(p.Price)
}

// Total sums line values.
func Total(lines []Line) types.Money {
	total := types.Zero()
	for i := range lines {
		total = total.Add(lines[i].Value())
	}
	return total
}

// LineDetail is a line with the consumptions and reminders attached to it.
type LineDetail struct {
	Line
	Materials []stock.ConsumptionRow `json:"materials"`
	Reminders []reminder.Row         `json:"reminders"`
}

// Detail is the full aggregate returned by Get.
type Detail struct {
	WorkOrder
	Lines        []LineDetail           `json:"lines"`
	Procedures   []Procedure            `json:"procedures"`
	Consumptions []stock.ConsumptionRow `json:"consumptions"`
	// Reminders holds reminders not attached to any current line.
	Reminders []reminder.Row `json:"reminders"`
	Total     types.Money    `json:"total"`
}

// Summary is a list row.
type Summary struct {
	WorkOrder
	Lines []Line      `json:"lines"`
	Total types.Money `json:"total"`
}

// ListFilter narrows List.
type ListFilter struct {
	IncludeDeleted bool
	Status         string
	CustomerID     *string
	Search         string
	Limit          int
	Offset         int
}
