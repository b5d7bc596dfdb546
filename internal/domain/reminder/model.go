// Package reminder provides follow-up notes attached to work orders and lines.
package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// Priority orders reminders within the open and done groups.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority accepts the English names and the legacy Croatian ones.
// Empty input yields medium.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, true
	case "high", "visok":
		return PriorityHigh, true
	case "medium", "srednji":
		return PriorityMedium, true
	case "low", "nizak":
		return PriorityLow, true
	}
	return "", false
}

// Rank returns 1 for high, 2 for medium and 3 otherwise.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	}
	return 3
}

// Reminder is a note on an order, optionally on one of its lines.
// LineLabel is the "name (qty unit)" snapshot taken when the reminder was
// created and survives line replacement.
type Reminder struct {
	ID        id.ID      `db:"id" json:"id"`
	OrderID   id.ID      `db:"order_id" json:"orderId"`
	LineID    *id.ID     `db:"line_id" json:"lineId,omitempty"`
	LineLabel *string    `db:"line_label" json:"-"`
	Text      string     `db:"text" json:"text"`
	Priority  Priority   `db:"priority" json:"priority"`
	DueDate   *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Done      bool       `db:"done" json:"done"`
	DoneBy    *string    `db:"done_by" json:"doneBy,omitempty"`
	DoneAt    *time.Time `db:"done_at" json:"doneAt,omitempty"`
	CreatedBy string     `db:"created_by" json:"createdBy"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// Row is a reminder with order context for listings. LineName prefers the
// snapshot over the live line.
type Row struct {
	Reminder
	OrderNumber  *string `db:"order_number" json:"orderNumber,omitempty"`
	OrderTitle   *string `db:"order_title" json:"orderTitle,omitempty"`
	CustomerName *string `db:"customer_name" json:"customerName,omitempty"`
	LineName     *string `db:"line_name" json:"lineName,omitempty"`
}

// LineLabel renders the line snapshot "name (qty unit)".
func LineLabel(name string, qty types.Quantity, unit string) string {
	if unit == "" {
		unit = "kom"
	}
	if qty.IsZero() {
		return name
	}
	return fmt.Sprintf("%s (%s %s)", name, qty.Display(), unit)
}

// Less orders rows by done, priority, due date (missing last) and newest
// first.
func Less(a, b *Reminder) bool {
	if a.Done != b.Done {
		return !a.Done
	}
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.DueDate == nil && b.DueDate != nil:
		return false
	case a.DueDate != nil && b.DueDate == nil:
		return true
	case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
		return a.DueDate.Before(*b.DueDate)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
