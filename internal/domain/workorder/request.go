package workorder

import (
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
)

// Header holds the editable order header fields.
type Header struct {
	// Date defaults to today.
	Date          *time.Time
	Deadline      *time.Time
	CustomerID    *string
	CustomerName  string
	ContactPerson string
	Phone         string
	Email         string
	Title         string
	Description   string
	InvoiceNumber string
	// Status defaults to DefaultStatus.
	Status string
}

// LineInput is one requested line. A line with neither ArticleID nor Name
// is skipped; its position is still consumed.
type LineInput struct {
	ArticleID *string
	Name      string
	// Quantity defaults to 1.
	Quantity *types.Quantity
	// Unit defaults to "kom".
	Unit        string
	Price       types.Money
	Format      string
	Description string
	Note        string
	Procedures  []AssignedProcedure

	// Materials and Reminders are honored by Update only. Entries that
	// carry an ID already exist and are ignored.
	Materials []MaterialInput
	Reminders []ReminderInput
}

// MaterialInput is material to book on a line during Update.
type MaterialInput struct {
	ID         *id.ID
	MaterialID id.ID
	Quantity   types.Quantity
	UnitPrice  *types.Money
}

// ReminderInput is a reminder to add on a line during Update.
type ReminderInput struct {
	ID       *id.ID
	Text     string
	Priority string
	DueDate  *time.Time
	Done     bool
}

// ProcedureInput is one whole-order procedure. Done fields are carried over
// as given.
type ProcedureInput struct {
	ProcedureID *string
	Name        string
	Description string
	// Quantity defaults to 1.
	Quantity        *types.Quantity
	Price           types.Money
	DurationMinutes *int
	Done            bool
	DoneBy          *string
	DoneAt          *time.Time
}

// CreateRequest creates an order. An empty Number is generated.
type CreateRequest struct {
	Number string
	Header
	Lines      []LineInput
	Procedures []ProcedureInput
}

// UpdateRequest replaces an order's header, lines and procedures.
type UpdateRequest struct {
	Header
	Lines      []LineInput
	Procedures []ProcedureInput
}

// ApplyDefaults fills unset optional fields.
func (h *Header) ApplyDefaults(now time.Time) {
	if h.Date == nil {
		d := truncateDay(now)
		h.Date = &d
	}
	if strings.TrimSpace(h.Status) == "" {
		h.Status = DefaultStatus
	}
	if h.CustomerID != nil && strings.TrimSpace(*h.CustomerID) == "" {
		h.CustomerID = nil
	}
}

// ApplyDefaults fills unset optional fields.
func (l *LineInput) ApplyDefaults() {
	if l.Quantity == nil {
		q := types.NewQuantity(1)
		l.Quantity = &q
	}
	if strings.TrimSpace(l.Unit) == "" {
		l.Unit = material.DefaultUnit
	}
	if l.ArticleID != nil && strings.TrimSpace(*l.ArticleID) == "" {
		l.ArticleID = nil
	}
}

// ApplyDefaults fills unset optional fields.
func (p *ProcedureInput) ApplyDefaults() {
	if p.Quantity == nil {
		q := types.NewQuantity(1)
		p.Quantity = &q
	}
	if p.ProcedureID != nil && strings.TrimSpace(*p.ProcedureID) == "" {
		p.ProcedureID = nil
	}
}

func (l *LineInput) empty() bool {
	return l.ArticleID == nil && strings.TrimSpace(l.Name) == ""
}

func (p *ProcedureInput) empty() bool {
	return p.ProcedureID == nil && strings.TrimSpace(p.Name) == ""
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// applyHeader copies header fields onto o. The number is never touched.
func applyHeader(o *WorkOrder, h Header) {
	o.OrderDate = truncateDay(*h.Date)
	o.Deadline = h.Deadline
	o.CustomerID = h.CustomerID
	o.CustomerName = strings.TrimSpace(h.CustomerName)
	o.ContactPerson = strings.TrimSpace(h.ContactPerson)
	o.Phone = strings.TrimSpace(h.Phone)
	o.Email = strings.TrimSpace(h.Email)
	o.Title = strings.TrimSpace(h.Title)
	o.Description = h.Description
	o.InvoiceNumber = strings.TrimSpace(h.InvoiceNumber)
	o.Status = strings.TrimSpace(h.Status)
}

// buildLines converts inputs to lines. The returned map gives, per input
// position, the built line; skipped inputs are absent.
func buildLines(orderID id.ID, inputs []LineInput) ([]Line, map[int]*Line) {
	lines := make([]Line, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		in.ApplyDefaults()
		if in.empty() {
			continue
		}
		procs := in.Procedures
		if procs == nil {
			procs = []AssignedProcedure{}
		}
		lines = append(lines, Line{
			ID:          id.New(),
			OrderID:     orderID,
			ArticleID:   in.ArticleID,
			Name:        strings.TrimSpace(in.Name),
			Quantity:    *in.Quantity,
			Unit:        strings.TrimSpace(in.Unit),
			Price:       in.Price,
			Format:      in.Format,
			Description: in.Description,
			Note:        in.Note,
			SeqIndex:    i,
			Procedures:  procs,
		})
	}
	byPos := make(map[int]*Line, len(lines))
	for i := range lines {
		byPos[lines[i].SeqIndex] = &lines[i]
	}
	return lines, byPos
}

func buildProcedures(orderID id.ID, inputs []ProcedureInput) []Procedure {
	procs := make([]Procedure, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		in.ApplyDefaults()
		if in.empty() {
			continue
		}
		p := Procedure{
			ID:              id.New(),
			OrderID:         orderID,
			ProcedureID:     in.ProcedureID,
			Name:            strings.TrimSpace(in.Name),
			Description:     in.Description,
			Quantity:        *in.Quantity,
			Price:           in.Price,
			DurationMinutes: in.DurationMinutes,
			Position:        i,
			Done:            in.Done,
		}
		if in.Done {
			p.DoneBy = in.DoneBy
			p.DoneAt = in.DoneAt
		}
		procs = append(procs, p)
	}
	return procs
}
