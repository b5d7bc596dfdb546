package dto

import (
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
)

// --- Request DTOs ---

// WorkOrderHeader holds the editable header fields.
type WorkOrderHeader struct {
	Date          *Date   `json:"date"`
	Deadline      *Date   `json:"deadline"`
	CustomerID    *string `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	ContactPerson string  `json:"contactPerson"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Status        string  `json:"status"`
}

func (h *WorkOrderHeader) toHeader() workorder.Header {
	return workorder.Header{
		Date:          h.Date.Ptr(),
		Deadline:      h.Deadline.Ptr(),
		CustomerID:    h.CustomerID,
		CustomerName:  h.CustomerName,
		ContactPerson: h.ContactPerson,
		Phone:         h.Phone,
		Email:         h.Email,
		Title:         h.Title,
		Description:   h.Description,
		InvoiceNumber: h.InvoiceNumber,
		Status:        h.Status,
	}
}

// LineMaterialRequest is material to book on a line. Entries with an id
// are already booked.
type LineMaterialRequest struct {
	ID         *id.ID         `json:"id"`
	MaterialID id.ID          `json:"materialId"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  *types.Money   `json:"unitPrice"`
}

// LineReminderRequest is a reminder to add on a line. Entries with an id
// already exist.
type LineReminderRequest struct {
	ID       *id.ID `json:"id"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	DueDate  *Date  `json:"dueDate"`
	Done     bool   `json:"done"`
}

// LineRequest is one order line.
type LineRequest struct {
	ArticleID   *string                       `json:"articleId"`
	Name        string                        `json:"name"`
	Quantity    *types.Quantity               `json:"quantity"`
	Unit        string                        `json:"unit"`
	Price       types.Money                   `json:"price"`
	Format      string                        `json:"format"`
	Description string                        `json:"description"`
	Note        string                        `json:"note"`
	Procedures  []workorder.AssignedProcedure `json:"procedures"`
	Materials   []LineMaterialRequest         `json:"materials"`
	Reminders   []LineReminderRequest         `json:"reminders"`
}

func (r *LineRequest) toInput() workorder.LineInput {
	in := workorder.LineInput{
		ArticleID:   r.ArticleID,
		Name:        r.Name,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Price:       r.Price,
		Format:      r.Format,
		Description: r.Description,
		Note:        r.Note,
		Procedures:  r.Procedures,
	}
	for _, m := range r.Materials {
		in.Materials = append(in.Materials, workorder.MaterialInput{
			ID:         m.ID,
			MaterialID: m.MaterialID,
			Quantity:   m.Quantity,
			UnitPrice:  m.UnitPrice,
		})
	}
	for _, rem := range r.Reminders {
		in.Reminders = append(in.Reminders, workorder.ReminderInput{
			ID:       rem.ID,
			Text:     rem.Text,
			Priority: rem.Priority,
			DueDate:  rem.DueDate.Ptr(),
			Done:     rem.Done,
		})
	}
	return in
}

// ProcedureRequest is one whole-order procedure.
type ProcedureRequest struct {
	ProcedureID     *string         `json:"procedureId"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Quantity        *types.Quantity `json:"quantity"`
	Price           types.Money     `json:"price"`
	DurationMinutes *int            `json:"durationMinutes"`
	Done            bool            `json:"done"`
	DoneBy          *string         `json:"doneBy"`
	DoneAt          *time.Time      `json:"doneAt"`
}

func (r *ProcedureRequest) toInput() workorder.ProcedureInput {
	return workorder.ProcedureInput{
		ProcedureID:     r.ProcedureID,
		Name:            r.Name,
		Description:     r.Description,
		Quantity:        r.Quantity,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
		Done:            r.Done,
		DoneBy:          r.DoneBy,
		DoneAt:          r.DoneAt,
	}
}

// CreateWorkOrderRequest is the request body for creating an order.
type CreateWorkOrderRequest struct {
	Number string `json:"number"`
	WorkOrderHeader
	Lines      []LineRequest      `json:"lines"`
	Procedures []ProcedureRequest `json:"procedures"`
}

// ToRequest converts the DTO to a domain request.
func (r *CreateWorkOrderRequest) ToRequest() workorder.CreateRequest {
	return workorder.CreateRequest{
		Number:     r.Number,
		Header:     r.toHeader(),
		Lines:      lineInputs(r.Lines),
		Procedures: procedureInputs(r.Procedures),
	}
}

// UpdateWorkOrderRequest is the request body for updating an order. The
// number is not editable.
type UpdateWorkOrderRequest struct {
	WorkOrderHeader
	Lines      []LineRequest      `json:"lines"`
	Procedures []ProcedureRequest `json:"procedures"`
}

// ToRequest converts the DTO to a domain request.
func (r *UpdateWorkOrderRequest) ToRequest() workorder.UpdateRequest {
	return workorder.UpdateRequest{
		Header:     r.toHeader(),
		Lines:      lineInputs(r.Lines),
		Procedures: procedureInputs(r.Procedures),
	}
}

func lineInputs(in []LineRequest) []workorder.LineInput {
	out := make([]workorder.LineInput, len(in))
	for i := range in {
		out[i] = in[i].toInput()
	}
	return out
}

func procedureInputs(in []ProcedureRequest) []workorder.ProcedureInput {
	out := make([]workorder.ProcedureInput, len(in))
	for i := range in {
		out[i] = in[i].toInput()
	}
	return out
}

// WorkOrderListQuery holds list query parameters.
type WorkOrderListQuery struct {
	IncludeDeleted bool    `form:"includeDeleted"`
	Status         string  `form:"status"`
	CustomerID     *string `form:"customerId"`
	Search         string  `form:"search"`
	Limit          int     `form:"limit" binding:"min=0,max=500"`
	Offset         int     `form:"offset" binding:"min=0"`
}

// ToFilter converts the query to a domain filter.
func (q *WorkOrderListQuery) ToFilter() workorder.ListFilter {
	return workorder.ListFilter{
		IncludeDeleted: q.IncludeDeleted,
		Status:         q.Status,
		CustomerID:     q.CustomerID,
		Search:         q.Search,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}
}

// ToggleProcedureRequest flips or sets a procedure's done flag.
type ToggleProcedureRequest struct {
	Done   *bool   `json:"done"`
	DoneBy *string `json:"doneBy"`
}

// BookItem is one material to book against an order.
type BookItem struct {
	MaterialID id.ID          `json:"materialId"`
	Quantity   types.Quantity `json:"quantity"`
	UnitPrice  *types.Money   `json:"unitPrice"`
	LineID     *id.ID         `json:"lineId"`
}

func (b *BookItem) toRequest(orderID id.ID) stock.BookRequest {
	return stock.BookRequest{
		MaterialID: b.MaterialID,
		Quantity:   b.Quantity,
		UnitPrice:  b.UnitPrice,
		OrderID:    orderID,
		LineID:     b.LineID,
	}
}

// BookRequest books one material, or several when Materials is set.
type BookRequest struct {
	BookItem
	Materials []BookItem `json:"materials"`
}

// Many reports whether the request carries a list.
func (r *BookRequest) Many() bool { return len(r.Materials) > 0 }

// ToRequest converts the single-item form.
func (r *BookRequest) ToRequest(orderID id.ID) stock.BookRequest {
	return r.BookItem.toRequest(orderID)
}

// ToRequests converts the list form.
func (r *BookRequest) ToRequests(orderID id.ID) []stock.BookRequest {
	out := make([]stock.BookRequest, len(r.Materials))
	for i := range r.Materials {
		out[i] = r.Materials[i].toRequest(orderID)
	}
	return out
}
