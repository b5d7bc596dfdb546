package dto

import (
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
)

// CreateReminderRequest is the request body for creating a reminder.
type CreateReminderRequest struct {
	OrderID  id.ID  `json:"orderId"`
	LineID   *id.ID `json:"lineId"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	DueDate  *Date  `json:"dueDate"`
}

// ToRequest converts the DTO to a domain request.
func (r *CreateReminderRequest) ToRequest() reminder.CreateRequest {
	return reminder.CreateRequest{
		OrderID:  r.OrderID,
		LineID:   r.LineID,
		Text:     r.Text,
		Priority: r.Priority,
		DueDate:  r.DueDate.Ptr(),
	}
}

// UpdateReminderRequest toggles completion when done is set, otherwise
// replaces text, priority and due date.
type UpdateReminderRequest struct {
	Done     *bool  `json:"done"`
	Text     string `json:"text"`
	Priority string `json:"priority"`
	DueDate  *Date  `json:"dueDate"`
}

// ToRequest converts the DTO to a domain request.
func (r *UpdateReminderRequest) ToRequest() reminder.UpdateRequest {
	return reminder.UpdateRequest{
		Done:     r.Done,
		Text:     r.Text,
		Priority: r.Priority,
		DueDate:  r.DueDate.Ptr(),
	}
}
