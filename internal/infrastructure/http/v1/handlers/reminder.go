package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/dto"
)

// ReminderHandler handles order and line reminders.
type ReminderHandler struct {
	*BaseHandler
	service *reminder.Service
}

// NewReminderHandler creates a new reminder handler.
func NewReminderHandler(base *BaseHandler, service *reminder.Service) *ReminderHandler {
	return &ReminderHandler{BaseHandler: base, service: service}
}

// List handles GET /reminders?orderId=&lineId=
func (h *ReminderHandler) List(c *gin.Context) {
	orderID, ok := h.QueryID(c, "orderId")
	if !ok {
		return
	}
	lineID, ok := h.QueryID(c, "lineId")
	if !ok {
		return
	}
	rows, err := h.service.List(c.Request.Context(), reminder.Filter{OrderID: orderID, LineID: lineID})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// Create handles POST /reminders
func (h *ReminderHandler) Create(c *gin.Context) {
	var req dto.CreateReminderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.service.Create(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r.ID, r)
}

// Update handles PUT /reminders/:id
func (h *ReminderHandler) Update(c *gin.Context) {
	reminderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateReminderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r, err := h.service.Update(c.Request.Context(), reminderID, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, r)
}

// Delete handles DELETE /reminders/:id. Without ?hard=true the reminder is
// only marked done.
func (h *ReminderHandler) Delete(c *gin.Context) {
	reminderID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), reminderID, h.ParseBoolQuery(c, "hard")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "")
}
