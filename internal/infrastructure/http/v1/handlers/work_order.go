package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/dto"
)

// WorkOrderHandler handles the work order lifecycle.
type WorkOrderHandler struct {
	*BaseHandler
	orders    *workorder.Service
	invoicing *invoicing.Service
}

// NewWorkOrderHandler creates a new work order handler. invoicing may be nil.
func NewWorkOrderHandler(base *BaseHandler, orders *workorder.Service, inv *invoicing.Service) *WorkOrderHandler {
	return &WorkOrderHandler{BaseHandler: base, orders: orders, invoicing: inv}
}

// List handles GET /work-orders
func (h *WorkOrderHandler) List(c *gin.Context) {
	var q dto.WorkOrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	list, err := h.orders.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, list)
}

// Get handles GET /work-orders/:id
func (h *WorkOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	detail, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, detail)
}

// Create handles POST /work-orders
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.orders.Create(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o.ID, o)
}

// Update handles PUT /work-orders/:id
func (h *WorkOrderHandler) Update(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateWorkOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.orders.Update(c.Request.Context(), orderID, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, o)
}

// Delete handles DELETE /work-orders/:id. The order is soft-deleted and its
// material returned to stock.
func (h *WorkOrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	n, err := h.orders.SoftDelete(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ReturnedResponse{Success: true, Returned: n})
}

// Restore handles POST /work-orders/:id/restore
func (h *WorkOrderHandler) Restore(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	n, err := h.orders.Restore(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ReturnedResponse{Success: true, Returned: n})
}

// IssueDelivery handles POST /work-orders/:id/delivery
func (h *WorkOrderHandler) IssueDelivery(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	o, err := h.orders.IssueDelivery(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, o)
}

// RevokeDelivery handles DELETE /work-orders/:id/delivery
func (h *WorkOrderHandler) RevokeDelivery(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	o, err := h.orders.RevokeDelivery(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, o)
}

// SendInvoice handles POST /work-orders/:id/invoice
func (h *WorkOrderHandler) SendInvoice(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	if h.invoicing == nil {
		h.Error(c, apperror.NewValidation("invoicing is not configured"))
		return
	}
	ref, err := h.invoicing.SendOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.InvoiceResponse{Success: true, InvoiceRef: ref})
}

// History handles GET /work-orders/:id/history
func (h *WorkOrderHandler) History(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	entries, err := h.orders.History(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}

// ToggleProcedure handles PUT /order-procedures/:id
func (h *WorkOrderHandler) ToggleProcedure(c *gin.Context) {
	procedureID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.ToggleProcedureRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	p, err := h.orders.ToggleProcedure(c.Request.Context(), procedureID, req.Done, req.DoneBy)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, p)
}
