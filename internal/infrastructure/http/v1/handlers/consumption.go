package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/dto"
)

// ConsumptionHandler books material against work orders and reverses it.
type ConsumptionHandler struct {
	*BaseHandler
	stock  *stock.Service
	orders *workorder.Service
}

// NewConsumptionHandler creates a new consumption handler.
func NewConsumptionHandler(base *BaseHandler, st *stock.Service, orders *workorder.Service) *ConsumptionHandler {
	return &ConsumptionHandler{BaseHandler: base, stock: st, orders: orders}
}

// ListForOrder handles GET /work-orders/:id/consumptions
func (h *ConsumptionHandler) ListForOrder(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	rows, err := h.stock.ConsumptionsForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// Book handles POST /work-orders/:id/consumptions. A body with a
// "materials" list books all of them in one transaction.
func (h *ConsumptionHandler) Book(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.BookRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if req.Many() {
		booked, err := h.stock.BookMany(ctx, orderID, req.ToRequests(orderID))
		if err != nil {
			h.Error(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.SuccessResponse{Success: true, Data: booked})
		return
	}

	booked, entry, err := h.stock.Book(ctx, req.ToRequest(orderID))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.StockResponse{
		Success: true,
		ID:      booked.ID.String(),
		OnHand:  entry.BalanceAfter,
		Data:    booked,
	})
}

// Unbook handles DELETE /work-orders/:id/consumptions. Every active
// consumption of the order is reversed.
func (h *ConsumptionHandler) Unbook(c *gin.Context) {
	orderID, ok := h.PathID(c)
	if !ok {
		return
	}
	n, err := h.orders.Unbook(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ReturnedResponse{Success: true, Returned: n})
}

// Reverse handles DELETE /consumptions/:id
func (h *ConsumptionHandler) Reverse(c *gin.Context) {
	consumptionID, ok := h.PathID(c)
	if !ok {
		return
	}
	reversed, err := h.stock.Reverse(c.Request.Context(), consumptionID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, reversed)
}
