package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/export"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/http/v1/dto"
)

// MaterialHandler handles the material catalog, its ledger and the
// article bills of materials.
type MaterialHandler struct {
	*BaseHandler
	materials *material.Service
	stock     *stock.Service
}

// NewMaterialHandler creates a new material handler.
func NewMaterialHandler(base *BaseHandler, materials *material.Service, stock *stock.Service) *MaterialHandler {
	return &MaterialHandler{BaseHandler: base, materials: materials, stock: stock}
}

// List handles GET /materials. Inactive materials are included with ?all=true.
func (h *MaterialHandler) List(c *gin.Context) {
	list, err := h.materials.List(c.Request.Context(), !h.ParseBoolQuery(c, "all"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMaterials(list))
}

// Get handles GET /materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	m, err := h.materials.Get(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMaterial(m))
}

// Create handles POST /materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var req dto.CreateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.materials.Create(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m.ID, dto.FromMaterial(m))
}

// Update handles PUT /materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := h.materials.Update(c.Request.Context(), materialID, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, dto.FromMaterial(m))
}

// Deactivate handles DELETE /materials/:id. Materials are never removed.
func (h *MaterialHandler) Deactivate(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.materials.Deactivate(c.Request.Context(), materialID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "material deactivated")
}

// Ledger handles GET /materials/:id/ledger
func (h *MaterialHandler) Ledger(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	rows, err := h.stock.LedgerFor(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// Adjust handles POST /materials/:id/ledger
func (h *MaterialHandler) Adjust(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.stock.DirectAdjust(c.Request.Context(), req.ToRequest(materialID))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.StockResponse{
		Success: true,
		ID:      entry.ID.String(),
		OnHand:  entry.BalanceAfter,
		Data:    entry,
	})
}

// ExportLedger handles GET /materials/:id/ledger/export
func (h *MaterialHandler) ExportLedger(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	m, err := h.materials.Get(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	rows, err := h.stock.LedgerFor(ctx, materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	file, err := export.LedgerXLSX(m, rows)
	if err != nil {
		h.Error(c, fmt.Errorf("export ledger: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.LedgerFileName(m)))
	c.Data(http.StatusOK, export.XLSXContentType, file)
}

// Consumptions handles GET /materials/:id/consumptions
func (h *MaterialHandler) Consumptions(c *gin.Context) {
	materialID, ok := h.PathID(c)
	if !ok {
		return
	}
	rows, err := h.stock.ConsumptionHistoryFor(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rows)
}

// ArticleNorm handles GET /articles/:id/materials
func (h *MaterialHandler) ArticleNorm(c *gin.Context) {
	lines, err := h.materials.ArticleNorm(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, lines)
}

// ReplaceArticleNorm handles PUT /articles/:id/materials
func (h *MaterialHandler) ReplaceArticleNorm(c *gin.Context) {
	var req dto.ReplaceNormRequest
	if !h.BindJSON(c, &req) {
		return
	}
	lines, err := h.materials.ReplaceArticleNorm(c.Request.Context(), c.Param("id"), req.ToInputs())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Updated(c, lines)
}
