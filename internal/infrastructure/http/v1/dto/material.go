package dto

import (
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

// --- Request DTOs ---

// CreateMaterialRequest is the request body for creating a material.
type CreateMaterialRequest struct {
	Name         string         `json:"name" binding:"required"`
	Category     string         `json:"category"`
	Unit         string         `json:"unit"`
	Price        types.Money    `json:"price"`
	MinStock     types.Quantity `json:"minStock"`
	InitialStock types.Quantity `json:"initialStock"`
}

// ToRequest converts the DTO to a domain request.
func (r *CreateMaterialRequest) ToRequest() material.CreateRequest {
	return material.CreateRequest{
		Name:         r.Name,
		Category:     r.Category,
		Unit:         r.Unit,
		Price:        r.Price,
		MinStock:     r.MinStock,
		InitialStock: r.InitialStock,
	}
}

// UpdateMaterialRequest is the request body for updating a material.
// On-hand is not accepted.
type UpdateMaterialRequest struct {
	Name     string         `json:"name" binding:"required"`
	Category string         `json:"category"`
	Unit     string         `json:"unit"`
	Price    types.Money    `json:"price"`
	MinStock types.Quantity `json:"minStock"`
	Active   *bool          `json:"active"`
}

// ToRequest converts the DTO to a domain request.
func (r *UpdateMaterialRequest) ToRequest() material.UpdateRequest {
	return material.UpdateRequest{
		Name:     r.Name,
		Category: r.Category,
		Unit:     r.Unit,
		Price:    r.Price,
		MinStock: r.MinStock,
		Active:   r.Active,
	}
}

// AdjustStockRequest posts a ledger entry not tied to an order.
type AdjustStockRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Kind     string         `json:"kind"`
	Note     string         `json:"note"`
}

// ToRequest converts the DTO to a domain request. An empty kind means IN
// for positive and CORRECTION for negative quantities.
func (r *AdjustStockRequest) ToRequest(materialID id.ID) stock.AdjustRequest {
	kind := stock.Kind(r.Kind)
	if r.Kind == "" {
		kind = stock.KindIn
		if r.Quantity.IsNegative() {
			kind = stock.KindCorrection
		}
	}
	return stock.AdjustRequest{
		MaterialID: materialID,
		Quantity:   r.Quantity,
		Kind:       kind,
		Note:       r.Note,
	}
}

// NormItem is one bill-of-materials row.
type NormItem struct {
	MaterialID id.ID          `json:"materialId"`
	Quantity   types.Quantity `json:"quantity"`
}

// ReplaceNormRequest replaces an article's bill of materials.
type ReplaceNormRequest struct {
	Materials []NormItem `json:"materials"`
}

// ToInputs converts the DTO to domain inputs.
func (r *ReplaceNormRequest) ToInputs() []material.NormInput {
	out := make([]material.NormInput, len(r.Materials))
	for i, m := range r.Materials {
		out[i] = material.NormInput{MaterialID: m.MaterialID, Quantity: m.Quantity}
	}
	return out
}

// --- Response DTOs ---

// MaterialResponse is a material with its low-stock flag.
type MaterialResponse struct {
	*material.Material
	LowStock bool `json:"lowStock"`
}

// FromMaterial creates response DTO from domain entity.
func FromMaterial(m *material.Material) MaterialResponse {
	return MaterialResponse{Material: m, LowStock: m.LowStock()}
}

// FromMaterials maps a list.
func FromMaterials(list []*material.Material) []MaterialResponse {
	out := make([]MaterialResponse, len(list))
	for i, m := range list {
		out[i] = FromMaterial(m)
	}
	return out
}
