// Package material is the registry of stockable materials.
//
// A material's on-hand quantity is a cache of its ledger: the registry
// reads it but never writes it. Only the stock booking engine changes it,
// together with a ledger entry, in one transaction.
package material

import (
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// DefaultUnit is used when a material or line has no unit of measure.
const DefaultUnit = "kom"

// Material is a stockable catalog item.
type Material struct {
	ID        id.ID          `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Category  string         `db:"category" json:"category"`
	Unit      string         `db:"unit" json:"unit"`
	Price     types.Money    `db:"price" json:"price"`
	OnHand    types.Quantity `db:"on_hand" json:"onHand"`
	MinStock  types.Quantity `db:"min_stock" json:"minStock"`
	Active    bool           `db:"active" json:"active"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// LowStock reports whether on-hand fell below the minimum threshold.
func (m *Material) LowStock() bool {
	return m.OnHand < m.MinStock
}

// Validate checks catalog fields.
func (m *Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return apperror.NewValidation("material name is required").WithDetail("field", "name")
	}
	if m.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").WithDetail("field", "price")
	}
	if m.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").WithDetail("field", "minStock")
	}
	return nil
}

// NormLine is one row of an article's bill of materials: how much of a
// material one unit of the article consumes.
type NormLine struct {
	ArticleID  string         `db:"article_id" json:"articleId"`
	MaterialID id.ID          `db:"material_id" json:"materialId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`

	// Read-side fields joined from materials.
	MaterialName string      `db:"material_name" json:"name"`
	Unit         string      `db:"unit" json:"unit"`
	Price        types.Money `db:"price" json:"price"`
}
