package material

import (
	"strings"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// CreateRequest carries a new catalog material. InitialStock, when
// positive, is posted as an IN ledger entry.
type CreateRequest struct {
	Name         string
	Category     string
	Unit         string
	Price        types.Money
	MinStock     types.Quantity
	InitialStock types.Quantity
}

// UpdateRequest replaces every catalog field. On-hand is not editable.
type UpdateRequest struct {
	Name     string
	Category string
	Unit     string
	Price    types.Money
	MinStock types.Quantity
	Active   *bool
}

// NormInput is one requested bill-of-materials row. Zero quantity means 1.
type NormInput struct {
	MaterialID id.ID
	Quantity   types.Quantity
}

func normalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return DefaultUnit
	}
	return unit
}

func (r CreateRequest) validate() error {
	if r.InitialStock.IsNegative() {
		return apperror.NewValidation("initial stock cannot be negative").WithDetail("field", "initialStock")
	}
	return nil
}
