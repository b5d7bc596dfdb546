package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

func TestExtractDBColumns_Material(t *testing.T) {
	cols := ExtractDBColumns[material.Material]()

	assert.Equal(t, []string{
		"id", "name", "category", "unit", "price", "on_hand", "min_stock", "active", "created_at", "updated_at",
	}, cols)
}

func TestExtractDBColumns_SkipsJoinFields(t *testing.T) {
	cols := ExtractDBColumns[material.NormLine]("material_name", "unit", "price")

	assert.Equal(t, []string{"article_id", "material_id", "quantity"}, cols)
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[stock.ConsumptionRow]()

	assert.Contains(t, cols, "reversal_cause")
	assert.Contains(t, cols, "material_name")
	assert.NotContains(t, cols, "-")
	assert.Equal(t, "id", cols[0])
}

func TestStructToMap_Material(t *testing.T) {
	m := material.Material{
		ID:     id.New(),
		Name:   "Papir 80g",
		Unit:   "kg",
		Price:  types.MustMoney("1.25"),
		OnHand: types.NewQuantity(12),
		Active: true,
	}

	got := StructToMap(&m, "on_hand")

	assert.Equal(t, m.ID, got["id"])
	assert.Equal(t, "Papir 80g", got["name"])
	assert.Equal(t, true, got["active"])
	assert.NotContains(t, got, "on_hand")
	assert.Len(t, got, 9)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
