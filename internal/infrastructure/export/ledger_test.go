package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

func TestLedgerXLSX(t *testing.T) {
	m := &material.Material{ID: id.New(), Name: "Papir 80g", Unit: "kg", OnHand: types.NewQuantity(7)}
	order := "RN-5"
	rows := []stock.LedgerRow{
		{
			LedgerEntry: stock.LedgerEntry{
				Kind:          stock.KindOut,
				Quantity:      types.NewQuantity(-3),
				UnitPrice:     types.MustMoney("1.5"),
				BalanceBefore: types.NewQuantity(10),
				BalanceAfter:  types.NewQuantity(7),
				Note:          "RN-5 / Letak A5 (100 kom)",
				CreatedBy:     "marko",
				CreatedAt:     time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
			},
			OrderNumber: &order,
		},
	}

	data, err := LedgerXLSX(m, rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(ledgerSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Papir 80g (kg)", title)

	header, err := f.GetCellValue(ledgerSheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "Količina", header)

	got, err := f.GetRows(ledgerSheet)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "2026-05-04 09:30", got[3][0])
	assert.Equal(t, "OUT", got[3][1])
	assert.Equal(t, "-3", got[3][2])
	assert.Equal(t, "7", got[3][4])
	assert.Equal(t, "RN-5", got[3][6])
	assert.Equal(t, "RN-5 / Letak A5 (100 kom)", got[3][9])
}

func TestLedgerXLSX_Empty(t *testing.T) {
	m := &material.Material{ID: id.New(), Name: "Toner", Unit: "kom"}

	data, err := LedgerXLSX(m, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, LedgerFileName(m), m.ID.String())
}
