// Package export renders reports as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

// XLSXContentType is the MIME type of the files produced here.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const ledgerSheet = "Kartica"

var ledgerHeader = []any{
	"Datum", "Vrsta", "Količina", "Stanje prije", "Stanje poslije",
	"Cijena", "Nalog", "Kupac", "Stavka", "Napomena", "Korisnik",
}

// LedgerXLSX renders a material's ledger, newest entry first as listed,
// under a title row naming the material.
func LedgerXLSX(m *material.Material, rows []stock.LedgerRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), ledgerSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := []any{fmt.Sprintf("%s (%s)", m.Name, m.Unit), "Stanje", m.OnHand.Float64()}
	if err := f.SetSheetRow(ledgerSheet, "A1", &title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(ledgerSheet, "A3", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	if err := f.SetRowStyle(ledgerSheet, 3, 3, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		price, _ := r.UnitPrice.Float64()
		line := ""
		if r.LineName != nil {
			line = *r.LineName
		}
		values := []any{
			r.CreatedAt.Format("2006-01-02 15:04"),
			string(r.Kind),
			r.Quantity.Float64(),
			r.BalanceBefore.Float64(),
			r.BalanceAfter.Float64(),
			price,
			deref(r.OrderNumber),
			deref(r.CustomerName),
			line,
			r.Note,
			r.CreatedBy,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ledgerSheet, "A", "A", 17); err != nil {
		return nil, fmt.Errorf("set width: %w", err)
	}
	if err := f.SetColWidth(ledgerSheet, "J", "J", 40); err != nil {
		return nil, fmt.Errorf("set width: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// LedgerFileName names the download for m.
func LedgerFileName(m *material.Material) string {
	return fmt.Sprintf("kartica_%s.xlsx", m.ID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
