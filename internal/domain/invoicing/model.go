// Package invoicing hands finished work orders to the external invoicing
// system as draft invoices.
package invoicing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// ServiceUnit is the unit of measure used for procedure rows.
const ServiceUnit = "usluga"

// Row is one invoice item.
type Row struct {
	ItemName   string
	Quantity   types.Quantity
	Unit       string
	Price      types.Money
	VATPercent decimal.Decimal
}

// Draft is an invoice prepared from a work order.
type Draft struct {
	CustomerRef      string
	Date             time.Time
	DueDate          time.Time
	DescriptionAbove string
	DescriptionBelow string
	Rows             []Row
}

// Client creates drafts in the external system and returns their
// reference. It is called once per hand-off, without retries.
type Client interface {
	CreateDraft(ctx context.Context, draft Draft) (string, error)
}

// CustomerRefs maps catalog customers to their id in the invoicing system.
type CustomerRefs interface {
	// CustomerRef returns "" when the customer has no invoicing id.
	CustomerRef(ctx context.Context, customerID string) (string, error)
}
