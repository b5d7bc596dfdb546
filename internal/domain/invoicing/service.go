package invoicing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

const defaultDueDays = 30

// Orders is the part of the lifecycle controller the hand-off uses.
type Orders interface {
	Get(ctx context.Context, orderID id.ID) (*workorder.Detail, error)
	MarkInvoiced(ctx context.Context, orderID id.ID, ref string) error
}

// Service sends work orders to the invoicing system.
type Service struct {
	orders    Orders
	customers CustomerRefs
	client    Client
	vat       decimal.Decimal
}

// NewService creates the hand-off service with the given VAT rate in percent.
func NewService(orders Orders, customers CustomerRefs, client Client, vatPercent decimal.Decimal) *Service {
	return &Service{orders: orders, customers: customers, client: client, vat: vatPercent}
}

// SendOrder creates a draft invoice for an order and stores the returned
// reference on it.
func (s *Service) SendOrder(ctx context.Context, orderID id.ID) (string, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return "", err
	}
	if s.client == nil {
		return "", apperror.NewValidation("invoicing is not configured")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.Deleted {
		return "", apperror.NewValidation("work order is deleted").WithDetail("order_id", orderID)
	}
	if order.CustomerID == nil {
		return "", apperror.NewValidation("work order has no customer").WithDetail("order_id", orderID)
	}
	customerRef, err := s.customers.CustomerRef(ctx, *order.CustomerID)
	if err != nil {
		return "", fmt.Errorf("customer invoicing ref: %w", err)
	}
	if customerRef == "" {
		return "", apperror.NewValidation("customer has no invoicing system id").
			WithDetail("customer_id", *order.CustomerID)
	}

	draft := BuildDraft(order, customerRef, s.vat)
	ref, err := s.client.CreateDraft(ctx, draft)
	if err != nil {
		return "", fmt.Errorf("create draft invoice: %w", err)
	}
	if err := s.orders.MarkInvoiced(ctx, orderID, ref); err != nil {
		return "", err
	}

	logger.Info(ctx, "draft invoice created", "order_id", orderID, "invoice_ref", ref)
	return ref, nil
}

// BuildDraft maps an order to a draft: lines become items, procedures
// become service items.
func BuildDraft(order *workorder.Detail, customerRef string, vat decimal.Decimal) Draft {
	date := order.OrderDate
	if date.IsZero() {
		date = time.Now().UTC()
	}
	due := date.AddDate(0, 0, defaultDueDays)
	if order.Deadline != nil {
		due = *order.Deadline
	}

	d := Draft{
		CustomerRef:      customerRef,
		Date:             date,
		DueDate:          due,
		DescriptionAbove: "Kreiran iz radnog naloga: " + order.Number,
		DescriptionBelow: order.Description,
	}
	for _, l := range order.Lines {
		unit := l.Unit
		if unit == "" {
			unit = material.DefaultUnit
		}
		d.Rows = append(d.Rows, Row{
			ItemName:   l.Name,
			Quantity:   l.Quantity,
			Unit:       unit,
			Price:      l.Price,
			VATPercent: vat,
		})
	}
	for _, p := range order.Procedures {
		name := p.Name
		if desc := strings.TrimSpace(p.Description); desc != "" {
			name += " - " + desc
		}
		d.Rows = append(d.Rows, Row{
			ItemName:   name,
			Quantity:   p.Quantity,
			Unit:       ServiceUnit,
			Price:      p.Price,
			VATPercent: vat,
		})
	}
	return d
}
