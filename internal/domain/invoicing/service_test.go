package invoicing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/memory"
)

type fakeClient struct {
	drafts []invoicing.Draft
	ref    string
	err    error
}

func (c *fakeClient) CreateDraft(_ context.Context, d invoicing.Draft) (string, error) {
	c.drafts = append(c.drafts, d)
	return c.ref, c.err
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "ema"})
}

func newOrders(store *memory.Store) *workorder.Service {
	txm := store.TxManager()
	return workorder.NewService(workorder.Deps{
		Repo:      store.WorkOrders(),
		Reminders: store.Reminders(),
		Stock:     stock.NewService(store.Stock(), store.Materials(), txm, store),
		Numerator: store,
		Audit:     store,
		Publisher: store,
		TxManager: txm,
	})
}

func TestBuildDraft(t *testing.T) {
	date := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	order := &workorder.Detail{
		WorkOrder: workorder.WorkOrder{Number: "RN-42", OrderDate: date, Description: "Hitno"},
		Lines: []workorder.LineDetail{
			{Line: workorder.Line{Name: "Letak", Quantity: types.NewQuantity(1000), Price: types.MustMoney("0.05")}},
		},
		Procedures: []workorder.Procedure{
			{Name: "Dizajn", Description: "2 prijedloga", Quantity: types.NewQuantity(1), Price: types.MustMoney("50")},
			{Name: "Dostava", Quantity: types.NewQuantity(1), Price: types.MustMoney("10")},
		},
	}
	vat := decimal.NewFromInt(25)

	d := invoicing.BuildDraft(order, "C-9", vat)
	assert.Equal(t, "C-9", d.CustomerRef)
	assert.Equal(t, date, d.Date)
	assert.Equal(t, date.AddDate(0, 0, 30), d.DueDate)
	assert.Equal(t, "Kreiran iz radnog naloga: RN-42", d.DescriptionAbove)
	assert.Equal(t, "Hitno", d.DescriptionBelow)
	require.Len(t, d.Rows, 3)
	assert.Equal(t, "kom", d.Rows[0].Unit)
	assert.Equal(t, "Dizajn - 2 prijedloga", d.Rows[1].ItemName)
	assert.Equal(t, invoicing.ServiceUnit, d.Rows[1].Unit)
	assert.Equal(t, "Dostava", d.Rows[2].ItemName)
	assert.True(t, d.Rows[2].VATPercent.Equal(vat))

	deadline := date.AddDate(0, 0, 7)
	order.Deadline = &deadline
	d = invoicing.BuildDraft(order, "C-9", vat)
	assert.Equal(t, deadline, d.DueDate)
}

func TestSendOrder(t *testing.T) {
	store := memory.New()
	orders := newOrders(store)
	ctx := userCtx()
	client := &fakeClient{ref: "INV-100"}
	svc := invoicing.NewService(orders, store, client, decimal.NewFromInt(25))

	customer := "k-1"
	o, err := orders.Create(ctx, workorder.CreateRequest{
		Header: workorder.Header{CustomerID: &customer},
		Lines:  []workorder.LineInput{{Name: "Vizitke"}},
	})
	require.NoError(t, err)
	anonymous, err := orders.Create(ctx, workorder.CreateRequest{})
	require.NoError(t, err)

	_, err = svc.SendOrder(ctx, o.ID)
	assert.True(t, apperror.IsValidation(err), "customer has no invoicing id yet")
	_, err = svc.SendOrder(ctx, anonymous.ID)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, client.drafts)

	store.SetCustomerRef(customer, "MM-77")
	ref, err := svc.SendOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-100", ref)
	require.Len(t, client.drafts, 1)
	assert.Equal(t, "MM-77", client.drafts[0].CustomerRef)

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.InvoiceRef)
	assert.Equal(t, "INV-100", *got.InvoiceRef)
	assert.NotNil(t, got.InvoiceSentAt)
}

func TestSendOrder_ClientFailure(t *testing.T) {
	store := memory.New()
	orders := newOrders(store)
	ctx := userCtx()
	client := &fakeClient{err: errors.New("connection refused")}
	svc := invoicing.NewService(orders, store, client, decimal.NewFromInt(25))

	customer := "k-1"
	store.SetCustomerRef(customer, "MM-1")
	o, err := orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{CustomerID: &customer}})
	require.NoError(t, err)

	_, err = svc.SendOrder(ctx, o.ID)
	require.Error(t, err)
	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.InvoiceRef)

	_, err = invoicing.NewService(orders, store, nil, decimal.Zero).SendOrder(ctx, o.ID)
	assert.True(t, apperror.IsValidation(err))
}
