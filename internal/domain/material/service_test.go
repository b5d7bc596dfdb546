package material_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/memory"
)

func newService() (*material.Service, *stock.Service) {
	store := memory.New()
	txm := store.TxManager()
	st := stock.NewService(store.Stock(), store.Materials(), txm, nil)
	return material.NewService(store.Materials(), txm, st), st
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "ana"})
}

func TestCreate_OpeningStock(t *testing.T) {
	svc, st := newService()
	ctx := userCtx()

	m, err := svc.Create(ctx, material.CreateRequest{
		Name:         " Papir 120g ",
		Price:        types.MustMoney("0.08"),
		MinStock:     types.NewQuantity(500),
		InitialStock: types.NewQuantity(200),
	})
	require.NoError(t, err)
	assert.Equal(t, "Papir 120g", m.Name)
	assert.Equal(t, material.DefaultUnit, m.Unit)
	assert.True(t, m.Active)
	assert.Equal(t, types.NewQuantity(200), m.OnHand)
	assert.True(t, m.LowStock())

	rows, err := st.LedgerFor(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stock.KindIn, rows[0].Kind)
	assert.Equal(t, types.Quantity(0), rows[0].BalanceBefore)
	assert.Equal(t, types.NewQuantity(200), rows[0].BalanceAfter)

	empty, err := svc.Create(ctx, material.CreateRequest{Name: "Spirala"})
	require.NoError(t, err)
	rows, err = st.LedgerFor(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := userCtx()

	tests := []struct {
		name string
		req  material.CreateRequest
	}{
		{"no name", material.CreateRequest{Name: " "}},
		{"negative price", material.CreateRequest{Name: "x", Price: types.MustMoney("-1")}},
		{"negative minimum", material.CreateRequest{Name: "x", MinStock: types.NewQuantity(-1)}},
		{"negative initial stock", material.CreateRequest{Name: "x", InitialStock: types.NewQuantity(-5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	_, err := svc.Create(context.Background(), material.CreateRequest{Name: "x"})
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestUpdate_KeepsOnHand(t *testing.T) {
	svc, _ := newService()
	ctx := userCtx()
	m, err := svc.Create(ctx, material.CreateRequest{Name: "Folija", InitialStock: types.NewQuantity(3)})
	require.NoError(t, err)

	got, err := svc.Update(ctx, m.ID, material.UpdateRequest{Name: "Folija mat", Unit: "m2", Price: types.MustMoney("4.2"), Category: "Folije"})
	require.NoError(t, err)
	assert.Equal(t, "m2", got.Unit)

	stored, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Folija mat", stored.Name)
	assert.Equal(t, types.NewQuantity(3), stored.OnHand)

	_, err = svc.Update(ctx, id.New(), material.UpdateRequest{Name: "x"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_ActiveOnly(t *testing.T) {
	svc, _ := newService()
	ctx := userCtx()
	b, err := svc.Create(ctx, material.CreateRequest{Name: "B", Category: "Papir"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, material.CreateRequest{Name: "A", Category: "Papir"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, material.CreateRequest{Name: "C", Category: "Boje"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, b.ID))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	var names []string
	for _, m := range all {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestArticleNorm(t *testing.T) {
	svc, _ := newService()
	ctx := userCtx()
	paper, err := svc.Create(ctx, material.CreateRequest{Name: "Papir", Unit: "list", Price: types.MustMoney("0.1")})
	require.NoError(t, err)
	toner, err := svc.Create(ctx, material.CreateRequest{Name: "Toner"})
	require.NoError(t, err)

	lines, err := svc.ReplaceArticleNorm(ctx, "ART-1", []material.NormInput{
		{MaterialID: paper.ID, Quantity: types.NewQuantity(2)},
		{MaterialID: toner.ID},
		{},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Papir", lines[0].MaterialName)
	assert.Equal(t, "list", lines[0].Unit)
	assert.Equal(t, types.NewQuantity(1), lines[1].Quantity, "zero quantity means one")

	_, err = svc.ReplaceArticleNorm(ctx, "ART-1", []material.NormInput{{MaterialID: id.New(), Quantity: types.NewQuantity(1)}})
	assert.True(t, apperror.IsNotFound(err))
	_, err = svc.ReplaceArticleNorm(ctx, "ART-1", []material.NormInput{{MaterialID: paper.ID, Quantity: types.NewQuantity(-1)}})
	assert.True(t, apperror.IsValidation(err))

	got, err := svc.ArticleNorm(ctx, "ART-1")
	require.NoError(t, err)
	assert.Len(t, got, 2, "failed replacements leave the norm unchanged")

	_, err = svc.ReplaceArticleNorm(ctx, "ART-1", nil)
	require.NoError(t, err)
	got, err = svc.ArticleNorm(ctx, "ART-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
