package workorder_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/memory"
)

type fixture struct {
	store     *memory.Store
	orders    *workorder.Service
	stock     *stock.Service
	materials *material.Service
}

func newFixture() *fixture {
	store := memory.New()
	txm := store.TxManager()
	st := stock.NewService(store.Stock(), store.Materials(), txm, store)
	return &fixture{
		store: store,
		orders: workorder.NewService(workorder.Deps{
			Repo:      store.WorkOrders(),
			Reminders: store.Reminders(),
			Stock:     st,
			Numerator: store,
			Audit:     store,
			Publisher: store,
			TxManager: txm,
		}),
		stock:     st,
		materials: material.NewService(store.Materials(), txm, st),
	}
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "ivana"})
}

func adminCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "admin", Roles: []string{appctx.RoleAdmin}})
}

func qty(n int64) *types.Quantity {
	q := types.NewQuantity(n)
	return &q
}

func (f *fixture) material(t *testing.T, name string, initial int64) *material.Material {
	t.Helper()
	m, err := f.materials.Create(userCtx(), material.CreateRequest{
		Name:         name,
		Price:        types.MustMoney("2"),
		InitialStock: types.NewQuantity(initial),
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) onHand(t *testing.T, materialID id.ID) types.Quantity {
	t.Helper()
	m, err := f.materials.Get(userCtx(), materialID)
	require.NoError(t, err)
	return m.OnHand
}

func lineInputs(names ...string) []workorder.LineInput {
	out := make([]workorder.LineInput, len(names))
	for i, n := range names {
		out[i] = workorder.LineInput{Name: n, Quantity: qty(int64(10 * (i + 1))), Price: types.MustMoney("1.5")}
	}
	return out
}

func TestCreate_Numbering(t *testing.T) {
	f := newFixture()
	ctx := userCtx()

	first, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Title: "Prvi"}})
	require.NoError(t, err)
	second, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Title: "Drugi"}})
	require.NoError(t, err)
	assert.Equal(t, "RN-1", first.Number)
	assert.Equal(t, "RN-2", second.Number)

	_, err = f.orders.Create(ctx, workorder.CreateRequest{Number: "RN-10"})
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, workorder.CreateRequest{Number: "STARI-7"})
	require.NoError(t, err)

	next, err := f.orders.Create(ctx, workorder.CreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "RN-11", next.Number, "gaps are kept, other prefixes ignored")

	_, err = f.orders.Create(ctx, workorder.CreateRequest{Number: "RN-10"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.orders.Create(context.Background(), workorder.CreateRequest{})
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	paper := f.material(t, "Papir", 10)

	o, err := f.orders.Create(ctx, workorder.CreateRequest{
		Header: workorder.Header{CustomerName: "  Tiskara d.o.o. "},
		Lines: []workorder.LineInput{
			{Name: "Letak", Materials: []workorder.MaterialInput{{MaterialID: paper.ID, Quantity: types.NewQuantity(3)}}},
			{},
			{Name: "Plakat", Quantity: qty(2), Unit: "m2"},
		},
		Procedures: []workorder.ProcedureInput{{Name: "Rezanje"}, {Description: "bez naziva"}},
	})
	require.NoError(t, err)
	assert.Equal(t, workorder.DefaultStatus, o.Status)
	assert.Equal(t, "Tiskara d.o.o.", o.CustomerName)
	assert.False(t, o.OrderDate.IsZero())
	assert.False(t, o.Booked)

	d, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, 0, d.Lines[0].SeqIndex)
	assert.Equal(t, "kom", d.Lines[0].Unit)
	assert.Equal(t, types.NewQuantity(1), d.Lines[0].Quantity)
	assert.Equal(t, 2, d.Lines[1].SeqIndex, "skipped lines keep their position")
	assert.Equal(t, "m2", d.Lines[1].Unit)
	require.Len(t, d.Procedures, 1)
	assert.Equal(t, types.NewQuantity(1), d.Procedures[0].Quantity)

	assert.Empty(t, d.Consumptions, "create never books")
	assert.Equal(t, types.NewQuantity(10), f.onHand(t, paper.ID))
}

func TestUpdate_RelinkAndOrphan(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	paper := f.material(t, "Papir", 10)

	o, err := f.orders.Create(ctx, workorder.CreateRequest{Lines: lineInputs("A", "B", "C")})
	require.NoError(t, err)

	// Book on B and C, add a reminder on B.
	lines := lineInputs("A", "B", "C")
	lines[1].Materials = []workorder.MaterialInput{{MaterialID: paper.ID, Quantity: types.NewQuantity(2)}}
	lines[1].Reminders = []workorder.ReminderInput{{Text: "Provjeriti boju", Priority: "high"}, {Text: "Gotovo", Done: true}}
	lines[2].Materials = []workorder.MaterialInput{{MaterialID: paper.ID, Quantity: types.NewQuantity(1)}}
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(7), f.onHand(t, paper.ID))

	d, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, d.Lines, 3)
	require.Len(t, d.Lines[1].Materials, 1)
	require.Len(t, d.Lines[1].Reminders, 1)
	assert.Equal(t, "B (20 kom)", *d.Lines[1].Reminders[0].LineName)
	assert.True(t, d.Booked)

	// Resend the existing consumption with its id: it must not book again.
	existing := d.Lines[1].Materials[0].ID
	edited := lineInputs("A", "B2")
	edited[1].Materials = []workorder.MaterialInput{{ID: &existing, MaterialID: paper.ID, Quantity: types.NewQuantity(2)}}
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Lines: edited})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(7), f.onHand(t, paper.ID))

	d, err = f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, "B2", d.Lines[1].Name)
	require.Len(t, d.Lines[1].Materials, 1, "consumption follows its position")
	assert.Equal(t, existing, d.Lines[1].Materials[0].ID)
	require.Len(t, d.Lines[1].Reminders, 1)
	assert.Equal(t, "B (20 kom)", *d.Lines[1].Reminders[0].LineName, "label snapshot survives")

	// C vanished: its consumption is orphaned but still listed on the order.
	assert.Len(t, d.Consumptions, 2)
	var orphan *stock.ConsumptionRow
	for i := range d.Consumptions {
		if d.Consumptions[i].ID != existing {
			orphan = &d.Consumptions[i]
		}
	}
	require.NotNil(t, orphan)
	assert.Nil(t, orphan.LineName)
	assert.False(t, orphan.Reversed)

	// Ledger entries were relinked too.
	ledger, err := f.stock.LedgerFor(ctx, paper.ID)
	require.NoError(t, err)
	var relinked int
	for _, e := range ledger {
		if e.LineID != nil && *e.LineID == d.Lines[1].ID {
			relinked++
		}
	}
	assert.Equal(t, 1, relinked)
}

func TestUpdate_RollsBackOnBookingFailure(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	paper := f.material(t, "Papir", 10)
	o, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Title: "Stari"}, Lines: lineInputs("A")})
	require.NoError(t, err)

	lines := lineInputs("A")
	lines[0].Materials = []workorder.MaterialInput{
		{MaterialID: paper.ID, Quantity: types.NewQuantity(2)},
		{MaterialID: id.New(), Quantity: types.NewQuantity(1)},
	}
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Header: workorder.Header{Title: "Novi"}, Lines: lines})
	require.Error(t, err)

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stari", got.Title)
	assert.Empty(t, got.Consumptions)
	assert.Equal(t, types.NewQuantity(10), f.onHand(t, paper.ID))
}

func TestSoftDeleteRestore(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	paper := f.material(t, "Papir", 10)
	ink := f.material(t, "Boja", 5)

	o, err := f.orders.Create(ctx, workorder.CreateRequest{Lines: lineInputs("Letak")})
	require.NoError(t, err)
	lines := lineInputs("Letak")
	lines[0].Materials = []workorder.MaterialInput{
		{MaterialID: paper.ID, Quantity: types.NewQuantity(3)},
		{MaterialID: ink.ID, Quantity: types.NewQuantity(1)},
	}
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Lines: lines})
	require.NoError(t, err)

	ledgerLen := func(m id.ID) int {
		rows, err := f.stock.LedgerFor(ctx, m)
		require.NoError(t, err)
		return len(rows)
	}
	before := ledgerLen(paper.ID) + ledgerLen(ink.ID)

	n, err := f.orders.SoftDelete(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, types.NewQuantity(10), f.onHand(t, paper.ID))
	assert.Equal(t, types.NewQuantity(5), f.onHand(t, ink.ID))

	_, err = f.orders.SoftDelete(ctx, o.ID)
	assert.True(t, apperror.IsValidation(err))
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Lines: lineInputs("X")})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.orders.Restore(ctx, o.ID)
	assert.True(t, apperror.IsForbidden(err))

	n, err = f.orders.Restore(adminCtx(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, types.NewQuantity(7), f.onHand(t, paper.ID))
	assert.Equal(t, types.NewQuantity(4), f.onHand(t, ink.ID))
	assert.Equal(t, before+4, ledgerLen(paper.ID)+ledgerLen(ink.ID))

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.Deleted)
	assert.Nil(t, got.DeletedBy)
	assert.True(t, got.Booked)
	require.Len(t, got.Lines[0].Materials, 4)

	_, err = f.orders.Restore(adminCtx(), o.ID)
	assert.True(t, apperror.IsValidation(err))

	history, err := f.orders.History(ctx, o.ID)
	require.NoError(t, err)
	var actions []audit.Action
	for _, h := range history {
		actions = append(actions, h.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionRestore, audit.ActionDelete, audit.ActionUpdate, audit.ActionCreate}, actions)
}

func TestUnbook(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	paper := f.material(t, "Papir", 10)
	o, err := f.orders.Create(ctx, workorder.CreateRequest{Lines: lineInputs("A")})
	require.NoError(t, err)
	lines := lineInputs("A")
	lines[0].Materials = []workorder.MaterialInput{{MaterialID: paper.ID, Quantity: types.NewQuantity(4)}}
	_, err = f.orders.Update(ctx, o.ID, workorder.UpdateRequest{Lines: lines})
	require.NoError(t, err)

	n, err := f.orders.Unbook(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, types.NewQuantity(10), f.onHand(t, paper.ID))

	got, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.Booked)
	assert.False(t, got.Deleted)
}

func TestDelivery(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	year := time.Now().UTC().Year()

	a, err := f.orders.Create(ctx, workorder.CreateRequest{})
	require.NoError(t, err)
	b, err := f.orders.Create(ctx, workorder.CreateRequest{})
	require.NoError(t, err)

	_, err = f.orders.RevokeDelivery(ctx, a.ID)
	assert.True(t, apperror.IsValidation(err))

	issued, err := f.orders.IssueDelivery(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("OTP-%d-001", year), *issued.DeliveryNumber)
	assert.Equal(t, "ivana", *issued.DeliveryIssuedBy)

	_, err = f.orders.IssueDelivery(ctx, a.ID)
	assert.True(t, apperror.IsValidation(err))

	issued, err = f.orders.IssueDelivery(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("OTP-%d-002", year), *issued.DeliveryNumber)

	revoked, err := f.orders.RevokeDelivery(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, revoked.DeliveryIssued)
	assert.Nil(t, revoked.DeliveryIssuedBy)
	assert.Equal(t, fmt.Sprintf("OTP-%d-001", year), *revoked.DeliveryNumber, "number is kept")

	reissued, err := f.orders.IssueDelivery(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("OTP-%d-003", year), *reissued.DeliveryNumber, "numbers are never reused")

	_, err = f.orders.SoftDelete(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.orders.RevokeDelivery(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.orders.IssueDelivery(ctx, b.ID)
	assert.True(t, apperror.IsValidation(err))
}

func TestToggleProcedure(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	o, err := f.orders.Create(ctx, workorder.CreateRequest{
		Procedures: []workorder.ProcedureInput{{Name: "Plastifikacija", Price: types.MustMoney("12")}},
	})
	require.NoError(t, err)
	d, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	procID := d.Procedures[0].ID

	p, err := f.orders.ToggleProcedure(ctx, procID, nil, nil)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, "ivana", *p.DoneBy)

	p, err = f.orders.ToggleProcedure(ctx, procID, nil, nil)
	require.NoError(t, err)
	assert.False(t, p.Done)
	assert.Nil(t, p.DoneBy)
	assert.Nil(t, p.DoneAt)

	done, who := true, "Petra"
	p, err = f.orders.ToggleProcedure(ctx, procID, &done, &who)
	require.NoError(t, err)
	assert.True(t, p.Done)
	assert.Equal(t, "Petra", *p.DoneBy)

	p, err = f.orders.ToggleProcedure(ctx, procID, &done, nil)
	require.NoError(t, err)
	assert.True(t, p.Done, "explicit done is not a flip")

	_, err = f.orders.ToggleProcedure(ctx, id.New(), nil, nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestList(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	day := func(d int) *time.Time {
		v := time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	old, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Date: day(1), Title: "Vizitke"}, Lines: lineInputs("A", "B")})
	require.NoError(t, err)
	recent, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Date: day(5), Title: "Plakati"}})
	require.NoError(t, err)
	gone, err := f.orders.Create(ctx, workorder.CreateRequest{Header: workorder.Header{Date: day(3)}})
	require.NoError(t, err)
	_, err = f.orders.SoftDelete(ctx, gone.ID)
	require.NoError(t, err)

	list, err := f.orders.List(ctx, workorder.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, list, 2, "deleted orders are hidden from non-admins")
	assert.Equal(t, recent.ID, list[0].ID)
	assert.Equal(t, old.ID, list[1].ID)
	// 10*1.5 + 20*1.5
	assert.True(t, list[1].Total.Equal(types.MustMoney("45")), "got %s", list[1].Total)
	assert.NotNil(t, list[0].Lines)

	list, err = f.orders.List(adminCtx(), workorder.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = f.orders.List(ctx, workorder.ListFilter{Search: "vizit"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, old.ID, list[0].ID)
}

func TestGet_Reminders(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	o, err := f.orders.Create(ctx, workorder.CreateRequest{Lines: lineInputs("A")})
	require.NoError(t, err)
	d, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)

	reminders := reminder.NewService(f.store.Reminders(), f.store.TxManager())
	_, err = reminders.Create(ctx, reminder.CreateRequest{OrderID: o.ID, Text: "Nazvati kupca"})
	require.NoError(t, err)
	_, err = reminders.Create(ctx, reminder.CreateRequest{OrderID: o.ID, LineID: &d.Lines[0].ID, Text: "Probni otisak"})
	require.NoError(t, err)

	d, err = f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, d.Reminders, 1)
	assert.Equal(t, "Nazvati kupca", d.Reminders[0].Text)
	require.Len(t, d.Lines[0].Reminders, 1)
	assert.Equal(t, "Probni otisak", d.Lines[0].Reminders[0].Text)
}

func TestEvents(t *testing.T) {
	f := newFixture()
	ctx := userCtx()
	o, err := f.orders.Create(ctx, workorder.CreateRequest{})
	require.NoError(t, err)
	_, err = f.orders.IssueDelivery(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.orders.SoftDelete(ctx, o.ID)
	require.NoError(t, err)

	var got []string
	for _, e := range f.store.Events() {
		if e.AggregateType == events.AggregateWorkOrder {
			got = append(got, e.Type)
		}
	}
	assert.Equal(t, []string{events.WorkOrderCreated, events.WorkOrderDeliveryIssued, events.WorkOrderDeleted}, got)
}
