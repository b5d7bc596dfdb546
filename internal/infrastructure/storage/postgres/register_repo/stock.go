// Package register_repo provides the PostgreSQL material ledger and
// consumption store.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

const (
	ledgerTable       = "material_ledger"
	consumptionsTable = "material_consumptions"
	materialsTable    = "materials"
	ordersTable       = "work_orders"
	linesTable        = "work_order_lines"
)

var (
	materialColumns    = postgres.ExtractDBColumns[material.Material]()
	ledgerColumns      = postgres.ExtractDBColumns[stock.LedgerEntry]()
	consumptionColumns = postgres.ExtractDBColumns[stock.Consumption]()
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates the ledger repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{txm: txm, builder: postgres.Builder()}
}

// LockMaterial reads the material row FOR UPDATE.
func (r *StockRepo) LockMaterial(ctx context.Context, materialID id.ID) (*material.Material, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("lock material requires transaction context")
	}

	var m material.Material
	q := r.builder.Select(materialColumns...).From(materialsTable).
		Where(squirrel.Eq{"id": materialID}).
		Suffix("FOR UPDATE")
	if err := r.txm.Get(ctx, &m, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("material", materialID)
		}
		return nil, fmt.Errorf("lock material: %w", err)
	}
	return &m, nil
}

func (r *StockRepo) SetOnHand(ctx context.Context, materialID id.ID, onHand types.Quantity) error {
	q := r.builder.Update(materialsTable).
		Set("on_hand", onHand).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": materialID})
	n, err := r.txm.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("set on hand: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("material", materialID)
	}
	return nil
}

// AppendEntry inserts entry and fills its Seq from the sequence.
func (r *StockRepo) AppendEntry(ctx context.Context, entry *stock.LedgerEntry) error {
	q := r.builder.Insert(ledgerTable).
		SetMap(postgres.StructToMap(entry, "seq")).
		Suffix("RETURNING seq")
	if err := r.txm.Get(ctx, &entry.Seq, q); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (r *StockRepo) CreateConsumption(ctx context.Context, c *stock.Consumption) error {
	q := r.builder.Insert(consumptionsTable).SetMap(postgres.StructToMap(c))
	if _, err := r.txm.Exec(ctx, q); err != nil {
		return fmt.Errorf("insert consumption: %w", err)
	}
	return nil
}

func (r *StockRepo) GetConsumptionForUpdate(ctx context.Context, consumptionID id.ID) (*stock.Consumption, error) {
	var c stock.Consumption
	q := r.builder.Select(consumptionColumns...).From(consumptionsTable).
		Where(squirrel.Eq{"id": consumptionID}).
		Suffix("FOR UPDATE")
	if err := r.txm.Get(ctx, &c, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("consumption", consumptionID)
		}
		return nil, fmt.Errorf("get consumption: %w", err)
	}
	return &c, nil
}

func (r *StockRepo) MarkReversed(ctx context.Context, consumptionID id.ID, by string, at time.Time, cause stock.ReversalCause) error {
	q := r.builder.Update(consumptionsTable).
		Set("reversed", true).
		Set("reversed_by", by).
		Set("reversed_at", at).
		Set("reversal_cause", cause).
		Where(squirrel.Eq{"id": consumptionID})
	n, err := r.txm.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("mark reversed: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("consumption", consumptionID)
	}
	return nil
}

func (r *StockRepo) ListActiveByOrder(ctx context.Context, orderID id.ID) ([]stock.Consumption, error) {
	q := r.builder.Select(consumptionColumns...).From(consumptionsTable).
		Where(squirrel.Eq{"order_id": orderID, "reversed": false}).
		OrderBy("created_at", "id")

	var out []stock.Consumption
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list active consumptions: %w", err)
	}
	return out, nil
}

func (r *StockRepo) ListRestorable(ctx context.Context, orderID id.ID) ([]stock.Consumption, error) {
	cols := make([]string, len(consumptionColumns))
	for i, c := range consumptionColumns {
		cols[i] = "c." + c
	}
	q := r.builder.Select(cols...).From(consumptionsTable + " c").
		Where(squirrel.Eq{
			"c.order_id":       orderID,
			"c.reversed":       true,
			"c.reversal_cause": stock.CauseOrderDeleted,
		}).
		Where("NOT EXISTS (SELECT 1 FROM " + consumptionsTable + " x WHERE x.restored_from = c.id)").
		OrderBy("c.created_at", "c.id")

	var out []stock.Consumption
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list restorable consumptions: %w", err)
	}
	return out, nil
}

func (r *StockRepo) HasActiveConsumptions(ctx context.Context, orderID id.ID) (bool, error) {
	var exists bool
	q := r.builder.Select().Column(squirrel.Expr(
		"EXISTS (SELECT 1 FROM "+consumptionsTable+" WHERE order_id = ? AND NOT reversed)", orderID))
	if err := r.txm.Get(ctx, &exists, q); err != nil {
		return false, fmt.Errorf("check active consumptions: %w", err)
	}
	return exists, nil
}

// LockOrder takes the work_orders row lock. Bookings and reversals take it
// before LockMaterial, the same order the lifecycle controller uses.
func (r *StockRepo) LockOrder(ctx context.Context, orderID id.ID) error {
	if r.txm.GetTx(ctx) == nil {
		return fmt.Errorf("lock order requires transaction context")
	}

	var locked id.ID
	q := r.builder.Select("id").From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Suffix("FOR UPDATE")
	if err := r.txm.Get(ctx, &locked, q); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound("work order", orderID)
		}
		return fmt.Errorf("lock order: %w", err)
	}
	return nil
}

func (r *StockRepo) ConsumptionOrderID(ctx context.Context, consumptionID id.ID) (id.ID, error) {
	var orderID id.ID
	q := r.builder.Select("order_id").From(consumptionsTable).Where(squirrel.Eq{"id": consumptionID})
	if err := r.txm.Get(ctx, &orderID, q); err != nil {
		if pgxscan.NotFound(err) {
			return id.Nil(), apperror.NewNotFound("consumption", consumptionID)
		}
		return id.Nil(), fmt.Errorf("get consumption order: %w", err)
	}
	return orderID, nil
}

func (r *StockRepo) OrderRef(ctx context.Context, orderID id.ID, lineID *id.ID) (*stock.OrderRef, error) {
	var row struct {
		Number  string `db:"number"`
		Deleted bool   `db:"deleted"`
	}
	q := r.builder.Select("number", "deleted").From(ordersTable).Where(squirrel.Eq{"id": orderID})
	if err := r.txm.Get(ctx, &row, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("work order", orderID)
		}
		return nil, fmt.Errorf("get order ref: %w", err)
	}
	ref := &stock.OrderRef{OrderID: orderID, Number: row.Number, Deleted: row.Deleted}

	if lineID == nil {
		return ref, nil
	}
	var line struct {
		Name     string         `db:"name"`
		Quantity types.Quantity `db:"quantity"`
		Unit     string         `db:"unit"`
	}
	lq := r.builder.Select("name", "quantity", "unit").From(linesTable).Where(squirrel.Eq{"id": *lineID})
	if err := r.txm.Get(ctx, &line, lq); err != nil {
		if pgxscan.NotFound(err) {
			return ref, nil
		}
		return nil, fmt.Errorf("get order line: %w", err)
	}
	ref.LineName = &line.Name
	ref.LineQuantity = line.Quantity
	ref.LineUnit = line.Unit
	return ref, nil
}

func (r *StockRepo) SetOrderBooked(ctx context.Context, orderID id.ID, booked bool, at time.Time) error {
	n, err := r.txm.Exec(ctx, r.setBookedQuery(orderID, booked, at))
	if err != nil {
		return fmt.Errorf("set order booked: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("work order", orderID)
	}
	return nil
}

func (r *StockRepo) setBookedQuery(orderID id.ID, booked bool, at time.Time) squirrel.UpdateBuilder {
	q := r.builder.Update(ordersTable).Set("booked", booked)
	if booked {
		q = q.Set("booked_at", squirrel.Expr("COALESCE(booked_at, ?)", at))
	} else {
		q = q.Set("booked_at", nil)
	}
	return q.Where(squirrel.Eq{"id": orderID})
}

func (r *StockRepo) ListEntries(ctx context.Context, materialID id.ID) ([]stock.LedgerRow, error) {
	cols := make([]string, 0, len(ledgerColumns)+6)
	for _, c := range ledgerColumns {
		cols = append(cols, "e."+c)
	}
	cols = append(cols,
		"o.number AS order_number", "o.title AS order_title", "o.customer_name",
		"l.name AS line_name", "l.quantity AS line_quantity", "l.unit AS line_unit",
	)
	q := r.builder.Select(cols...).From(ledgerTable + " e").
		LeftJoin(ordersTable + " o ON o.id = e.order_id").
		LeftJoin(linesTable + " l ON l.id = e.line_id").
		Where(squirrel.Eq{"e.material_id": materialID}).
		OrderBy("e.created_at DESC", "e.seq DESC")

	var out []stock.LedgerRow
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return out, nil
}

func (r *StockRepo) ListConsumptionsByMaterial(ctx context.Context, materialID id.ID) ([]stock.ConsumptionRow, error) {
	return r.consumptionRows(ctx, squirrel.Eq{"c.material_id": materialID})
}

func (r *StockRepo) ListConsumptionsByOrder(ctx context.Context, orderID id.ID) ([]stock.ConsumptionRow, error) {
	return r.consumptionRows(ctx, squirrel.Eq{"c.order_id": orderID})
}

// consumptionRows returns matching consumptions newest first.
func (r *StockRepo) consumptionRows(ctx context.Context, where squirrel.Eq) ([]stock.ConsumptionRow, error) {
	cols := make([]string, 0, len(consumptionColumns)+6)
	for _, c := range consumptionColumns {
		cols = append(cols, "c."+c)
	}
	cols = append(cols,
		"m.name AS material_name", "m.unit AS material_unit",
		"o.number AS order_number", "o.title AS order_title", "o.customer_name",
		"l.name AS line_name",
	)
	q := r.builder.Select(cols...).From(consumptionsTable + " c").
		Join(materialsTable + " m ON m.id = c.material_id").
		LeftJoin(ordersTable + " o ON o.id = c.order_id").
		LeftJoin(linesTable + " l ON l.id = c.line_id").
		Where(where).
		OrderBy("c.created_at DESC", "c.id DESC")

	var out []stock.ConsumptionRow
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list consumptions: %w", err)
	}
	for i := range out {
		out[i].Value = out[i].Consumption.Value()
	}
	return out, nil
}
