// Package document_repo provides PostgreSQL repositories for work orders
// and the reminders attached to them.
package document_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

const (
	ordersTable       = "work_orders"
	linesTable        = "work_order_lines"
	proceduresTable   = "work_order_procedures"
	consumptionsTable = "material_consumptions"
	ledgerTable       = "material_ledger"
	remindersTable    = "reminders"
)

// numberingLockKey is the advisory lock key guarding order number
// allocation.
const numberingLockKey int64 = 0x524e2d4e554d // "RN-NUM"

var (
	orderColumns     = postgres.ExtractDBColumns[workorder.WorkOrder]()
	lineColumns      = postgres.ExtractDBColumns[workorder.Line]()
	procedureColumns = postgres.ExtractDBColumns[workorder.Procedure]()
)

// WorkOrderRepo implements workorder.Repository.
type WorkOrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ workorder.Repository = (*WorkOrderRepo)(nil)

// NewWorkOrderRepo creates a work order repository.
func NewWorkOrderRepo(txm *postgres.TxManager) *WorkOrderRepo {
	return &WorkOrderRepo{txm: txm, builder: postgres.Builder()}
}

func (r *WorkOrderRepo) LockNumbering(ctx context.Context) error {
	return r.txm.AdvisoryXactLock(ctx, numberingLockKey)
}

func (r *WorkOrderRepo) MaxNumberSuffix(ctx context.Context, prefix string) (int64, error) {
	var last int64
	q := r.builder.Select().
		Column(squirrel.Expr("COALESCE(MAX(substring(number FROM char_length(?) + 1)::bigint), 0)", prefix)).
		From(ordersTable).
		Where(squirrel.Expr("starts_with(number, ?)", prefix)).
		Where(squirrel.Expr("substring(number FROM char_length(?) + 1) ~ '^[0-9]{1,18}$'", prefix))
	if err := r.txm.Get(ctx, &last, q); err != nil {
		return 0, fmt.Errorf("max order number: %w", err)
	}
	return last, nil
}

func (r *WorkOrderRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	q := r.builder.Select().Column(squirrel.Expr(
		"EXISTS (SELECT 1 FROM "+ordersTable+" WHERE number = ?)", number))
	if err := r.txm.Get(ctx, &exists, q); err != nil {
		return false, fmt.Errorf("check order number: %w", err)
	}
	return exists, nil
}

func (r *WorkOrderRepo) Create(ctx context.Context, o *workorder.WorkOrder) error {
	q := r.builder.Insert(ordersTable).SetMap(postgres.StructToMap(o))
	if _, err := r.txm.Exec(ctx, q); err != nil {
		return fmt.Errorf("insert work order: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*workorder.WorkOrder, error) {
	return r.get(ctx, orderID, "")
}

func (r *WorkOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*workorder.WorkOrder, error) {
	return r.get(ctx, orderID, "FOR UPDATE")
}

func (r *WorkOrderRepo) get(ctx context.Context, orderID id.ID, suffix string) (*workorder.WorkOrder, error) {
	var o workorder.WorkOrder
	q := r.builder.Select(orderColumns...).From(ordersTable).Where(squirrel.Eq{"id": orderID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	if err := r.txm.Get(ctx, &o, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("work order", orderID)
		}
		return nil, fmt.Errorf("get work order: %w", err)
	}
	return &o, nil
}

func (r *WorkOrderRepo) List(ctx context.Context, filter workorder.ListFilter) ([]workorder.WorkOrder, error) {
	q := r.builder.Select(orderColumns...).From(ordersTable).
		OrderBy("order_date DESC", "created_at DESC")

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deleted": false})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"customer_name": pattern},
		})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	var out []workorder.WorkOrder
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *WorkOrderRepo) update(ctx context.Context, orderID id.ID, set map[string]any) error {
	n, err := r.txm.Exec(ctx, r.updateQuery(orderID, set))
	if err != nil {
		return fmt.Errorf("update work order: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("work order", orderID)
	}
	return nil
}

func (r *WorkOrderRepo) updateQuery(orderID id.ID, set map[string]any) squirrel.UpdateBuilder {
	return r.builder.Update(ordersTable).SetMap(set).Where(squirrel.Eq{"id": orderID})
}

// UpdateHeader writes the editable header fields only.
func (r *WorkOrderRepo) UpdateHeader(ctx context.Context, o *workorder.WorkOrder) error {
	return r.update(ctx, o.ID, headerSet(o))
}

func headerSet(o *workorder.WorkOrder) map[string]any {
	return map[string]any{
		"order_date":     o.OrderDate,
		"deadline":       o.Deadline,
		"customer_id":    o.CustomerID,
		"customer_name":  o.CustomerName,
		"contact_person": o.ContactPerson,
		"phone":          o.Phone,
		"email":          o.Email,
		"title":          o.Title,
		"description":    o.Description,
		"invoice_number": o.InvoiceNumber,
		"status":         o.Status,
		"updated_by":     o.UpdatedBy,
		"updated_at":     o.UpdatedAt,
	}
}

func (r *WorkOrderRepo) SetDeleted(ctx context.Context, orderID id.ID, deleted bool, by *string, at *time.Time) error {
	return r.update(ctx, orderID, map[string]any{
		"deleted":    deleted,
		"deleted_by": by,
		"deleted_at": at,
	})
}

func (r *WorkOrderRepo) SetDelivery(ctx context.Context, orderID id.ID, issued bool, number *string, by *string, at *time.Time) error {
	return r.update(ctx, orderID, map[string]any{
		"delivery_issued":    issued,
		"delivery_number":    number,
		"delivery_issued_by": by,
		"delivery_issued_at": at,
	})
}

func (r *WorkOrderRepo) SetInvoice(ctx context.Context, orderID id.ID, ref string, at time.Time) error {
	return r.update(ctx, orderID, map[string]any{
		"invoice_ref":     ref,
		"invoice_sent_at": at,
	})
}

func (r *WorkOrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]workorder.Line, error) {
	byOrder, err := r.GetLinesByOrders(ctx, []id.ID{orderID})
	if err != nil {
		return nil, err
	}
	return byOrder[orderID], nil
}

func (r *WorkOrderRepo) GetLinesByOrders(ctx context.Context, orderIDs []id.ID) (map[id.ID][]workorder.Line, error) {
	out := make(map[id.ID][]workorder.Line, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	q := r.builder.Select(lineColumns...).From(linesTable).
		Where(squirrel.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "seq_index")

	var lines []workorder.Line
	if err := r.txm.Select(ctx, &lines, q); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	for _, l := range lines {
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, nil
}

// InsertLines copies lines in with COPY.
func (r *WorkOrderRepo) InsertLines(ctx context.Context, lines []workorder.Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		procs := l.Procedures
		if procs == nil {
			procs = []workorder.AssignedProcedure{}
		}
		rows = append(rows, []any{
			l.ID, l.OrderID, l.ArticleID, l.Name, l.Quantity, l.Unit, l.Price,
			l.Format, l.Description, l.Note, l.SeqIndex, procs,
		})
	}
	if _, err := r.txm.CopyRows(ctx, linesTable, lineColumns, rows); err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) DeleteLines(ctx context.Context, orderID id.ID) error {
	if _, err := r.txm.Exec(ctx, r.builder.Delete(linesTable).Where(squirrel.Eq{"order_id": orderID})); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	return nil
}

// RelinkLine moves every reference to fromLineID over to toLineID in one
// round-trip.
func (r *WorkOrderRepo) RelinkLine(ctx context.Context, fromLineID, toLineID id.ID) error {
	var queries []postgres.BatchQuery
	for _, table := range []string{consumptionsTable, ledgerTable, remindersTable} {
		sql, args, err := r.builder.Update(table).
			Set("line_id", toLineID).
			Where(squirrel.Eq{"line_id": fromLineID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build relink: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	if err := r.txm.ExecBatch(ctx, queries); err != nil {
		return fmt.Errorf("relink line: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) GetProcedures(ctx context.Context, orderID id.ID) ([]workorder.Procedure, error) {
	q := r.builder.Select(procedureColumns...).From(proceduresTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("position")

	var out []workorder.Procedure
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("get order procedures: %w", err)
	}
	return out, nil
}

func (r *WorkOrderRepo) ReplaceProcedures(ctx context.Context, orderID id.ID, procs []workorder.Procedure) error {
	if _, err := r.txm.Exec(ctx, r.builder.Delete(proceduresTable).Where(squirrel.Eq{"order_id": orderID})); err != nil {
		return fmt.Errorf("delete order procedures: %w", err)
	}
	if len(procs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, []any{
			p.ID, p.OrderID, p.ProcedureID, p.Name, p.Description, p.Quantity, p.Price,
			p.DurationMinutes, p.Position, p.Done, p.DoneBy, p.DoneAt,
		})
	}
	if _, err := r.txm.CopyRows(ctx, proceduresTable, procedureColumns, rows); err != nil {
		return fmt.Errorf("insert order procedures: %w", err)
	}
	return nil
}

func (r *WorkOrderRepo) GetProcedure(ctx context.Context, procedureID id.ID) (*workorder.Procedure, error) {
	var p workorder.Procedure
	q := r.builder.Select(procedureColumns...).From(proceduresTable).Where(squirrel.Eq{"id": procedureID})
	if err := r.txm.Get(ctx, &p, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order procedure", procedureID)
		}
		return nil, fmt.Errorf("get order procedure: %w", err)
	}
	return &p, nil
}

func (r *WorkOrderRepo) UpdateProcedure(ctx context.Context, p *workorder.Procedure) error {
	n, err := r.txm.Exec(ctx, r.updateProcedureQuery(p))
	if err != nil {
		return fmt.Errorf("update order procedure: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("order procedure", p.ID)
	}
	return nil
}

func (r *WorkOrderRepo) updateProcedureQuery(p *workorder.Procedure) squirrel.UpdateBuilder {
	return r.builder.Update(proceduresTable).
		SetMap(postgres.StructToMap(p, "id", "order_id")).
		Where(squirrel.Eq{"id": p.ID})
}
