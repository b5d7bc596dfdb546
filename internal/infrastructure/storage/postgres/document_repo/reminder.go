package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

var reminderColumns = postgres.ExtractDBColumns[reminder.Reminder]()

// reminderOrder matches reminder.Less.
var reminderOrder = []string{
	"r.done",
	"CASE r.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END",
	"r.due_date NULLS LAST",
	"r.created_at DESC",
}

// ReminderRepo implements reminder.Repository.
type ReminderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reminder.Repository = (*ReminderRepo)(nil)

// NewReminderRepo creates a reminder repository.
func NewReminderRepo(txm *postgres.TxManager) *ReminderRepo {
	return &ReminderRepo{txm: txm, builder: postgres.Builder()}
}

func (r *ReminderRepo) Create(ctx context.Context, rem *reminder.Reminder) error {
	if _, err := r.txm.Exec(ctx, r.builder.Insert(remindersTable).SetMap(postgres.StructToMap(rem))); err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepo) GetByID(ctx context.Context, reminderID id.ID) (*reminder.Reminder, error) {
	var rem reminder.Reminder
	q := r.builder.Select(reminderColumns...).From(remindersTable).Where(squirrel.Eq{"id": reminderID})
	if err := r.txm.Get(ctx, &rem, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reminder", reminderID)
		}
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return &rem, nil
}

func (r *ReminderRepo) Update(ctx context.Context, rem *reminder.Reminder) error {
	n, err := r.txm.Exec(ctx, r.updateQuery(rem))
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("reminder", rem.ID)
	}
	return nil
}

func (r *ReminderRepo) updateQuery(rem *reminder.Reminder) squirrel.UpdateBuilder {
	return r.builder.Update(remindersTable).
		SetMap(postgres.StructToMap(rem, "id", "order_id", "created_by", "created_at")).
		Where(squirrel.Eq{"id": rem.ID})
}

func (r *ReminderRepo) Delete(ctx context.Context, reminderID id.ID) error {
	n, err := r.txm.Exec(ctx, r.builder.Delete(remindersTable).Where(squirrel.Eq{"id": reminderID}))
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("reminder", reminderID)
	}
	return nil
}

func (r *ReminderRepo) List(ctx context.Context, filter reminder.Filter) ([]reminder.Row, error) {
	cols := make([]string, 0, len(reminderColumns)+4)
	for _, c := range reminderColumns {
		cols = append(cols, "r."+c)
	}
	cols = append(cols,
		"o.number AS order_number", "o.title AS order_title", "o.customer_name",
		"COALESCE(r.line_label, l.name) AS line_name",
	)
	q := r.builder.Select(cols...).From(remindersTable + " r").
		LeftJoin(ordersTable + " o ON o.id = r.order_id").
		LeftJoin(linesTable + " l ON l.id = r.line_id").
		OrderBy(reminderOrder...)

	switch {
	case filter.LineID != nil:
		q = q.Where(squirrel.Eq{"r.line_id": *filter.LineID})
	case filter.OrderID != nil:
		q = q.Where(squirrel.Eq{"r.order_id": *filter.OrderID})
	}

	var out []reminder.Row
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return out, nil
}

func (r *ReminderRepo) OrderExists(ctx context.Context, orderID id.ID) error {
	var exists bool
	q := r.builder.Select().Column(squirrel.Expr(
		"EXISTS (SELECT 1 FROM "+ordersTable+" WHERE id = ?)", orderID))
	if err := r.txm.Get(ctx, &exists, q); err != nil {
		return fmt.Errorf("check work order: %w", err)
	}
	if !exists {
		return apperror.NewNotFound("work order", orderID)
	}
	return nil
}

// Line returns nil for a line that no longer exists.
func (r *ReminderRepo) Line(ctx context.Context, lineID id.ID) (*reminder.LineInfo, error) {
	var info reminder.LineInfo
	q := r.builder.Select("order_id", "name", "quantity", "unit").From(linesTable).
		Where(squirrel.Eq{"id": lineID})
	if err := r.txm.Get(ctx, &info, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order line: %w", err)
	}
	return &info, nil
}
