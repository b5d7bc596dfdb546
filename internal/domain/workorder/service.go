package workorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

const historyLimit = 100

// Service is the work order lifecycle controller. Every mutation runs in
// one transaction together with its stock bookings, audit entry and event.
type Service struct {
	repo      Repository
	reminders reminder.Repository
	stock     *stock.Service
	numbers   numerator.Generator
	audit     audit.Recorder
	publisher events.Publisher
	txManager tx.Manager
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Reminders reminder.Repository
	Stock     *stock.Service
	Numerator numerator.Generator
	Audit     audit.Recorder
	Publisher events.Publisher
	TxManager tx.Manager
}

// NewService creates the lifecycle controller.
func NewService(d Deps) *Service {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	return &Service{
		repo:      d.Repo,
		reminders: d.Reminders,
		stock:     d.Stock,
		numbers:   d.Numerator,
		audit:     d.Audit,
		publisher: d.Publisher,
		txManager: d.TxManager,
	}
}

// snapshot is the audited state of an order.
type snapshot struct {
	Order      *WorkOrder  `json:"order"`
	Lines      []Line      `json:"lines"`
	Procedures []Procedure `json:"procedures"`
}

// Create inserts an order with its lines and procedures. Materials and
// reminders in the payload are not booked or inserted.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*WorkOrder, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	req.Header.ApplyDefaults(now)

	order := &WorkOrder{
		ID:        id.New(),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyHeader(order, req.Header)
	lines, _ := buildLines(order.ID, req.Lines)
	procs := buildProcedures(order.ID, req.Procedures)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.assignNumber(ctx, req.Number)
		if err != nil {
			return err
		}
		order.Number = number

		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create work order: %w", err)
		}
		if err := s.repo.InsertLines(ctx, lines); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		if err := s.repo.ReplaceProcedures(ctx, order.ID, procs); err != nil {
			return fmt.Errorf("insert procedures: %w", err)
		}
		after := snapshot{Order: order, Lines: lines, Procedures: procs}
		if err := s.record(ctx, order.ID, audit.ActionCreate, map[string]any{"after": after}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderCreated, nil)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "work order created", "id", order.ID, "number", order.Number, "lines", len(lines))
	return order, nil
}

func (s *Service) assignNumber(ctx context.Context, requested string) (string, error) {
	if err := s.repo.LockNumbering(ctx); err != nil {
		return "", fmt.Errorf("lock numbering: %w", err)
	}
	number := strings.TrimSpace(requested)
	if number != "" {
		exists, err := s.repo.NumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check number: %w", err)
		}
		if exists {
			return "", apperror.NewDuplicate("work order", "number", number)
		}
		return number, nil
	}
	last, err := s.repo.MaxNumberSuffix(ctx, NumberPrefix)
	if err != nil {
		return "", fmt.Errorf("max order number: %w", err)
	}
	return NumberPrefix + strconv.FormatInt(last+1, 10), nil
}

// Update replaces header, lines and procedures in one transaction.
// Consumptions, ledger entries and reminders follow their line by
// position; children of positions that disappear are left orphaned.
// New materials are booked and new open reminders inserted; existing ones
// are never changed.
func (s *Service) Update(ctx context.Context, orderID id.ID, req UpdateRequest) (*WorkOrder, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	req.Header.ApplyDefaults(now)

	var order *WorkOrder
	var booked int
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Deleted {
			return apperror.NewValidation("deleted work order cannot be edited").WithDetail("order_id", orderID)
		}

		oldLines, err := s.repo.GetLines(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		oldProcs, err := s.repo.GetProcedures(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get procedures: %w", err)
		}
		before := snapshot{Order: cloneOrder(order), Lines: oldLines, Procedures: oldProcs}
		oldBySeq := make(map[int]id.ID, len(oldLines))
		for _, l := range oldLines {
			oldBySeq[l.SeqIndex] = l.ID
		}

		applyHeader(order, req.Header)
		order.UpdatedBy = &actor.UserID
		order.UpdatedAt = now
		if err := s.repo.UpdateHeader(ctx, order); err != nil {
			return fmt.Errorf("update header: %w", err)
		}

		if err := s.repo.DeleteLines(ctx, orderID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		lines, byPos := buildLines(orderID, req.Lines)
		if err := s.repo.InsertLines(ctx, lines); err != nil {
			return fmt.Errorf("insert lines: %w", err)
		}
		for _, l := range lines {
			if oldID, ok := oldBySeq[l.SeqIndex]; ok {
				if err := s.repo.RelinkLine(ctx, oldID, l.ID); err != nil {
					return fmt.Errorf("relink line %d: %w", l.SeqIndex, err)
				}
			}
		}

		for pos, in := range req.Lines {
			line, ok := byPos[pos]
			if !ok {
				continue
			}
			n, err := s.bookNewMaterials(ctx, orderID, line, in.Materials)
			if err != nil {
				return err
			}
			booked += n
			if err := s.insertNewReminders(ctx, actor.UserID, orderID, line, in.Reminders, now); err != nil {
				return err
			}
		}

		procs := buildProcedures(orderID, req.Procedures)
		if err := s.repo.ReplaceProcedures(ctx, orderID, procs); err != nil {
			return fmt.Errorf("replace procedures: %w", err)
		}

		after := snapshot{Order: order, Lines: lines, Procedures: procs}
		if err := s.record(ctx, orderID, audit.ActionUpdate, map[string]any{"before": before, "after": after}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderUpdated, map[string]any{"booked": booked})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "work order updated", "id", order.ID, "number", order.Number, "booked", booked)
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) bookNewMaterials(ctx context.Context, orderID id.ID, line *Line, inputs []MaterialInput) (int, error) {
	n := 0
	for _, m := range inputs {
		if m.ID != nil || id.IsNil(m.MaterialID) || !m.Quantity.IsPositive() {
			continue
		}
		lineID := line.ID
		_, _, err := s.stock.Book(ctx, stock.BookRequest{
			MaterialID: m.MaterialID,
			Quantity:   m.Quantity,
			UnitPrice:  m.UnitPrice,
			OrderID:    orderID,
			LineID:     &lineID,
		})
		if err != nil {
			return 0, fmt.Errorf("book material on line %d: %w", line.SeqIndex, err)
		}
		n++
	}
	return n, nil
}

func (s *Service) insertNewReminders(ctx context.Context, actor string, orderID id.ID, line *Line, inputs []ReminderInput, now time.Time) error {
	for _, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if in.ID != nil || in.Done || text == "" {
			continue
		}
		priority, ok := reminder.ParsePriority(in.Priority)
		if !ok {
			return apperror.NewValidation("priority must be high, medium or low").
				WithDetail("line", line.SeqIndex)
		}
		lineID := line.ID
		label := line.Label()
		r := &reminder.Reminder{
			ID:        id.New(),
			OrderID:   orderID,
			LineID:    &lineID,
			LineLabel: &label,
			Text:      text,
			Priority:  priority,
			DueDate:   in.DueDate,
			CreatedBy: actor,
			CreatedAt: now,
		}
		if err := s.reminders.Create(ctx, r); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return nil
}

// SoftDelete returns every active consumption to stock and marks the order
// deleted. It returns the number of reversed consumptions.
func (s *Service) SoftDelete(ctx context.Context, orderID id.ID) (int, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return 0, err
	}

	var reversed int
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Deleted {
			return apperror.NewValidation("work order is already deleted").WithDetail("order_id", orderID)
		}

		reversed, err = s.stock.ReverseOrder(ctx, orderID, stock.CauseOrderDeleted)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.repo.SetDeleted(ctx, orderID, true, &actor.UserID, &now); err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if err := s.record(ctx, orderID, audit.ActionDelete, map[string]any{"reversed": reversed}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderDeleted, map[string]any{"reversed": reversed})
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "work order deleted", "id", orderID, "reversed", reversed)
	return reversed, nil
}

// Restore undeletes an order and books again what its deletion reversed.
// Only administrators may restore. It returns the number of re-booked
// consumptions.
func (s *Service) Restore(ctx context.Context, orderID id.ID) (int, error) {
	if _, err := appctx.RequireAdmin(ctx, "restore deleted work orders"); err != nil {
		return 0, err
	}

	var rebooked int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Deleted {
			return apperror.NewValidation("work order is not deleted").WithDetail("order_id", orderID)
		}
		if err := s.repo.SetDeleted(ctx, orderID, false, nil, nil); err != nil {
			return fmt.Errorf("clear deleted: %w", err)
		}
		rebooked, err = s.stock.RebookOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.record(ctx, orderID, audit.ActionRestore, map[string]any{"rebooked": rebooked}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderRestored, map[string]any{"rebooked": rebooked})
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "work order restored", "id", orderID, "rebooked", rebooked)
	return rebooked, nil
}

// Unbook reverses every active consumption of an order that stays active.
func (s *Service) Unbook(ctx context.Context, orderID id.ID) (int, error) {
	var reversed int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Deleted {
			return apperror.NewValidation("work order is deleted").WithDetail("order_id", orderID)
		}
		reversed, err = s.stock.ReverseOrder(ctx, orderID, stock.CauseManual)
		return err
	})
	if err != nil {
		return 0, err
	}
	return reversed, nil
}

// IssueDelivery stamps the order with the next delivery note number of the
// current year.
func (s *Service) IssueDelivery(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var order *WorkOrder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Deleted {
			return apperror.NewValidation("work order is deleted").WithDetail("order_id", orderID)
		}
		if order.DeliveryIssued {
			return apperror.NewValidation("delivery note is already issued").
				WithDetail("delivery_number", deref(order.DeliveryNumber))
		}

		now := time.Now().UTC()
		number, err := s.numbers.GetNextNumber(ctx, numerator.DeliveryNoteConfig(), now)
		if err != nil {
			return err
		}
		if err := s.repo.SetDelivery(ctx, orderID, true, &number, &actor.UserID, &now); err != nil {
			return fmt.Errorf("stamp delivery: %w", err)
		}
		order.DeliveryIssued = true
		order.DeliveryNumber = &number
		order.DeliveryIssuedBy = &actor.UserID
		order.DeliveryIssuedAt = &now

		if err := s.record(ctx, orderID, audit.ActionDeliveryIssue, map[string]any{"number": number}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderDeliveryIssued, map[string]any{"deliveryNumber": number})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note issued", "id", orderID, "delivery_number", *order.DeliveryNumber)
	return order, nil
}

// RevokeDelivery clears the delivery stamp. The number stays on the order
// and is never handed out again.
func (s *Service) RevokeDelivery(ctx context.Context, orderID id.ID) (*WorkOrder, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return nil, err
	}

	var order *WorkOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.DeliveryIssued {
			return apperror.NewValidation("delivery note is not issued").WithDetail("order_id", orderID)
		}
		if err := s.repo.SetDelivery(ctx, orderID, false, order.DeliveryNumber, nil, nil); err != nil {
			return fmt.Errorf("revoke delivery: %w", err)
		}
		order.DeliveryIssued = false
		order.DeliveryIssuedBy = nil
		order.DeliveryIssuedAt = nil

		number := deref(order.DeliveryNumber)
		if err := s.record(ctx, orderID, audit.ActionDeliveryRevoke, map[string]any{"number": number}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderDeliveryRevoked, map[string]any{"deliveryNumber": number})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note revoked", "id", orderID)
	return order, nil
}

// ToggleProcedure sets a procedure's completion to done when given,
// otherwise flips it. The completion actor is doneBy when given, otherwise
// the caller.
func (s *Service) ToggleProcedure(ctx context.Context, procedureID id.ID, done *bool, doneBy *string) (*Procedure, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var p *Procedure
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.GetProcedure(ctx, procedureID)
		if err != nil {
			return err
		}
		next := !p.Done
		if done != nil {
			next = *done
		}
		if next {
			by := actor.UserID
			if doneBy != nil && strings.TrimSpace(*doneBy) != "" {
				by = strings.TrimSpace(*doneBy)
			}
			now := time.Now().UTC()
			p.Done, p.DoneBy, p.DoneAt = true, &by, &now
		} else {
			p.Done, p.DoneBy, p.DoneAt = false, nil, nil
		}
		return s.repo.UpdateProcedure(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkInvoiced stores the external invoice reference on an order.
func (s *Service) MarkInvoiced(ctx context.Context, orderID id.ID, ref string) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := s.repo.SetInvoice(ctx, orderID, ref, time.Now().UTC()); err != nil {
			return fmt.Errorf("store invoice ref: %w", err)
		}
		order.InvoiceRef = &ref
		if err := s.record(ctx, orderID, audit.ActionInvoiceSend, map[string]any{"invoiceRef": ref}); err != nil {
			return err
		}
		return s.publish(ctx, order, events.WorkOrderInvoiced, map[string]any{"invoiceRef": ref})
	})
}

// Get returns the full aggregate.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Detail, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	procs, err := s.repo.GetProcedures(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get procedures: %w", err)
	}
	consumptions, err := s.stock.ConsumptionsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	reminders, err := s.reminders.List(ctx, reminder.Filter{OrderID: &orderID})
	if err != nil {
		return nil, fmt.Errorf("get reminders: %w", err)
	}

	d := &Detail{
		WorkOrder:    *order,
		Lines:        make([]LineDetail, len(lines)),
		Procedures:   procs,
		Consumptions: consumptions,
		Reminders:    []reminder.Row{},
		Total:        Total(lines),
	}
	byLine := make(map[id.ID]*LineDetail, len(lines))
	for i, l := range lines {
		d.Lines[i] = LineDetail{Line: l, Materials: []stock.ConsumptionRow{}, Reminders: []reminder.Row{}}
		byLine[l.ID] = &d.Lines[i]
	}
	for _, c := range consumptions {
		if c.LineID == nil {
			continue
		}
		if ld, ok := byLine[*c.LineID]; ok {
			ld.Materials = append(ld.Materials, c)
		}
	}
	for _, r := range reminders {
		if r.LineID != nil {
			if ld, ok := byLine[*r.LineID]; ok {
				ld.Reminders = append(ld.Reminders, r)
				continue
			}
		}
		d.Reminders = append(d.Reminders, r)
	}
	return d, nil
}

// List returns order headers with lines and totals. Deleted orders are
// listed for administrators only.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	u, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		filter.IncludeDeleted = false
	}

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]id.ID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	lines, err := s.repo.GetLinesByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	out := make([]Summary, len(orders))
	for i := range orders {
		ls := lines[orders[i].ID]
		if ls == nil {
			ls = []Line{}
		}
		out[i] = Summary{WorkOrder: orders[i], Lines: ls, Total: Total(ls)}
	}
	return out, nil
}

// History returns the order's audit entries, newest first.
func (s *Service) History(ctx context.Context, orderID id.ID) ([]audit.Entry, error) {
	if _, err := s.repo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.audit.History(ctx, EntityType, orderID, historyLimit)
}

func (s *Service) record(ctx context.Context, orderID id.ID, action audit.Action, changes any) error {
	if s.audit == nil {
		return nil
	}
	entry, err := audit.NewEntry(ctx, EntityType, orderID, action, changes)
	if err != nil {
		return err
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, order *WorkOrder, eventType string, extra map[string]any) error {
	payload := map[string]any{
		"id":     order.ID,
		"number": order.Number,
		"actor":  appctx.GetUserID(ctx),
	}
	for k, v := range extra {
		payload[k] = v
	}
	err := s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateWorkOrder,
		AggregateID:   order.ID,
		Type:          eventType,
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func cloneOrder(o *WorkOrder) *WorkOrder {
	c := *o
	return &c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
