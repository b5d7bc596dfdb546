package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// Note prefixes for entries that return stock.
const (
	notePrefixStorno  = "Storno"
	notePrefixDeleted = "Brisanje naloga"
	notePrefixRestore = "Vraćanje naloga"
	noteOpeningStock  = "Početno stanje"
)

// BookRequest describes material consumed by a work order.
type BookRequest struct {
	MaterialID id.ID
	Quantity   types.Quantity
	// UnitPrice overrides the catalog price when set and positive.
	UnitPrice *types.Money
	OrderID   id.ID
	LineID    *id.ID
}

// AdjustRequest describes a ledger entry not tied to an order.
type AdjustRequest struct {
	MaterialID id.ID
	Quantity   types.Quantity
	Kind       Kind
	Note       string
}

// Service is the booking engine. Each operation is one transaction; when
// called inside an existing transaction it joins it.
type Service struct {
	repo      Repository
	materials material.Repository
	txManager tx.Manager
	publisher events.Publisher
	observer  Observer
}

var _ material.OpeningStockPoster = (*Service)(nil)

// NewService creates a booking engine. publisher may be nil.
func NewService(repo Repository, materials material.Repository, txManager tx.Manager, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		repo:      repo,
		materials: materials,
		txManager: txManager,
		publisher: publisher,
	}
}

// SetObserver registers the ledger append observer.
func (s *Service) SetObserver(o Observer) {
	s.observer = o
}

// Book consumes material for a work order: appends an OUT entry, lowers
// on-hand (it may go negative), records the consumption and marks the
// order booked. The returned entry's BalanceAfter is the on-hand right
// after this booking.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Consumption, *LedgerEntry, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, nil, err
	}

	var c *Consumption
	var entry *LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ref, err := s.bookableOrder(ctx, req.OrderID, req.LineID)
		if err != nil {
			return err
		}
		c, entry, err = s.book(ctx, actor.UserID, req, ref, "", nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.notify([]*LedgerEntry{entry})
	logger.Info(ctx, "material booked",
		"consumption_id", c.ID,
		"material_id", c.MaterialID,
		"order_id", c.OrderID,
		"quantity", c.Quantity.String(),
	)
	return c, entry, nil
}

// BookMany books several materials against one order atomically.
func (s *Service) BookMany(ctx context.Context, orderID id.ID, reqs []BookRequest) ([]*Consumption, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, apperror.NewValidation("no materials to book")
	}

	out := make([]*Consumption, 0, len(reqs))
	var posted []*LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range reqs {
			req := reqs[i]
			req.OrderID = orderID
			ref, err := s.bookableOrder(ctx, orderID, req.LineID)
			if err != nil {
				return err
			}
			c, entry, err := s.book(ctx, actor.UserID, req, ref, "", nil)
			if err != nil {
				return fmt.Errorf("material %d: %w", i, err)
			}
			out = append(out, c)
			posted = append(posted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(posted)
	logger.Info(ctx, "materials booked", "order_id", orderID, "count", len(out))
	return out, nil
}

// Reverse returns a consumption to stock with a REVERSAL entry and
// recomputes the order's booked flag.
func (s *Service) Reverse(ctx context.Context, consumptionID id.ID) (*Consumption, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var c *Consumption
	var posted []*LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Same lock order as the lifecycle controller: order, then
		// consumption, then material.
		orderID, err := s.repo.ConsumptionOrderID(ctx, consumptionID)
		if err != nil {
			return err
		}
		if err := s.repo.LockOrder(ctx, orderID); err != nil {
			return err
		}
		c, err = s.repo.GetConsumptionForUpdate(ctx, consumptionID)
		if err != nil {
			return err
		}
		entry, err := s.reverse(ctx, actor.UserID, c, CauseManual)
		if err != nil {
			return err
		}
		posted = append(posted, entry)
		return s.refreshBooked(ctx, c.OrderID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(posted)
	logger.Info(ctx, "consumption reversed", "consumption_id", c.ID, "order_id", c.OrderID)
	return c, nil
}

// ReverseOrder reverses every active consumption of an order and returns
// how many were reversed.
func (s *Service) ReverseOrder(ctx context.Context, orderID id.ID, cause ReversalCause) (int, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return 0, err
	}

	var posted []*LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockOrder(ctx, orderID); err != nil {
			return err
		}
		active, err := s.repo.ListActiveByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list active consumptions: %w", err)
		}
		for i := range active {
			entry, err := s.reverse(ctx, actor.UserID, &active[i], cause)
			if err != nil {
				return err
			}
			posted = append(posted, entry)
		}
		return s.refreshBooked(ctx, orderID)
	})
	if err != nil {
		return 0, err
	}

	s.notify(posted)
	if len(posted) > 0 {
		logger.Info(ctx, "order consumptions reversed", "order_id", orderID, "count", len(posted), "cause", cause)
	}
	return len(posted), nil
}

// RebookOrder books again every consumption that order deletion reversed
// and that was not re-booked yet. The reversed originals stay reversed;
// each new consumption carries RestoredFrom. The order must not be deleted.
func (s *Service) RebookOrder(ctx context.Context, orderID id.ID) (int, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return 0, err
	}

	var posted []*LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		pending, err := s.repo.ListRestorable(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list restorable consumptions: %w", err)
		}
		for i := range pending {
			orig := pending[i]
			ref, err := s.bookableOrder(ctx, orig.OrderID, orig.LineID)
			if err != nil {
				return err
			}
			price := orig.UnitPrice
			req := BookRequest{
				MaterialID: orig.MaterialID,
				Quantity:   orig.Quantity,
				UnitPrice:  &price,
				OrderID:    orig.OrderID,
				LineID:     orig.LineID,
			}
			_, entry, err := s.book(ctx, actor.UserID, req, ref, notePrefixRestore, &orig.ID)
			if err != nil {
				return err
			}
			posted = append(posted, entry)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.notify(posted)
	if len(posted) > 0 {
		logger.Info(ctx, "order consumptions re-booked", "order_id", orderID, "count", len(posted))
	}
	return len(posted), nil
}

// DirectAdjust posts a receipt or correction that is not tied to an order.
func (s *Service) DirectAdjust(ctx context.Context, req AdjustRequest) (*LedgerEntry, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	switch req.Kind {
	case KindIn:
		if !req.Quantity.IsPositive() {
			return nil, apperror.NewValidation("receipt quantity must be positive").WithDetail("field", "quantity")
		}
	case KindCorrection:
		if req.Quantity.IsZero() {
			return nil, apperror.NewValidation("quantity cannot be zero").WithDetail("field", "quantity")
		}
	default:
		return nil, apperror.NewValidation("kind must be IN or CORRECTION").WithDetail("field", "kind")
	}

	var entry *LedgerEntry
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.LockMaterial(ctx, req.MaterialID)
		if err != nil {
			return err
		}
		entry, err = s.post(ctx, m, postArgs{
			kind:  req.Kind,
			qty:   req.Quantity,
			price: m.Price,
			note:  strings.TrimSpace(req.Note),
			actor: actor.UserID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify([]*LedgerEntry{entry})
	logger.Info(ctx, "stock adjusted",
		"material_id", entry.MaterialID,
		"kind", entry.Kind,
		"quantity", entry.Quantity.String(),
		"balance_after", entry.BalanceAfter.String(),
	)
	return entry, nil
}

// PostOpeningStock posts the opening balance of a new material.
func (s *Service) PostOpeningStock(ctx context.Context, materialID id.ID, qty types.Quantity) error {
	_, err := s.DirectAdjust(ctx, AdjustRequest{
		MaterialID: materialID,
		Quantity:   qty,
		Kind:       KindIn,
		Note:       noteOpeningStock,
	})
	return err
}

// LedgerFor returns all entries of a material, newest first.
func (s *Service) LedgerFor(ctx context.Context, materialID id.ID) ([]LedgerRow, error) {
	if _, err := s.materials.GetByID(ctx, materialID); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, materialID)
}

// ConsumptionHistoryFor returns every consumption of a material, reversed
// or not, newest first.
func (s *Service) ConsumptionHistoryFor(ctx context.Context, materialID id.ID) ([]ConsumptionRow, error) {
	if _, err := s.materials.GetByID(ctx, materialID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListConsumptionsByMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	return withValues(rows), nil
}

// ConsumptionsForOrder returns every consumption of a work order.
func (s *Service) ConsumptionsForOrder(ctx context.Context, orderID id.ID) ([]ConsumptionRow, error) {
	if _, err := s.repo.OrderRef(ctx, orderID, nil); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListConsumptionsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return withValues(rows), nil
}

func withValues(rows []ConsumptionRow) []ConsumptionRow {
	for i := range rows {
		rows[i].Value = rows[i].Consumption.Value()
	}
	return rows
}

// bookableOrder locks the order row before any material so a concurrent
// delete cannot slip between the deleted check and the booking.
func (s *Service) bookableOrder(ctx context.Context, orderID id.ID, lineID *id.ID) (*OrderRef, error) {
	if err := s.repo.LockOrder(ctx, orderID); err != nil {
		return nil, err
	}
	ref, err := s.repo.OrderRef(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	if ref.Deleted {
		return nil, apperror.NewValidation("work order is deleted").WithDetail("order_id", orderID)
	}
	return ref, nil
}

func (s *Service) book(ctx context.Context, actor string, req BookRequest, ref *OrderRef, notePrefix string, restoredFrom *id.ID) (*Consumption, *LedgerEntry, error) {
	if !req.Quantity.IsPositive() {
		return nil, nil, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}

	m, err := s.repo.LockMaterial(ctx, req.MaterialID)
	if err != nil {
		return nil, nil, err
	}
	price := m.Price
	if req.UnitPrice != nil && req.UnitPrice.IsPositive() {
		price = *req.UnitPrice
	}

	now := time.Now().UTC()
	c := &Consumption{
		ID:           id.New(),
		OrderID:      req.OrderID,
		LineID:       req.LineID,
		MaterialID:   m.ID,
		Quantity:     req.Quantity,
		UnitPrice:    price,
		RestoredFrom: restoredFrom,
		CreatedBy:    actor,
		CreatedAt:    now,
	}
	if err := s.repo.CreateConsumption(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("create consumption: %w", err)
	}

	entry, err := s.post(ctx, m, postArgs{
		kind:          KindOut,
		qty:           req.Quantity.Neg(),
		price:         price,
		orderID:       &c.OrderID,
		lineID:        c.LineID,
		consumptionID: &c.ID,
		note:          ledgerNote(notePrefix, ref),
		actor:         actor,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SetOrderBooked(ctx, c.OrderID, true, now); err != nil {
		return nil, nil, fmt.Errorf("mark order booked: %w", err)
	}
	return c, entry, nil
}

func (s *Service) reverse(ctx context.Context, actor string, c *Consumption, cause ReversalCause) (*LedgerEntry, error) {
	if c.Reversed {
		return nil, apperror.NewValidation("consumption is already reversed").WithDetail("consumption_id", c.ID)
	}

	ref, err := s.repo.OrderRef(ctx, c.OrderID, c.LineID)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.LockMaterial(ctx, c.MaterialID)
	if err != nil {
		return nil, err
	}

	prefix := notePrefixStorno
	if cause == CauseOrderDeleted {
		prefix = notePrefixDeleted
	}
	entry, err := s.post(ctx, m, postArgs{
		kind:          KindReversal,
		qty:           c.Quantity,
		price:         c.UnitPrice,
		orderID:       &c.OrderID,
		lineID:        c.LineID,
		consumptionID: &c.ID,
		note:          ledgerNote(prefix, ref),
		actor:         actor,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.MarkReversed(ctx, c.ID, actor, now, cause); err != nil {
		return nil, fmt.Errorf("mark consumption reversed: %w", err)
	}
	c.Reversed = true
	c.ReversedBy = &actor
	c.ReversedAt = &now
	c.ReversalCause = &cause
	return entry, nil
}

func (s *Service) refreshBooked(ctx context.Context, orderID id.ID) error {
	active, err := s.repo.HasActiveConsumptions(ctx, orderID)
	if err != nil {
		return fmt.Errorf("check active consumptions: %w", err)
	}
	if active {
		return nil
	}
	if err := s.repo.SetOrderBooked(ctx, orderID, false, time.Time{}); err != nil {
		return fmt.Errorf("clear order booked: %w", err)
	}
	return nil
}

type postArgs struct {
	kind          Kind
	qty           types.Quantity
	price         types.Money
	orderID       *id.ID
	lineID        *id.ID
	consumptionID *id.ID
	note          string
	actor         string
}

// post appends one entry chained on the locked material's balance and
// moves on-hand to the entry's balance-after.
func (s *Service) post(ctx context.Context, m *material.Material, a postArgs) (*LedgerEntry, error) {
	after, err := m.OnHand.Add(a.qty)
	if err != nil {
		return nil, apperror.NewValidation("stock balance out of range").
			WithDetail("material_id", m.ID).
			WithDetail("quantity", a.qty.String())
	}
	entry := &LedgerEntry{
		ID:            id.New(),
		MaterialID:    m.ID,
		Kind:          a.kind,
		Quantity:      a.qty,
		UnitPrice:     a.price,
		BalanceBefore: m.OnHand,
		BalanceAfter:  after,
		OrderID:       a.orderID,
		LineID:        a.lineID,
		ConsumptionID: a.consumptionID,
		Note:          a.note,
		CreatedBy:     a.actor,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	if err := s.repo.SetOnHand(ctx, m.ID, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("update on-hand: %w", err)
	}
	m.OnHand = entry.BalanceAfter

	err = s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateMaterial,
		AggregateID:   m.ID,
		Type:          events.StockEntryAppended,
		Payload:       entry,
	})
	if err != nil {
		return nil, fmt.Errorf("publish ledger event: %w", err)
	}
	return entry, nil
}

func (s *Service) notify(entries []*LedgerEntry) {
	if s.observer == nil {
		return
	}
	for _, e := range entries {
		s.observer.EntryAppended(e)
	}
}

// ledgerNote renders "<prefix> <orderNo> / <line> (<qty> <unit>)", leaving
// out the parts that are not known.
func ledgerNote(prefix string, ref *OrderRef) string {
	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if ref != nil && ref.Number != "" {
		parts = append(parts, ref.Number)
	}
	note := strings.Join(parts, " ")
	if ref == nil || ref.LineName == nil || *ref.LineName == "" {
		return note
	}
	unit := ref.LineUnit
	if unit == "" {
		unit = material.DefaultUnit
	}
	return fmt.Sprintf("%s / %s (%s %s)", note, *ref.LineName, ref.LineQuantity.Display(), unit)
}
