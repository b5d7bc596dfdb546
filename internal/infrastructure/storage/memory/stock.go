package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	store *Store
}

var _ stock.Repository = (*StockRepo)(nil)

func (s *Store) Stock() *StockRepo { return &StockRepo{store: s} }

// LockMaterial reads the material; the store-wide transaction lock already
// serializes writers.
func (r *StockRepo) LockMaterial(ctx context.Context, materialID id.ID) (*material.Material, error) {
	return r.store.Materials().GetByID(ctx, materialID)
}

func (r *StockRepo) SetOnHand(ctx context.Context, materialID id.ID, onHand types.Quantity) error {
	return r.store.write(ctx, func(st *state) error {
		m, ok := st.materials[materialID]
		if !ok {
			return apperror.NewNotFound("material", materialID)
		}
		m.OnHand = onHand
		m.UpdatedAt = time.Now().UTC()
		st.materials[materialID] = m
		return nil
	})
}

func (r *StockRepo) AppendEntry(ctx context.Context, entry *stock.LedgerEntry) error {
	return r.store.write(ctx, func(st *state) error {
		entry.Seq = int64(len(st.ledger)) + 1
		st.ledger = append(st.ledger, *entry)
		return nil
	})
}

func (r *StockRepo) CreateConsumption(ctx context.Context, c *stock.Consumption) error {
	return r.store.write(ctx, func(st *state) error {
		st.consumptions = append(st.consumptions, *c)
		return nil
	})
}

func (r *StockRepo) GetConsumptionForUpdate(ctx context.Context, consumptionID id.ID) (*stock.Consumption, error) {
	var out *stock.Consumption
	err := r.store.read(ctx, func(st *state) error {
		i := st.consumptionIndex(consumptionID)
		if i < 0 {
			return apperror.NewNotFound("consumption", consumptionID)
		}
		c := st.consumptions[i]
		out = &c
		return nil
	})
	return out, err
}

func (r *StockRepo) MarkReversed(ctx context.Context, consumptionID id.ID, by string, at time.Time, cause stock.ReversalCause) error {
	return r.store.write(ctx, func(st *state) error {
		i := st.consumptionIndex(consumptionID)
		if i < 0 {
			return apperror.NewNotFound("consumption", consumptionID)
		}
		c := &st.consumptions[i]
		c.Reversed = true
		c.ReversedBy = &by
		c.ReversedAt = &at
		c.ReversalCause = &cause
		return nil
	})
}

func (r *StockRepo) ListActiveByOrder(ctx context.Context, orderID id.ID) ([]stock.Consumption, error) {
	var out []stock.Consumption
	err := r.store.read(ctx, func(st *state) error {
		for _, c := range st.consumptions {
			if c.OrderID == orderID && !c.Reversed {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) ListRestorable(ctx context.Context, orderID id.ID) ([]stock.Consumption, error) {
	var out []stock.Consumption
	err := r.store.read(ctx, func(st *state) error {
		rebooked := make(map[id.ID]bool)
		for _, c := range st.consumptions {
			if c.RestoredFrom != nil {
				rebooked[*c.RestoredFrom] = true
			}
		}
		for _, c := range st.consumptions {
			if c.OrderID != orderID || !c.Reversed || rebooked[c.ID] {
				continue
			}
			if c.ReversalCause == nil || *c.ReversalCause != stock.CauseOrderDeleted {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) HasActiveConsumptions(ctx context.Context, orderID id.ID) (bool, error) {
	active, err := r.ListActiveByOrder(ctx, orderID)
	return len(active) > 0, err
}

// LockOrder checks the order exists; writers are already serialized.
func (r *StockRepo) LockOrder(ctx context.Context, orderID id.ID) error {
	return r.store.read(ctx, func(st *state) error {
		if _, ok := st.orders[orderID]; !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		return nil
	})
}

func (r *StockRepo) ConsumptionOrderID(ctx context.Context, consumptionID id.ID) (id.ID, error) {
	var out id.ID
	err := r.store.read(ctx, func(st *state) error {
		i := st.consumptionIndex(consumptionID)
		if i < 0 {
			return apperror.NewNotFound("consumption", consumptionID)
		}
		out = st.consumptions[i].OrderID
		return nil
	})
	return out, err
}

func (r *StockRepo) OrderRef(ctx context.Context, orderID id.ID, lineID *id.ID) (*stock.OrderRef, error) {
	var out *stock.OrderRef
	err := r.store.read(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		out = &stock.OrderRef{OrderID: o.ID, Number: o.Number, Deleted: o.Deleted}
		if lineID != nil {
			if l, ok := st.lines[*lineID]; ok {
				name := l.Name
				out.LineName = &name
				out.LineQuantity = l.Quantity
				out.LineUnit = l.Unit
			}
		}
		return nil
	})
	return out, err
}

func (r *StockRepo) SetOrderBooked(ctx context.Context, orderID id.ID, booked bool, at time.Time) error {
	return r.store.write(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		o.Booked = booked
		switch {
		case !booked:
			o.BookedAt = nil
		case o.BookedAt == nil:
			o.BookedAt = &at
		}
		st.orders[orderID] = o
		return nil
	})
}

func (r *StockRepo) ListEntries(ctx context.Context, materialID id.ID) ([]stock.LedgerRow, error) {
	var out []stock.LedgerRow
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.ledger {
			if e.MaterialID != materialID {
				continue
			}
			row := stock.LedgerRow{LedgerEntry: e}
			if e.OrderID != nil {
				if o, ok := st.orders[*e.OrderID]; ok {
					row.OrderNumber = strPtr(o.Number)
					row.OrderTitle = strPtr(o.Title)
					row.CustomerName = strPtr(o.CustomerName)
				}
			}
			if e.LineID != nil {
				if l, ok := st.lines[*e.LineID]; ok {
					q := l.Quantity
					row.LineName = strPtr(l.Name)
					row.LineQuantity = &q
					row.LineUnit = strPtr(l.Unit)
				}
			}
			out = append(out, row)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Seq > out[j].Seq
	})
	return out, err
}

func (r *StockRepo) ListConsumptionsByMaterial(ctx context.Context, materialID id.ID) ([]stock.ConsumptionRow, error) {
	return r.consumptionRows(ctx, func(c *stock.Consumption) bool { return c.MaterialID == materialID })
}

func (r *StockRepo) ListConsumptionsByOrder(ctx context.Context, orderID id.ID) ([]stock.ConsumptionRow, error) {
	return r.consumptionRows(ctx, func(c *stock.Consumption) bool { return c.OrderID == orderID })
}

// consumptionRows returns matching consumptions newest first.
func (r *StockRepo) consumptionRows(ctx context.Context, match func(c *stock.Consumption) bool) ([]stock.ConsumptionRow, error) {
	var out []stock.ConsumptionRow
	err := r.store.read(ctx, func(st *state) error {
		for i := len(st.consumptions) - 1; i >= 0; i-- {
			c := st.consumptions[i]
			if !match(&c) {
				continue
			}
			row := stock.ConsumptionRow{Consumption: c, Value: c.Value()}
			if m, ok := st.materials[c.MaterialID]; ok {
				row.MaterialName = m.Name
				row.MaterialUnit = m.Unit
			}
			if o, ok := st.orders[c.OrderID]; ok {
				row.OrderNumber = strPtr(o.Number)
				row.OrderTitle = strPtr(o.Title)
				row.CustomerName = strPtr(o.CustomerName)
			}
			if c.LineID != nil {
				if l, ok := st.lines[*c.LineID]; ok {
					row.LineName = strPtr(l.Name)
				}
			}
			out = append(out, row)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (s *state) consumptionIndex(consumptionID id.ID) int {
	for i := range s.consumptions {
		if s.consumptions[i].ID == consumptionID {
			return i
		}
	}
	return -1
}

func strPtr(s string) *string { return &s }
