package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
)

// WorkOrderRepo implements workorder.Repository.
type WorkOrderRepo struct {
	store *Store
}

var _ workorder.Repository = (*WorkOrderRepo)(nil)

func (s *Store) WorkOrders() *WorkOrderRepo { return &WorkOrderRepo{store: s} }

// LockNumbering is a no-op: transactions already run one at a time.
func (r *WorkOrderRepo) LockNumbering(context.Context) error { return nil }

func (r *WorkOrderRepo) MaxNumberSuffix(ctx context.Context, prefix string) (int64, error) {
	var last int64
	err := r.store.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			suffix, ok := strings.CutPrefix(o.Number, prefix)
			if !ok {
				continue
			}
			n, err := strconv.ParseInt(suffix, 10, 64)
			if err != nil {
				continue
			}
			if n > last {
				last = n
			}
		}
		return nil
	})
	return last, err
}

func (r *WorkOrderRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.store.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.Number == number {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

func (r *WorkOrderRepo) Create(ctx context.Context, o *workorder.WorkOrder) error {
	return r.store.write(ctx, func(st *state) error {
		st.orders[o.ID] = *o
		return nil
	})
}

func (r *WorkOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*workorder.WorkOrder, error) {
	var out *workorder.WorkOrder
	err := r.store.read(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		out = &o
		return nil
	})
	return out, err
}

func (r *WorkOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*workorder.WorkOrder, error) {
	return r.GetByID(ctx, orderID)
}

func (r *WorkOrderRepo) List(ctx context.Context, filter workorder.ListFilter) ([]workorder.WorkOrder, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []workorder.WorkOrder
	err := r.store.read(ctx, func(st *state) error {
		for _, o := range st.orders {
			if o.Deleted && !filter.IncludeDeleted {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			if filter.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *filter.CustomerID) {
				continue
			}
			if search != "" && !matches(search, o.Number, o.Title, o.CustomerName) {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, err
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}

func matches(search string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func (r *WorkOrderRepo) update(ctx context.Context, orderID id.ID, fn func(o *workorder.WorkOrder)) error {
	return r.store.write(ctx, func(st *state) error {
		o, ok := st.orders[orderID]
		if !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		fn(&o)
		st.orders[orderID] = o
		return nil
	})
}

func (r *WorkOrderRepo) UpdateHeader(ctx context.Context, o *workorder.WorkOrder) error {
	return r.update(ctx, o.ID, func(cur *workorder.WorkOrder) {
		cur.OrderDate = o.OrderDate
		cur.Deadline = o.Deadline
		cur.CustomerID = o.CustomerID
		cur.CustomerName = o.CustomerName
		cur.ContactPerson = o.ContactPerson
		cur.Phone = o.Phone
		cur.Email = o.Email
		cur.Title = o.Title
		cur.Description = o.Description
		cur.InvoiceNumber = o.InvoiceNumber
		cur.Status = o.Status
		cur.UpdatedBy = o.UpdatedBy
		cur.UpdatedAt = o.UpdatedAt
	})
}

func (r *WorkOrderRepo) SetDeleted(ctx context.Context, orderID id.ID, deleted bool, by *string, at *time.Time) error {
	return r.update(ctx, orderID, func(o *workorder.WorkOrder) {
		o.Deleted = deleted
		o.DeletedBy = by
		o.DeletedAt = at
	})
}

func (r *WorkOrderRepo) SetDelivery(ctx context.Context, orderID id.ID, issued bool, number *string, by *string, at *time.Time) error {
	return r.update(ctx, orderID, func(o *workorder.WorkOrder) {
		o.DeliveryIssued = issued
		o.DeliveryNumber = number
		o.DeliveryIssuedBy = by
		o.DeliveryIssuedAt = at
	})
}

func (r *WorkOrderRepo) SetInvoice(ctx context.Context, orderID id.ID, ref string, at time.Time) error {
	return r.update(ctx, orderID, func(o *workorder.WorkOrder) {
		o.InvoiceRef = &ref
		o.InvoiceSentAt = &at
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
	want := make(map[id.ID]bool, len(orderIDs))
	for _, oid := range orderIDs {
		want[oid] = true
	}
	out := make(map[id.ID][]workorder.Line, len(orderIDs))
	err := r.store.read(ctx, func(st *state) error {
		for _, l := range st.lines {
			if want[l.OrderID] {
				out[l.OrderID] = append(out[l.OrderID], l)
			}
		}
		return nil
	})
	for oid := range out {
		lines := out[oid]
		sort.Slice(lines, func(i, j int) bool { return lines[i].SeqIndex < lines[j].SeqIndex })
	}
	return out, err
}

func (r *WorkOrderRepo) InsertLines(ctx context.Context, lines []workorder.Line) error {
	return r.store.write(ctx, func(st *state) error {
		for _, l := range lines {
			l.Procedures = append([]workorder.AssignedProcedure(nil), l.Procedures...)
			st.lines[l.ID] = l
		}
		return nil
	})
}

func (r *WorkOrderRepo) DeleteLines(ctx context.Context, orderID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		for lid, l := range st.lines {
			if l.OrderID == orderID {
				delete(st.lines, lid)
			}
		}
		return nil
	})
}

func (r *WorkOrderRepo) RelinkLine(ctx context.Context, fromLineID, toLineID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		to := toLineID
		for i := range st.consumptions {
			if id.Equal(st.consumptions[i].LineID, &fromLineID) {
				st.consumptions[i].LineID = &to
			}
		}
		for i := range st.ledger {
			if id.Equal(st.ledger[i].LineID, &fromLineID) {
				st.ledger[i].LineID = &to
			}
		}
		for i := range st.reminders {
			if id.Equal(st.reminders[i].LineID, &fromLineID) {
				st.reminders[i].LineID = &to
			}
		}
		return nil
	})
}

func (r *WorkOrderRepo) GetProcedures(ctx context.Context, orderID id.ID) ([]workorder.Procedure, error) {
	var out []workorder.Procedure
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.procedures {
			if p.OrderID == orderID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

func (r *WorkOrderRepo) ReplaceProcedures(ctx context.Context, orderID id.ID, procs []workorder.Procedure) error {
	return r.store.write(ctx, func(st *state) error {
		for pid, p := range st.procedures {
			if p.OrderID == orderID {
				delete(st.procedures, pid)
			}
		}
		for _, p := range procs {
			st.procedures[p.ID] = p
		}
		return nil
	})
}

func (r *WorkOrderRepo) GetProcedure(ctx context.Context, procedureID id.ID) (*workorder.Procedure, error) {
	var out *workorder.Procedure
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.procedures[procedureID]
		if !ok {
			return apperror.NewNotFound("order procedure", procedureID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *WorkOrderRepo) UpdateProcedure(ctx context.Context, p *workorder.Procedure) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.procedures[p.ID]; !ok {
			return apperror.NewNotFound("order procedure", p.ID)
		}
		st.procedures[p.ID] = *p
		return nil
	})
}
