package memory

import (
	"context"
	"sort"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
)

// ReminderRepo implements reminder.Repository.
type ReminderRepo struct {
	store *Store
}

var _ reminder.Repository = (*ReminderRepo)(nil)

func (s *Store) Reminders() *ReminderRepo { return &ReminderRepo{store: s} }

func (r *ReminderRepo) Create(ctx context.Context, rem *reminder.Reminder) error {
	return r.store.write(ctx, func(st *state) error {
		st.reminders = append(st.reminders, *rem)
		return nil
	})
}

func (r *ReminderRepo) GetByID(ctx context.Context, reminderID id.ID) (*reminder.Reminder, error) {
	var out *reminder.Reminder
	err := r.store.read(ctx, func(st *state) error {
		i := st.reminderIndex(reminderID)
		if i < 0 {
			return apperror.NewNotFound("reminder", reminderID)
		}
		rem := st.reminders[i]
		out = &rem
		return nil
	})
	return out, err
}

func (r *ReminderRepo) Update(ctx context.Context, rem *reminder.Reminder) error {
	return r.store.write(ctx, func(st *state) error {
		i := st.reminderIndex(rem.ID)
		if i < 0 {
			return apperror.NewNotFound("reminder", rem.ID)
		}
		st.reminders[i] = *rem
		return nil
	})
}

func (r *ReminderRepo) Delete(ctx context.Context, reminderID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		i := st.reminderIndex(reminderID)
		if i < 0 {
			return apperror.NewNotFound("reminder", reminderID)
		}
		st.reminders = append(st.reminders[:i], st.reminders[i+1:]...)
		return nil
	})
}

func (r *ReminderRepo) List(ctx context.Context, filter reminder.Filter) ([]reminder.Row, error) {
	var out []reminder.Row
	err := r.store.read(ctx, func(st *state) error {
		for _, rem := range st.reminders {
			switch {
			case filter.LineID != nil:
				if !id.Equal(rem.LineID, filter.LineID) {
					continue
				}
			case filter.OrderID != nil:
				if rem.OrderID != *filter.OrderID {
					continue
				}
			}
			row := reminder.Row{Reminder: rem}
			if o, ok := st.orders[rem.OrderID]; ok {
				row.OrderNumber = strPtr(o.Number)
				row.OrderTitle = strPtr(o.Title)
				row.CustomerName = strPtr(o.CustomerName)
			}
			switch {
			case rem.LineLabel != nil:
				row.LineName = strPtr(*rem.LineLabel)
			case rem.LineID != nil:
				if l, ok := st.lines[*rem.LineID]; ok {
					row.LineName = strPtr(l.Name)
				}
			}
			out = append(out, row)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return reminder.Less(&out[i].Reminder, &out[j].Reminder) })
	return out, err
}

func (r *ReminderRepo) OrderExists(ctx context.Context, orderID id.ID) error {
	return r.store.read(ctx, func(st *state) error {
		if _, ok := st.orders[orderID]; !ok {
			return apperror.NewNotFound("work order", orderID)
		}
		return nil
	})
}

func (r *ReminderRepo) Line(ctx context.Context, lineID id.ID) (*reminder.LineInfo, error) {
	var out *reminder.LineInfo
	err := r.store.read(ctx, func(st *state) error {
		if l, ok := st.lines[lineID]; ok {
			out = &reminder.LineInfo{OrderID: l.OrderID, Name: l.Name, Quantity: l.Quantity, Unit: l.Unit}
		}
		return nil
	})
	return out, err
}

func (s *state) reminderIndex(reminderID id.ID) int {
	for i := range s.reminders {
		if s.reminders[i].ID == reminderID {
			return i
		}
	}
	return -1
}
