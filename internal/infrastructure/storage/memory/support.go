package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/numerator"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
)

var (
	_ audit.Recorder         = (*Store)(nil)
	_ events.Publisher       = (*Store)(nil)
	_ numerator.Generator    = (*Store)(nil)
	_ invoicing.CustomerRefs = (*Store)(nil)
)

// Record appends an audit entry.
func (s *Store) Record(ctx context.Context, entry audit.Entry) error {
	return s.write(ctx, func(st *state) error {
		st.audit = append(st.audit, entry)
		return nil
	})
}

// History returns an entity's audit entries, newest first.
func (s *Store) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	err := s.read(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			e := st.audit[i]
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

// Publish queues an event; it is dropped with the transaction.
func (s *Store) Publish(ctx context.Context, e events.Event) error {
	return s.write(ctx, func(st *state) error {
		st.outbox = append(st.outbox, e)
		return nil
	})
}

// GetNextNumber allocates from a per-prefix, per-period counter.
func (s *Store) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	var number string
	err := s.write(ctx, func(st *state) error {
		key := fmt.Sprintf("%s/%d", cfg.Prefix, cfg.SequenceYear(period))
		st.sequences[key]++
		number = cfg.Format(period, st.sequences[key])
		return nil
	})
	return number, err
}

// CustomerRef returns the invoicing-system id registered for a customer,
// or "" when none is.
func (s *Store) CustomerRef(ctx context.Context, customerID string) (string, error) {
	var ref string
	err := s.read(ctx, func(st *state) error {
		ref = st.customerRefs[customerID]
		return nil
	})
	return ref, err
}
