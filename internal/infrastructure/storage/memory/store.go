// Package memory is an in-process implementation of every repository.
//
// A transaction works on a copy of the state and swaps it in on success,
// so a failed operation leaves no trace. One transaction runs at a time.
// It backs domain tests and the "memory" storage driver.
package memory

import (
	"context"
	"sync"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/events"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/reminder"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/stock"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/workorder"
)

type state struct {
	materials    map[id.ID]material.Material
	norms        map[string][]material.NormLine
	ledger       []stock.LedgerEntry
	consumptions []stock.Consumption
	orders       map[id.ID]workorder.WorkOrder
	lines        map[id.ID]workorder.Line
	procedures   map[id.ID]workorder.Procedure
	reminders    []reminder.Reminder
	customerRefs map[string]string
	sequences    map[string]int64
	audit        []audit.Entry
	outbox       []events.Event
}

func newState() *state {
	return &state{
		materials:    map[id.ID]material.Material{},
		norms:        map[string][]material.NormLine{},
		orders:       map[id.ID]workorder.WorkOrder{},
		lines:        map[id.ID]workorder.Line{},
		procedures:   map[id.ID]workorder.Procedure{},
		customerRefs: map[string]string{},
		sequences:    map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := &state{
		materials:    make(map[id.ID]material.Material, len(s.materials)),
		norms:        make(map[string][]material.NormLine, len(s.norms)),
		ledger:       append([]stock.LedgerEntry(nil), s.ledger...),
		consumptions: append([]stock.Consumption(nil), s.consumptions...),
		orders:       make(map[id.ID]workorder.WorkOrder, len(s.orders)),
		lines:        make(map[id.ID]workorder.Line, len(s.lines)),
		procedures:   make(map[id.ID]workorder.Procedure, len(s.procedures)),
		reminders:    append([]reminder.Reminder(nil), s.reminders...),
		customerRefs: make(map[string]string, len(s.customerRefs)),
		sequences:    make(map[string]int64, len(s.sequences)),
		audit:        append([]audit.Entry(nil), s.audit...),
		outbox:       append([]events.Event(nil), s.outbox...),
	}
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.norms {
		c.norms[k] = append([]material.NormLine(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.procedures {
		c.procedures[k] = v
	}
	for k, v := range s.customerRefs {
		c.customerRefs[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store holds the committed state.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

type txState struct {
	st *state
}

// TxManager runs functions against a private copy of the store state.
type TxManager struct {
	store *Store
}

var _ tx.Manager = (*TxManager)(nil)

// TxManager returns the store's transaction manager.
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction commits the copy when fn succeeds and drops it
// otherwise. Nested calls join the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	work := &txState{st: m.store.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	m.store.state = work.st
	return nil
}

// read runs fn against the transaction state in ctx, or the committed
// state under a read lock.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if t, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(t.st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// write runs fn against the transaction state in ctx, or in a transaction
// of its own.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	return s.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*txState).st)
	})
}

// Events returns the events published so far, oldest first.
func (s *Store) Events() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event(nil), s.state.outbox...)
}

// SetCustomerRef registers a customer's invoicing system id.
func (s *Store) SetCustomerRef(customerID, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.customerRefs[customerID] = ref
}
