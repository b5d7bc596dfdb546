// Package events defines domain events written to the transactional outbox.
package events

import (
	"context"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
)

// Aggregate types.
const (
	AggregateWorkOrder = "work_order"
	AggregateMaterial  = "material"
)

// Event types.
const (
	StockEntryAppended       = "stock.entry_appended"
	WorkOrderCreated         = "work_order.created"
	WorkOrderUpdated         = "work_order.updated"
	WorkOrderDeleted         = "work_order.deleted"
	WorkOrderRestored        = "work_order.restored"
	WorkOrderDeliveryIssued  = "work_order.delivery_issued"
	WorkOrderDeliveryRevoked = "work_order.delivery_revoked"
	WorkOrderInvoiced        = "work_order.invoiced"
)

// Event is a fact about an aggregate. Payload is JSON-encoded by the publisher.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher records events. Implementations must join the transaction in
// ctx so an event exists if and only if its change was committed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
