// Package audit defines the change log kept for work orders.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionRestore        Action = "restore"
	ActionDeliveryIssue  Action = "delivery_issue"
	ActionDeliveryRevoke Action = "delivery_revoke"
	ActionInvoiceSend    Action = "invoice_send"
)

// Entry is one audit log record.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Action     Action          `db:"action" json:"action"`
	UserID     string          `db:"user_id" json:"userId"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Recorder persists and reads audit entries. Record joins the transaction
// in ctx.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// NewEntry builds an entry for the actor in ctx with changes JSON-encoded.
func NewEntry(ctx context.Context, entityType string, entityID id.ID, action Action, changes any) (Entry, error) {
	e := Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.GetUserID(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return Entry{}, fmt.Errorf("marshal audit changes: %w", err)
		}
		e.Changes = raw
	}
	return e, nil
}
