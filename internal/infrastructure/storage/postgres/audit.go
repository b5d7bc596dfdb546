package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/audit"
)

// defaultCompressThreshold is the change-set size above which changes are
// stored zstd-compressed.
const defaultCompressThreshold = 10 * 1024

// AuditService stores audit entries in sys_audit.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Recorder = (*AuditService)(nil)

// NewAuditService creates an audit log.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

type auditRow struct {
	audit.Entry
	ChangesCompressed []byte `db:"changes_compressed"`
}

// Record inserts entry in the transaction in ctx, if any.
func (s *AuditService) Record(ctx context.Context, entry audit.Entry) error {
	changes, compressed := s.pack(entry.Changes)

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (id, entity_type, entity_id, action, user_id, changes, changes_compressed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.UserID, changes, compressed, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// pack returns the JSON column value and the compressed one; exactly one
// is set for a non-empty change set.
func (s *AuditService) pack(changes json.RawMessage) (any, []byte) {
	if len(changes) == 0 {
		return nil, nil
	}
	if len(changes) > s.compressThreshold {
		return nil, s.encoder.EncodeAll(changes, nil)
	}
	return string(changes), nil
}

// History returns the newest entries of an entity.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var rows []auditRow
	err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &rows, `
		SELECT id, entity_type, entity_id, action, user_id, changes, changes_compressed, created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		if len(r.ChangesCompressed) > 0 {
			raw, err := s.decoder.DecodeAll(r.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			r.Entry.Changes = raw
		}
		entries = append(entries, r.Entry)
	}
	return entries, nil
}
