package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

const customerRefsTable = "customer_invoicing_refs"

// CustomerRefRepo maps customer ids to their id in the invoicing system.
type CustomerRefRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ invoicing.CustomerRefs = (*CustomerRefRepo)(nil)

func NewCustomerRefRepo(txm *postgres.TxManager) *CustomerRefRepo {
	return &CustomerRefRepo{txm: txm, builder: postgres.Builder()}
}

// CustomerRef returns "" when the customer has no reference.
func (r *CustomerRefRepo) CustomerRef(ctx context.Context, customerID string) (string, error) {
	var ref string
	q := r.builder.Select("external_id").From(customerRefsTable).
		Where(squirrel.Eq{"customer_id": customerID})
	if err := r.txm.Get(ctx, &ref, q); err != nil {
		if pgxscan.NotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get customer ref: %w", err)
	}
	return ref, nil
}

// SetCustomerRef registers or replaces a customer's reference.
func (r *CustomerRefRepo) SetCustomerRef(ctx context.Context, customerID, externalID string) error {
	q := r.builder.Insert(customerRefsTable).
		Columns("customer_id", "external_id", "updated_at").
		Values(customerID, externalID, time.Now().UTC()).
		Suffix("ON CONFLICT (customer_id) DO UPDATE SET external_id = EXCLUDED.external_id, updated_at = EXCLUDED.updated_at")
	if _, err := r.txm.Exec(ctx, q); err != nil {
		return fmt.Errorf("set customer ref: %w", err)
	}
	return nil
}
