// Package catalog_repo provides PostgreSQL repositories for catalog data:
// materials, article norms and customer invoicing references.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
	"github.com/tihomirborovcak/radni-nalozi/internal/infrastructure/storage/postgres"
)

const (
	materialsTable = "materials"
	normsTable     = "article_materials"
)

var (
	materialColumns = postgres.ExtractDBColumns[material.Material]()
	normColumns     = postgres.ExtractDBColumns[material.NormLine]("material_name", "unit", "price")
)

// MaterialRepo implements material.Repository.
type MaterialRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ material.Repository = (*MaterialRepo)(nil)

// NewMaterialRepo creates a material repository.
func NewMaterialRepo(txm *postgres.TxManager) *MaterialRepo {
	return &MaterialRepo{txm: txm, builder: postgres.Builder()}
}

func (r *MaterialRepo) Create(ctx context.Context, m *material.Material) error {
	q := r.builder.Insert(materialsTable).SetMap(postgres.StructToMap(m))
	if _, err := r.txm.Exec(ctx, q); err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

func (r *MaterialRepo) GetByID(ctx context.Context, materialID id.ID) (*material.Material, error) {
	var m material.Material
	q := r.builder.Select(materialColumns...).From(materialsTable).
		Where(squirrel.Eq{"id": materialID})
	if err := r.txm.Get(ctx, &m, q); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("material", materialID)
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return &m, nil
}

func (r *MaterialRepo) List(ctx context.Context, activeOnly bool) ([]*material.Material, error) {
	q := r.builder.Select(materialColumns...).From(materialsTable).
		OrderBy("category", "name")
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}

	var out []*material.Material
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return out, nil
}

// Update writes catalog fields. on_hand belongs to the ledger and is left
// alone.
func (r *MaterialRepo) Update(ctx context.Context, m *material.Material) error {
	n, err := r.txm.Exec(ctx, r.updateQuery(m, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("material", m.ID)
	}
	return nil
}

func (r *MaterialRepo) updateQuery(m *material.Material, now time.Time) squirrel.UpdateBuilder {
	return r.builder.Update(materialsTable).
		SetMap(postgres.StructToMap(m, "id", "on_hand", "created_at", "updated_at")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": m.ID})
}

func (r *MaterialRepo) Deactivate(ctx context.Context, materialID id.ID) error {
	q := r.builder.Update(materialsTable).
		Set("active", false).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": materialID})

	n, err := r.txm.Exec(ctx, q)
	if err != nil {
		return fmt.Errorf("deactivate material: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("material", materialID)
	}
	return nil
}

func (r *MaterialRepo) GetNorm(ctx context.Context, articleID string) ([]material.NormLine, error) {
	q := r.builder.Select(
		"n.article_id", "n.material_id", "n.quantity",
		"m.name AS material_name", "m.unit", "m.price",
	).From(normsTable + " n").
		Join(materialsTable + " m ON m.id = n.material_id").
		Where(squirrel.Eq{"n.article_id": articleID}).
		OrderBy("m.name")

	var out []material.NormLine
	if err := r.txm.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("get norm: %w", err)
	}
	return out, nil
}

// ReplaceNorm swaps the article's norm for lines. An empty list removes it.
func (r *MaterialRepo) ReplaceNorm(ctx context.Context, articleID string, lines []material.NormLine) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		del := r.builder.Delete(normsTable).Where(squirrel.Eq{"article_id": articleID})
		if _, err := r.txm.Exec(ctx, del); err != nil {
			return fmt.Errorf("delete norm: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}

		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []any{articleID, l.MaterialID, l.Quantity})
		}
		if _, err := r.txm.CopyRows(ctx, normsTable, normColumns, rows); err != nil {
			return fmt.Errorf("insert norm: %w", err)
		}
		return nil
	})
}
