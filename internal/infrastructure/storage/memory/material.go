package memory

import (
	"context"
	"sort"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/domain/material"
)

// MaterialRepo implements material.Repository.
type MaterialRepo struct {
	store *Store
}

var _ material.Repository = (*MaterialRepo)(nil)

func (s *Store) Materials() *MaterialRepo { return &MaterialRepo{store: s} }

func (r *MaterialRepo) Create(ctx context.Context, m *material.Material) error {
	return r.store.write(ctx, func(st *state) error {
		st.materials[m.ID] = *m
		return nil
	})
}

func (r *MaterialRepo) GetByID(ctx context.Context, materialID id.ID) (*material.Material, error) {
	var out *material.Material
	err := r.store.read(ctx, func(st *state) error {
		m, ok := st.materials[materialID]
		if !ok {
			return apperror.NewNotFound("material", materialID)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *MaterialRepo) List(ctx context.Context, activeOnly bool) ([]*material.Material, error) {
	var out []*material.Material
	err := r.store.read(ctx, func(st *state) error {
		for _, m := range st.materials {
			if activeOnly && !m.Active {
				continue
			}
			m := m
			out = append(out, &m)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, err
}

func (r *MaterialRepo) Update(ctx context.Context, m *material.Material) error {
	return r.store.write(ctx, func(st *state) error {
		cur, ok := st.materials[m.ID]
		if !ok {
			return apperror.NewNotFound("material", m.ID)
		}
		onHand := cur.OnHand
		cur = *m
		cur.OnHand = onHand
		cur.UpdatedAt = time.Now().UTC()
		st.materials[m.ID] = cur
		return nil
	})
}

func (r *MaterialRepo) Deactivate(ctx context.Context, materialID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		m, ok := st.materials[materialID]
		if !ok {
			return apperror.NewNotFound("material", materialID)
		}
		m.Active = false
		m.UpdatedAt = time.Now().UTC()
		st.materials[materialID] = m
		return nil
	})
}

func (r *MaterialRepo) GetNorm(ctx context.Context, articleID string) ([]material.NormLine, error) {
	var out []material.NormLine
	err := r.store.read(ctx, func(st *state) error {
		for _, n := range st.norms[articleID] {
			if m, ok := st.materials[n.MaterialID]; ok {
				n.MaterialName = m.Name
				n.Unit = m.Unit
				n.Price = m.Price
			}
			out = append(out, n)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaterialName < out[j].MaterialName })
	return out, err
}

func (r *MaterialRepo) ReplaceNorm(ctx context.Context, articleID string, lines []material.NormLine) error {
	return r.store.write(ctx, func(st *state) error {
		if len(lines) == 0 {
			delete(st.norms, articleID)
			return nil
		}
		st.norms[articleID] = append([]material.NormLine(nil), lines...)
		return nil
	})
}
