package material

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// Service provides catalog operations for materials.
type Service struct {
	repo      Repository
	txManager tx.Manager
	opening   OpeningStockPoster
}

// NewService creates a material service. opening may be nil, in which case
// a non-zero initial stock is rejected.
func NewService(repo Repository, txManager tx.Manager, opening OpeningStockPoster) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		opening:   opening,
	}
}

// Get returns a material by id.
func (s *Service) Get(ctx context.Context, materialID id.ID) (*Material, error) {
	return s.repo.GetByID(ctx, materialID)
}

// List returns materials ordered by category and name.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Material, error) {
	return s.repo.List(ctx, activeOnly)
}

// Create adds a material to the catalog with zero stock, then posts the
// requested opening balance through the ledger in the same transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Material, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.InitialStock.IsPositive() && s.opening == nil {
		return nil, apperror.NewValidation("initial stock is not supported").WithDetail("field", "initialStock")
	}

	now := time.Now().UTC()
	m := &Material{
		ID:        id.New(),
		Name:      strings.TrimSpace(req.Name),
		Category:  strings.TrimSpace(req.Category),
		Unit:      normalizeUnit(req.Unit),
		Price:     req.Price,
		MinStock:  req.MinStock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create material: %w", err)
		}
		if req.InitialStock.IsPositive() {
			if err := s.opening.PostOpeningStock(ctx, m.ID, req.InitialStock); err != nil {
				return err
			}
			m.OnHand = req.InitialStock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "material created", "id", m.ID, "name", m.Name, "on_hand", m.OnHand)
	return m, nil
}

// Update replaces the catalog fields of a material.
func (s *Service) Update(ctx context.Context, materialID id.ID, req UpdateRequest) (*Material, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return nil, err
	}

	var m *Material
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetByID(ctx, materialID)
		if err != nil {
			return err
		}
		m.Name = strings.TrimSpace(req.Name)
		m.Category = strings.TrimSpace(req.Category)
		m.Unit = normalizeUnit(req.Unit)
		m.Price = req.Price
		m.MinStock = req.MinStock
		if req.Active != nil {
			m.Active = *req.Active
		}
		m.UpdatedAt = time.Now().UTC()
		if err := m.Validate(); err != nil {
			return err
		}
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Deactivate hides a material from listings. Consumptions and ledger
// entries that reference it are unaffected.
func (s *Service) Deactivate(ctx context.Context, materialID id.ID) error {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, materialID); err != nil {
		return err
	}
	logger.Info(ctx, "material deactivated", "id", materialID)
	return nil
}

// ArticleNorm returns the bill of materials of a catalog article.
func (s *Service) ArticleNorm(ctx context.Context, articleID string) ([]NormLine, error) {
	if strings.TrimSpace(articleID) == "" {
		return nil, apperror.NewValidation("article id is required")
	}
	return s.repo.GetNorm(ctx, articleID)
}

// ReplaceArticleNorm replaces the article's bill of materials wholesale.
func (s *Service) ReplaceArticleNorm(ctx context.Context, articleID string, inputs []NormInput) ([]NormLine, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(articleID) == "" {
		return nil, apperror.NewValidation("article id is required")
	}

	lines := make([]NormLine, 0, len(inputs))
	for i, in := range inputs {
		if id.IsNil(in.MaterialID) {
			continue
		}
		qty := in.Quantity
		if qty.IsZero() {
			qty = types.NewQuantity(1)
		}
		if qty.IsNegative() {
			return nil, apperror.NewValidation(fmt.Sprintf("norm line %d: quantity must be positive", i))
		}
		lines = append(lines, NormLine{ArticleID: articleID, MaterialID: in.MaterialID, Quantity: qty})
	}

	var out []NormLine
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, l := range lines {
			if _, err := s.repo.GetByID(ctx, l.MaterialID); err != nil {
				return err
			}
		}
		if err := s.repo.ReplaceNorm(ctx, articleID, lines); err != nil {
			return fmt.Errorf("replace norm: %w", err)
		}
		var err error
		out, err = s.repo.GetNorm(ctx, articleID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
