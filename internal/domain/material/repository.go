package material

import (
	"context"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/types"
)

// Repository defines persistence for materials and article norms.
// Update never touches on_hand.
type Repository interface {
	Create(ctx context.Context, m *Material) error
	GetByID(ctx context.Context, materialID id.ID) (*Material, error)
	List(ctx context.Context, activeOnly bool) ([]*Material, error)
	Update(ctx context.Context, m *Material) error
	Deactivate(ctx context.Context, materialID id.ID) error

	GetNorm(ctx context.Context, articleID string) ([]NormLine, error)
	ReplaceNorm(ctx context.Context, articleID string, lines []NormLine) error
}

// OpeningStockPoster books the opening balance of a newly created material
// through the stock ledger.
type OpeningStockPoster interface {
	PostOpeningStock(ctx context.Context, materialID id.ID, qty types.Quantity) error
}
