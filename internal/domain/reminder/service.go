package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
	appctx "github.com/tihomirborovcak/radni-nalozi/internal/core/context"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/id"
	"github.com/tihomirborovcak/radni-nalozi/internal/core/tx"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// CreateRequest carries a new reminder.
type CreateRequest struct {
	OrderID  id.ID
	LineID   *id.ID
	Text     string
	Priority string
	DueDate  *time.Time
}

// UpdateRequest either toggles completion, when Done is set, or replaces
// text, priority and due date.
type UpdateRequest struct {
	Done     *bool
	Text     string
	Priority string
	DueDate  *time.Time
}

// Service provides reminder operations.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a reminder service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// List returns reminders for a line, an order, or all of them.
func (s *Service) List(ctx context.Context, filter Filter) ([]Row, error) {
	if _, err := appctx.RequireUser(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// Create adds a reminder and snapshots the line label.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Reminder, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperror.NewValidation("reminder text is required").WithDetail("field", "text")
	}
	priority, ok := ParsePriority(req.Priority)
	if !ok {
		return nil, apperror.NewValidation("priority must be high, medium or low").WithDetail("field", "priority")
	}

	r := &Reminder{
		ID:        id.New(),
		OrderID:   req.OrderID,
		Text:      text,
		Priority:  priority,
		DueDate:   req.DueDate,
		CreatedBy: actor.UserID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.OrderExists(ctx, req.OrderID); err != nil {
			return err
		}
		if req.LineID != nil {
			line, err := s.repo.Line(ctx, *req.LineID)
			if err != nil {
				return err
			}
			if line != nil && line.OrderID != req.OrderID {
				return apperror.NewValidation("line belongs to another order").WithDetail("field", "lineId")
			}
			r.LineID = req.LineID
			if line != nil {
				label := LineLabel(line.Name, line.Quantity, line.Unit)
				r.LineLabel = &label
			}
		}
		return s.repo.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "reminder created", "id", r.ID, "order_id", r.OrderID)
	return r, nil
}

// Update toggles completion or edits the reminder.
func (s *Service) Update(ctx context.Context, reminderID id.ID, req UpdateRequest) (*Reminder, error) {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	var r *Reminder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err = s.repo.GetByID(ctx, reminderID)
		if err != nil {
			return err
		}
		if req.Done != nil {
			setDone(r, *req.Done, actor.UserID)
			return s.repo.Update(ctx, r)
		}

		text := strings.TrimSpace(req.Text)
		if text == "" {
			return apperror.NewValidation("reminder text is required").WithDetail("field", "text")
		}
		priority, ok := ParsePriority(req.Priority)
		if !ok {
			return apperror.NewValidation("priority must be high, medium or low").WithDetail("field", "priority")
		}
		r.Text = text
		r.Priority = priority
		r.DueDate = req.DueDate
		return s.repo.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Delete marks a reminder done, or removes it when hard is set. Hard
// deletion is reserved for administrators.
func (s *Service) Delete(ctx context.Context, reminderID id.ID, hard bool) error {
	actor, err := appctx.RequireUser(ctx)
	if err != nil {
		return err
	}
	if hard {
		if _, err := appctx.RequireAdmin(ctx, "delete reminders permanently"); err != nil {
			return err
		}
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetByID(ctx, reminderID)
		if err != nil {
			return err
		}
		if hard {
			logger.Info(ctx, "reminder deleted", "id", r.ID, "order_id", r.OrderID)
			return s.repo.Delete(ctx, r.ID)
		}
		setDone(r, true, actor.UserID)
		return s.repo.Update(ctx, r)
	})
}

func setDone(r *Reminder, done bool, actor string) {
	if done {
		now := time.Now().UTC()
		r.Done = true
		r.DoneBy = &actor
		r.DoneAt = &now
		return
	}
	r.Done = false
	r.DoneBy = nil
	r.DoneAt = nil
}
