// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"github.com/tihomirborovcak/radni-nalozi/internal/core/apperror"
)

// RoleAdmin is the role allowed to restore deleted orders and hard-delete reminders.
const RoleAdmin = "admin"

// UserContext is the already-resolved actor of a request. Identity is owned
// by an external service; the id is trusted as given.
type UserContext struct {
	UserID string
	Name   string
	Roles  []string
}

// IsAdmin reports whether the actor carries the admin role.
func (u *UserContext) IsAdmin() bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// RequireUser returns the actor or an UNAUTHORIZED error when none is present.
func RequireUser(ctx context.Context) (*UserContext, error) {
	u := GetUser(ctx)
	if u == nil || u.UserID == "" {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	return u, nil
}

// RequireAdmin returns the actor when it is an admin, UNAUTHORIZED when no
// actor is present and FORBIDDEN otherwise.
func RequireAdmin(ctx context.Context, action string) (*UserContext, error) {
	u, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return nil, apperror.NewForbidden("only an administrator can " + action).
			WithDetail("user_id", u.UserID)
	}
	return u, nil
}
