package context

import (
	"context"
	"slices"
)

// SystemActor is recorded when the service acts on its own behalf
// (auto-approvals, scheduled period close).
const SystemActor = "system"

// UserContext describes the user performing the current operation.
type UserContext struct {
	UserID string
	Name   string
	Roles  []string
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

// ActorOrSystem returns the acting user ID, falling back to SystemActor.
func ActorOrSystem(ctx context.Context) string {
	if uid := GetUserID(ctx); uid != "" {
		return uid
	}
	return SystemActor
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}
