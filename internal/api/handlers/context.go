package handlers

import (
	"context"

	"github.com/idfs-labs/starguide/internal/domain"
)

// ContextKey type for context keys
type ContextKey string

const (
	ContextKeyUser ContextKey = "user"
)

// UserFromContext extracts the authenticated user from request context
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ContextKeyUser).(*domain.User)
	return u, ok
}
