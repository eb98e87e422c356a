package auth

import (
	"context"

	"github.com/nawrec86/school-management-backend/internal/model"
)

type userContextKey struct{}

// WithUser attaches the resolved identity to the request context after a
// successful authorization.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the identity placed by WithUser, if any.
func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(model.User)
	return user, ok
}
