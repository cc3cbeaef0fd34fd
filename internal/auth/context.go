package auth

import (
	"context"

	"github.com/inkwell-blog/inkwell/internal/model"
)

type userKey struct{}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the resolved user, or nil for an anonymous request.
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userKey{}).(*model.User)
	return user
}
