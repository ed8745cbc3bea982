package cont

import (
	"context"

	"clinichat/entity"
)

type contextKey string

const userKey contextKey = "user"

// PutUser stores the authenticated identity in the request context.
func PutUser(ctx context.Context, user *entity.UserAuth) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser retrieves the authenticated identity from the request context.
// Returns nil if the request was not authenticated.
func GetUser(ctx context.Context) *entity.UserAuth {
	user, ok := ctx.Value(userKey).(*entity.UserAuth)
	if !ok {
		return nil
	}
	return user
}
