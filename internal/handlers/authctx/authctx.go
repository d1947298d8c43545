package authctx

import (
	"context"

	"github.com/gatherly/auth-service/internal/models"
	"github.com/gatherly/auth-service/internal/token"
)

// Auth is the per-request identity accumulated by the middleware gates.
// Fields are filled incrementally: fingerprint always, access token on
// authenticated routes, refresh token only where the route requires it.
type Auth struct {
	UserID       string
	Fingerprint  models.Fingerprint
	AccessToken  token.Payload
	RefreshToken token.Payload
}

type ctxKey string

const authKey ctxKey = "auth"

// Create a new context with the request auth data
func New(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, authKey, a)
}

// Extract the request auth data from the context
func FromContext(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(authKey).(Auth)
	return a, ok
}
