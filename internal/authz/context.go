package authz

import (
	"context"
	"net/http"

	"github.com/bookclurb/clurb-api/internal/models"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "bearer_token"
)

// WithIdentity stores the verified identity and the raw bearer token on the context.
func WithIdentity(ctx context.Context, identity models.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	if token != "" {
		ctx = context.WithValue(ctx, tokenKey, token)
	}
	return ctx
}

func IdentityFromRequest(r *http.Request) (models.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(models.Identity)
	if !ok || identity.ID == "" {
		return models.Identity{}, false
	}
	return identity, true
}

// BearerTokenFromRequest returns the token the identity was verified from, for
// forwarding to the remote invite gateway.
func BearerTokenFromRequest(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenKey).(string)
	return token, ok && token != ""
}
