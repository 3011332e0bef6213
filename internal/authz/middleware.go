package authz

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bookclurb/clurb-api/internal/auth"
)

// Authenticate requires a verifiable bearer token and puts the identity on
// the request context.
func Authenticate(verifier auth.Verifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			token := strings.TrimSpace(parts[1])

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug().Err(err).Str("path", r.URL.Path).Msg("rejected bearer token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := WithIdentity(r.Context(), identity, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
