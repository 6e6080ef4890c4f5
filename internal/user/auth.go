package user

import (
	"context"
	"net/http"
	"strings"

	"github.com/vitalvas/fastapify/internal/api"
	"github.com/vitalvas/fastapify/internal/logger"
	"github.com/vitalvas/fastapify/router"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Authenticate requires a valid "Authorization: Bearer <access token>".
func Authenticate(tokens *TokenIssuer) router.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				api.WriteError(w, r, api.Unauthorized("Unauthorized: No token provided"))
				return
			}

			claims, err := tokens.VerifyAccess(strings.TrimSpace(token))
			if err != nil {
				logger.FromContext(r.Context()).Debug("access token rejected", "error", err)
				api.WriteError(w, r, api.Unauthorized("Unauthorized: Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
