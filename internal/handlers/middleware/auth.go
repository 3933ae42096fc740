package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/salespipe/crmgate/internal/handlers/principalctx"
	"github.com/salespipe/crmgate/internal/handlers/render"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

type accessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (tokencodec.Claims, error)
}

// BearerAuth verifies the Authorization header the gateway injects.
// The token is fully re-verified with the shared secret here: handlers never
// trust the gateway's word alone. Claims land in the request context.
func BearerAuth(verifier accessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyAccess(r.Context(), token)
			if err != nil {
				render.ServiceError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := principalctx.New(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the verified claims carry
// one of the listed roles. Must run after BearerAuth.
func RequireRole(allowed ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := principalctx.FromContext(r.Context())
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range allowed {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.ServiceError(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
