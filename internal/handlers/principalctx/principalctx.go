package principalctx

import (
	"context"

	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context carrying the verified token claims
func New(ctx context.Context, claims tokencodec.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Extract the verified token claims from the context
func FromContext(ctx context.Context) (tokencodec.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(tokencodec.Claims)
	return claims, ok
}
