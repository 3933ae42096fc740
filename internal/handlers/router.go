package handlers

import (
	"context"
	"net/http"

	"github.com/salespipe/crmgate/internal/handlers/middleware"
	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter wires the identity service endpoints. The service normally sits
// behind the gateway's /auth mount, so paths here are mount-relative.
func NewRouter(as authService, log logger.Logger) http.Handler {
	withAuth := middleware.BearerAuth(as)
	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleManager)

	mux := http.NewServeMux()

	mux.Handle("POST /register", handleRegister(as, log))
	mux.Handle("POST /login", handleLogin(as, log))
	mux.Handle("POST /refresh", handleRefresh(as, log))
	mux.Handle("POST /logout", handleLogout(as))

	mux.Handle("GET /me", withAuth(handleMe(as, log)))
	mux.Handle("GET /principals", chain(handleListPrincipals(as, log), withAuth, staffOnly))

	return chain(mux,
		middleware.LoggerMiddleware(log),
	)
}

type authService interface {
	// Register a principal
	// Has to return apperrors.ErrPrincipalExists if the email is taken
	Register(ctx context.Context, arg auth.RegisterParams) (models.Principal, error)

	// Login with email and password
	// Has to return apperrors.ErrInvalidCredentials for unknown email
	// and wrong password alike
	Login(ctx context.Context, email string, password string) (models.Principal, models.Session, error)

	// Exchange a refresh token for new access and csrf tokens
	// Returns apperrors token sentinels on any verification failure
	Refresh(ctx context.Context, refresh string) (models.Session, error)

	// Verify a bearer access token with the shared secret
	VerifyAccess(ctx context.Context, token string) (tokencodec.Claims, error)

	// Resolve the fresh principal record for verified claims
	GetPrincipal(ctx context.Context, claims tokencodec.Claims) (models.Principal, error)
	ListPrincipals(ctx context.Context) ([]models.Principal, error)

	// Cookie delivery
	SetSessionCookies(w http.ResponseWriter, session models.Session)
	SetRefreshedCookies(w http.ResponseWriter, session models.Session)
	ClearSessionCookies(w http.ResponseWriter)
	ReadRefreshToken(r *http.Request) (string, error)
}
