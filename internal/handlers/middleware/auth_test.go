package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/salespipe/crmgate/internal/apperrors"
	"github.com/salespipe/crmgate/internal/handlers/principalctx"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

// Allow to use a function as access verifier
type verifierFunc func(ctx context.Context, token string) (tokencodec.Claims, error)

func (f verifierFunc) VerifyAccess(ctx context.Context, token string) (tokencodec.Claims, error) {
	return f(ctx, token)
}

func TestBearerAuth(t *testing.T) {
	// Handler that echoes the authenticated principal's email
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := principalctx.FromContext(r.Context())
		require.True(t, ok, "middleware must put claims into context before the handler runs")

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(claims.Email))
		require.NoError(t, err)
	})

	okVerifier := verifierFunc(func(ctx context.Context, token string) (tokencodec.Claims, error) {
		require.Equal(t, "valid-token", token)
		return tokencodec.Claims{Email: "a@x.com", Role: models.RoleSales}, nil
	})

	t.Run("valid bearer token", func(t *testing.T) {
		srv := httptest.NewServer(BearerAuth(okVerifier)(handler))
		defer srv.Close()

		req, err := http.NewRequest("GET", srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer valid-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "a@x.com", string(body))
	})

	t.Run("missing header", func(t *testing.T) {
		srv := httptest.NewServer(BearerAuth(okVerifier)(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejected token", func(t *testing.T) {
		rejecting := verifierFunc(func(ctx context.Context, token string) (tokencodec.Claims, error) {
			return tokencodec.Claims{}, apperrors.ErrTokenExpired
		})

		srv := httptest.NewServer(BearerAuth(rejecting)(handler))
		defer srv.Close()

		req, err := http.NewRequest("GET", srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer expired-token")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRequireRole(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(t *testing.T, role models.Role, allowed ...models.Role) int {
		t.Helper()

		guarded := RequireRole(allowed...)(handler)
		req := httptest.NewRequest("GET", "/principals", nil)
		req = req.WithContext(principalctx.New(req.Context(), tokencodec.Claims{Role: role}))

		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("allowed role passes", func(t *testing.T) {
		require.Equal(t, http.StatusOK, serve(t, models.RoleAdmin, models.RoleAdmin, models.RoleManager))
	})

	t.Run("other role forbidden", func(t *testing.T) {
		require.Equal(t, http.StatusForbidden, serve(t, models.RoleSales, models.RoleAdmin, models.RoleManager))
	})

	t.Run("no claims unauthorized", func(t *testing.T) {
		guarded := RequireRole(models.RoleAdmin)(handler)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, httptest.NewRequest("GET", "/principals", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
