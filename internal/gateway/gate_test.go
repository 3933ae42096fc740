package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

func newTestCodec(t *testing.T) *tokencodec.Codec {
	t.Helper()
	codec, err := tokencodec.New(tokencodec.Config{SecretKey: "test-secret"})
	require.NoError(t, err)
	return codec
}

func issueAccess(t *testing.T, codec *tokencodec.Codec) string {
	t.Helper()
	token, err := codec.IssueAccess(models.Principal{
		ID:    uuid.New(),
		Email: "a@x.com",
		Name:  "Anna",
		Role:  models.RoleSales,
	})
	require.NoError(t, err)
	return token.Value
}

// next handler that records the forwarded request
type upstreamSpy struct {
	called        bool
	authorization string
}

func (u *upstreamSpy) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.called = true
		u.authorization = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	})
}

func newTestGate(codec *tokencodec.Codec, public ...string) *Gate {
	return NewGate(codec, NewPublicRoutes(public...), NewCORSNormalizer(""), logger.NewNoOpLogger())
}

func TestGate_Preflight(t *testing.T) {
	codec := newTestCodec(t)
	gate := newTestGate(codec)

	t.Run("answered directly with reflected origin", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("OPTIONS", "/leads", nil)
		req.Header.Set("Origin", "https://crm.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type, x-csrf-token")

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.False(t, spy.called, "preflight must never be forwarded upstream")
		require.Equal(t, "https://crm.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		require.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
		require.Equal(t, "content-type, x-csrf-token", rec.Header().Get("Access-Control-Allow-Headers"))
		require.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("no authentication required", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("OPTIONS", "/leads", nil)
		req.Header.Set("Origin", "https://crm.example.com")

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.False(t, spy.called)
	})

	t.Run("preflight wins over everything else", func(t *testing.T) {
		// Mutating path, no token, no csrf: still a plain 204
		spy := &upstreamSpy{}
		req := httptest.NewRequest("OPTIONS", "/notifications", nil)
		req.Header.Set("Origin", "https://crm.example.com")

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGate_PublicRoutes(t *testing.T) {
	codec := newTestCodec(t)
	gate := newTestGate(codec, "/auth/login", "/auth/register", "/auth/refresh", "/health")

	t.Run("public path bypasses authentication", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("POST", "/auth/login", nil)

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, spy.called)
	})

	t.Run("invalid token on public path is ignored", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("POST", "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: "expired-garbage"})

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, spy.called, "allowlist must win before authentication runs")
	})

	t.Run("prefix match against raw path", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/auth/loginhistory", nil)

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.True(t, spy.called, "plain prefix semantics, not segment-wise")
	})
}

func TestGate_Authentication(t *testing.T) {
	codec := newTestCodec(t)
	gate := newTestGate(codec)

	t.Run("missing cookie", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/leads", nil)

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, spy.called)
		require.JSONEq(t, `{"message": "Unauthorized"}`, rec.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/leads", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: "garbage"})

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"message": "Invalid token"}`, rec.Body.String())
	})

	t.Run("expired token", func(t *testing.T) {
		expired, err := codec.Issue(models.Principal{ID: uuid.New()}, models.TokenKindAccess, -time.Minute)
		require.NoError(t, err)

		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/leads", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: expired.Value})

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.False(t, spy.called)
	})

	t.Run("refresh token in access cookie rejected", func(t *testing.T) {
		refresh, err := codec.IssueRefresh(models.Principal{ID: uuid.New()})
		require.NoError(t, err)

		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/leads", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: refresh.Value})

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token forwarded as bearer", func(t *testing.T) {
		token := issueAccess(t, codec)

		spy := &upstreamSpy{}
		req := httptest.NewRequest("GET", "/leads", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: token})

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, spy.called)
		require.Equal(t, "Bearer "+token, spy.authorization, "gate must rewrite the authorization header")
	})
}

func TestGate_RejectionsReadableCrossOrigin(t *testing.T) {
	codec := newTestCodec(t)

	// The client reacts to a 401 by running the refresh exchange, so the
	// browser must be allowed to surface the status cross-origin
	t.Run("401 carries reflected origin", func(t *testing.T) {
		gate := NewGate(codec, NewPublicRoutes(), NewCORSNormalizer("https://crm.example.com"), logger.NewNoOpLogger())

		req := httptest.NewRequest("GET", "/leads", nil)
		req.Header.Set("Origin", "https://crm.example.com")

		rec := httptest.NewRecorder()
		gate.Middleware((&upstreamSpy{}).handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "https://crm.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		require.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("csrf 403 carries reflected origin", func(t *testing.T) {
		gate := newTestGate(codec)

		req := httptest.NewRequest("POST", "/leads", nil)
		req.Header.Set("Origin", "https://crm.example.com")
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: issueAccess(t, codec)})

		rec := httptest.NewRecorder()
		gate.Middleware((&upstreamSpy{}).handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "https://crm.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin stays hidden", func(t *testing.T) {
		gate := NewGate(codec, NewPublicRoutes(), NewCORSNormalizer("https://crm.example.com"), logger.NewNoOpLogger())

		req := httptest.NewRequest("GET", "/leads", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		rec := httptest.NewRecorder()
		gate.Middleware((&upstreamSpy{}).handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin rejection untouched", func(t *testing.T) {
		gate := newTestGate(codec)

		req := httptest.NewRequest("GET", "/leads", nil)

		rec := httptest.NewRecorder()
		gate.Middleware((&upstreamSpy{}).handler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestGate_CSRF(t *testing.T) {
	codec := newTestCodec(t)
	gate := newTestGate(codec)
	token := issueAccess(t, codec)

	send := func(t *testing.T, method string, csrfCookie string, csrfHeader string) (*httptest.ResponseRecorder, *upstreamSpy) {
		t.Helper()

		spy := &upstreamSpy{}
		req := httptest.NewRequest(method, "/leads", nil)
		req.AddCookie(&http.Cookie{Name: models.CookieAccess, Value: token})
		if csrfCookie != "" {
			req.AddCookie(&http.Cookie{Name: models.CookieCSRF, Value: csrfCookie})
		}
		if csrfHeader != "" {
			req.Header.Set(models.CSRFHeader, csrfHeader)
		}

		rec := httptest.NewRecorder()
		gate.Middleware(spy.handler()).ServeHTTP(rec, req)
		return rec, spy
	}

	t.Run("mutating without header rejected", func(t *testing.T) {
		rec, spy := send(t, "POST", "csrf-value", "")
		require.Equal(t, http.StatusForbidden, rec.Code, "403 tells the client to resend with the header, not to log in again")
		require.False(t, spy.called)
		require.JSONEq(t, `{"message": "CSRF validation failed"}`, rec.Body.String())
	})

	t.Run("mutating without cookie rejected", func(t *testing.T) {
		rec, _ := send(t, "DELETE", "", "csrf-value")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		rec, _ := send(t, "PUT", "csrf-value", "other-value")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("match forwarded", func(t *testing.T) {
		rec, spy := send(t, "POST", "csrf-value", "csrf-value")
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, spy.called)
	})

	t.Run("safe verbs skip the check", func(t *testing.T) {
		for _, method := range []string{"GET", "HEAD"} {
			rec, spy := send(t, method, "", "")
			require.Equalf(t, http.StatusOK, rec.Code, "%s must not require csrf", method)
			require.True(t, spy.called)
		}
	})
}
