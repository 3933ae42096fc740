package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/models"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

type accessVerifier interface {
	Verify(tokenString string, expectedKind models.TokenKind) (tokencodec.Claims, error)
}

// Gate makes the per-request authorization decision in a fixed order:
// preflight short-circuit, public allowlist, access token verification,
// CSRF check for mutating verbs, then forward. A later stage never runs
// once an earlier one has rejected.
type Gate struct {
	verifier accessVerifier
	public   *PublicRoutes
	cors     CORSNormalizer
	log      logger.Logger
}

func NewGate(verifier accessVerifier, public *PublicRoutes, cors CORSNormalizer, log logger.Logger) *Gate {
	return &Gate{
		verifier: verifier,
		public:   public,
		cors:     cors,
		log:      log,
	}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Preflights are answered here, never forwarded and never
		// required to authenticate
		if r.Method == http.MethodOptions {
			g.cors.Preflight(w, r)
			return
		}

		if g.public.Match(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(models.CookieAccess)
		if err != nil || cookie.Value == "" {
			g.reject(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if _, err := g.verifier.Verify(cookie.Value, models.TokenKindAccess); err != nil {
			g.log.Debug("access token rejected", "path", r.URL.Path, "error", err.Error())
			g.reject(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}

		if isMutating(r.Method) && !csrfValid(r) {
			g.reject(w, r, http.StatusForbidden, "CSRF validation failed")
			return
		}

		// Upstream services re-verify this token with the shared secret,
		// the gate's word is not trusted on its own
		r.Header.Set("Authorization", "Bearer "+cookie.Value)
		next.ServeHTTP(w, r)
	})
}

// Rejections carry CORS headers too: cross-origin clients must be able
// to read the status, a 401 is their cue to run the refresh exchange
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, code int, message string) {
	g.cors.ApplyTo(w.Header(), r)
	writeMessage(w, code, message)
}

// The three safe verbs skip the CSRF check, everything else mutates
func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Double-submit check: header and cookie must both be present and byte-equal
func csrfValid(r *http.Request) bool {
	header := r.Header.Get(models.CSRFHeader)
	cookie, err := r.Cookie(models.CookieCSRF)
	if header == "" || err != nil || cookie.Value == "" {
		return false
	}
	return header == cookie.Value
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
