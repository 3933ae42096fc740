package gateway

import (
	"net/http"
	"strings"
)

// CORSNormalizer produces exactly one consistent set of credentialed CORS
// headers per response. Browsers reject `Access-Control-Allow-Origin: *`
// combined with credentials, so upstream-set CORS headers are stripped and
// the literal requesting origin is reflected instead, never a wildcard.
type CORSNormalizer struct {
	// Origin allowed to make credentialed requests.
	// Empty means reflect any requesting origin (development)
	allowedOrigin string
}

func NewCORSNormalizer(allowedOrigin string) CORSNormalizer {
	return CORSNormalizer{allowedOrigin: allowedOrigin}
}

func (n CORSNormalizer) originAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	return n.allowedOrigin == "" || origin == n.allowedOrigin
}

// Preflight answers a cross-origin preflight directly. Terminal: the
// request never reaches the allowlist, authentication or the proxy.
func (n CORSNormalizer) Preflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	// Vary on every answer, disallowed ones included, or a cache could
	// serve the bare response to the allowed origin
	appendVary(h, "Origin")
	if origin := r.Header.Get("Origin"); n.originAllowed(origin) {
		n.reflect(h, r, origin)
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyTo reflects CORS headers onto a response written by the gateway
// itself: gate rejections, rate limit and bad-gateway errors. Without
// them the browser hides the status from a credentialed cross-origin
// caller and clients cannot react to a 401 by refreshing their session.
func (n CORSNormalizer) ApplyTo(h http.Header, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	appendVary(h, "Origin")
	if n.originAllowed(origin) {
		n.reflect(h, r, origin)
	}
}

// NormalizeResponse rewrites CORS headers on a proxied response.
// Wired as the reverse proxy's ModifyResponse hook.
func (n CORSNormalizer) NormalizeResponse(resp *http.Response) error {
	req := resp.Request
	if req == nil {
		return nil
	}

	origin := req.Header.Get("Origin")
	if origin == "" {
		// Same-origin request, leave the response alone
		return nil
	}

	// Drop whatever the upstream decided about CORS, wildcard or not
	resp.Header.Del("Access-Control-Allow-Origin")
	resp.Header.Del("Access-Control-Allow-Credentials")

	appendVary(resp.Header, "Origin")
	if n.originAllowed(origin) {
		n.reflect(resp.Header, req, origin)
	}

	return nil
}

func (n CORSNormalizer) reflect(h http.Header, r *http.Request, origin string) {
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")

	if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		h.Set("Access-Control-Allow-Headers", requested)
	}
	if requested := r.Header.Get("Access-Control-Request-Method"); requested != "" {
		h.Set("Access-Control-Allow-Methods", requested)
	}
}

// appendVary adds the value to an existing Vary header or sets it, so
// caches never serve one origin's CORS headers to another. Idempotent:
// an upstream that already varies on the value is left alone.
func appendVary(h http.Header, value string) {
	vary := h.Get("Vary")
	if vary == "" {
		h.Set("Vary", value)
		return
	}

	for _, v := range strings.Split(vary, ",") {
		if strings.EqualFold(strings.TrimSpace(v), value) {
			return
		}
	}
	h.Set("Vary", vary+", "+value)
}
