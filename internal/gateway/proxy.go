package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/salespipe/crmgate/internal/logger"
)

// Upstream describes one proxied backend service
type Upstream struct {
	// Name shows up in logs only
	Name string

	// Base URL requests are forwarded to
	Target *url.URL

	// Path prefix removed before forwarding, e.g. the /auth mount is
	// stripped so the identity service sees /login, not /auth/login.
	// Empty keeps the inbound path as is.
	StripPrefix string
}

// NewProxy builds the reverse proxy for one upstream. Auth decisions were
// made by the Gate before a request gets here; the proxy only rewrites the
// path, forwards, and normalizes CORS on the way back.
func NewProxy(up Upstream, cors CORSNormalizer, log logger.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(up.Target)
			pr.Out.URL.Path = rewritePath(pr.In.URL.Path, up.StripPrefix)
			pr.Out.URL.RawPath = ""
			pr.SetXForwarded()

			log.Debug("proxying request",
				"upstream", up.Name,
				"method", pr.In.Method,
				"path", pr.In.URL.Path,
				"target", pr.Out.URL.String(),
			)
		},
		ModifyResponse: cors.NormalizeResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("upstream unavailable",
				"upstream", up.Name,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err.Error(),
			)
			// The upstream never answered, so the normalizer never ran;
			// keep the error readable cross-origin
			cors.ApplyTo(w.Header(), r)
			writeMessage(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
}

func rewritePath(path string, stripPrefix string) string {
	if stripPrefix == "" {
		return path
	}

	rewritten := strings.TrimPrefix(path, stripPrefix)
	if !strings.HasPrefix(rewritten, "/") {
		rewritten = "/" + rewritten
	}
	return rewritten
}
