package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/salespipe/crmgate/internal/gateway"
	"github.com/salespipe/crmgate/internal/handlers/middleware"
	"github.com/salespipe/crmgate/internal/logger"
	"github.com/salespipe/crmgate/internal/service/auth/tokencodec"
)

const (
	rateLimitPerMinute = 300
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(_ context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Token codec verifies access tokens minted by the identity service
	codec, err := tokencodec.New(tokencodec.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	cors := gateway.NewCORSNormalizer(c.AllowedOrigin)
	gate := gateway.NewGate(codec, gateway.ParsePublicRoutes(c.PublicRoutes), cors, log)

	mux := http.NewServeMux()

	// Mount one proxy per upstream. The identity service owns its own
	// paths, so the /auth mount is stripped before forwarding; the
	// notification service expects the full inbound path
	upstreams := []struct {
		mount    string
		rawURL   string
		strip    string
		upstream string
	}{
		{mount: "/auth", rawURL: c.AuthServiceURL, strip: "/auth", upstream: "identity"},
		{mount: "/leads", rawURL: c.LeadServiceURL, strip: "/leads", upstream: "leads"},
		{mount: "/notifications", rawURL: c.NotificationServiceURL, strip: "", upstream: "notifications"},
	}
	for _, u := range upstreams {
		target, err := url.Parse(u.rawURL)
		if err != nil {
			return nil, fmt.Errorf("bad %s service url %q: %w", u.upstream, u.rawURL, err)
		}

		proxy := gateway.NewProxy(gateway.Upstream{
			Name:        u.upstream,
			Target:      target,
			StripPrefix: u.strip,
		}, cors, log)

		mux.Handle(u.mount, proxy)
		mux.Handle(u.mount+"/", proxy)
	}

	// Liveness probe, answered locally
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	// Gate runs innermost so rate limiting and headers cover rejections too
	handler := chain(mux,
		middleware.LoggerMiddleware(log),
		gateway.SecurityHeaders,
		gateway.RateLimit(rateLimitPerMinute, time.Minute, cors),
		gate.Middleware,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handler,
	}, nil
}

// Apply middlewares to handler. The first one in list will be the outermost
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting gateway", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
