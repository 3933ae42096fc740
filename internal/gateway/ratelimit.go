package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// Fixed-window per-client limiter. Windows are coarse on purpose: this is
// edge protection against runaway clients, not fair queueing.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func (l *rateLimiter) allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		l.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// RateLimit rejects clients exceeding limit requests per window with 429.
// Keyed by client IP; requests with an unparsable remote address pass.
func RateLimit(limit int, window time.Duration, cors CORSNormalizer) func(http.Handler) http.Handler {
	limiter := &rateLimiter{buckets: make(map[string]*rateBucket)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil || host == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.allow(host, limit, window) {
				cors.ApplyTo(w.Header(), r)
				writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
