package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mediagrab/mediagrab/internal/metrics"
)

// Operational paths that bypass limiting entirely.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
	"/docs":    {},
}

// Middleware wraps the whole inbound path with the sliding-window limiter.
// Clients are keyed by the first X-Forwarded-For hop when present, else the
// socket address.
func Middleware(l *Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, exempt := exemptPaths[r.URL.Path]; exempt {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			d := l.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Window", strconv.Itoa(int(l.Window().Seconds())))

			if !d.Allowed {
				retry := int(d.RetryAfter.Seconds())
				if retry < 1 {
					retry = 1
				}
				logger.Warn("rate limit exceeded", zap.String("client", key))
				metrics.ObserveLimiterRejection()
				w.Header().Set("X-RateLimit-Reset", strconv.Itoa(retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"status":  "error",
					"error":   "RATE_LIMIT_EXCEEDED",
					"message": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retry),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
