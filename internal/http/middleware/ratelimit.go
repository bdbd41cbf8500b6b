package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"outagereminder/internal/rate"
)

// RateLimit refuses clients that exceed limiter with 429 and a Retry-After
// header. Clients are keyed by remote IP, so it belongs after chi's RealIP.
func RateLimit(limiter *rate.WindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := limiter.Allow(clientKey(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
