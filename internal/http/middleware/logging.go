package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// scheduleParams are the query parameters worth a log attribute of their own.
var scheduleParams = []string{"group", "all", "from", "to"}

// RequestLogger writes an "api_request" line per request. Schedule filters are
// logged as separate attributes so lookups per group can be counted from logs.
// Throttled requests log at info; other 4xx at warn, 5xx at error.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			query := r.URL.Query()
			for _, name := range scheduleParams {
				if v := query.Get(name); v != "" {
					attrs = append(attrs, name, v)
				}
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, "request_id", reqID)
			}
			if status == http.StatusTooManyRequests {
				attrs = append(attrs, "client", clientKey(r), "retry_after", ww.Header().Get("Retry-After"))
				logger.Info("api_request_throttled", attrs...)
				return
			}

			switch {
			case status >= 500:
				logger.Error("api_request", attrs...)
			case status >= 400:
				logger.Warn("api_request", attrs...)
			default:
				logger.Info("api_request", attrs...)
			}
		})
	}
}
