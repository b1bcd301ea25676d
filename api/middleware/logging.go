package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/jetfund/jetfund-backend/pkg/logger"
)

// probes are polled constantly; only their completion is logged.
var quietPrefixes = []string{"/health/", "/metrics"}

func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
				"ip":     clientIP(r),
			})

			quiet := isQuiet(r.URL.Path)
			if !quiet {
				logg.Info(ctx, "request.start")
			}

			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			fields := map[string]any{
				"status":      rec.statusOrOK(),
				"bytes":       rec.bytes,
				"route":       routeLabel(r),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if quiet && rec.statusOrOK() < http.StatusBadRequest {
				logg.Debug(logg.WithFields(ctx, fields), "request.complete")
				return
			}
			logg.Info(logg.WithFields(ctx, fields), "request.complete")
		})
	}
}

func isQuiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
