package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/flowgen/logger"
)

var quietPaths = map[string]bool{
	"/health": true,
	"/alive":  true,
}

// RequestLogger logs every request with method, path, status and duration.
// Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				logger.FieldDuration, duration.Milliseconds(),
			)
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields["request_id"] = id
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
