package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/flowgen/logger"
)

// Recovery recovers from handler panics, logs the stack and answers 500.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", logger.Fields(
					"error", fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
