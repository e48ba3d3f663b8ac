package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSConfig configures cross-origin access for the canvas UI.
type CORSConfig struct {
	AllowedOrigins   []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string      `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `yaml:"exposed_headers" mapstructure:"exposed_headers"`
	AllowCredentials bool          `yaml:"allow_credentials" mapstructure:"allow_credentials"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

// CORS answers preflight requests itself and decorates every other
// response from an allowed origin.
func CORS(cfg *CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")
			allowed := origin != "" && originAllowed(origin, cfg.AllowedOrigins)
			if allowed {
				writeCORS(w.Header(), origin, cfg)
			}
			if r.Method == http.MethodOptions {
				if allowed && cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCORS(h http.Header, origin string, cfg *CORSConfig) {
	h.Set("Access-Control-Allow-Origin", origin)
	for name, values := range map[string][]string{
		"Access-Control-Allow-Methods":  cfg.AllowedMethods,
		"Access-Control-Allow-Headers":  cfg.AllowedHeaders,
		"Access-Control-Expose-Headers": cfg.ExposedHeaders,
	} {
		if len(values) > 0 {
			h.Set(name, strings.Join(values, ", "))
		}
	}
	if cfg.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func originAllowed(origin string, allowed []string) bool {
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
