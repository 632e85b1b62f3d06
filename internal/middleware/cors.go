package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders = []string{"Authorization", "Content-Type"}
	corsExposedHeaders = []string{"Content-Disposition", "Content-Length", "X-Request-ID"}
)

const corsMaxAge = 3600

// CORS admits cross-origin browser requests from allowedOrigin and answers
// preflight requests directly. "*" allows any origin without credentials; an
// empty origin disables CORS handling.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	allowedOrigin = strings.TrimRight(strings.TrimSpace(allowedOrigin), "/")
	if allowedOrigin == "" {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   corsAllowedHeaders,
		ExposedHeaders:   corsExposedHeaders,
		AllowCredentials: allowedOrigin != "*",
		MaxAge:           corsMaxAge,
	})
	return c.Handler
}
