// Package cors configures cross-origin access to the API.
package cors

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// MaxAge is how long browsers may cache a preflight response, in seconds.
const MaxAge = 300

// Middleware allows the given origins to call the API. "*" allows any origin;
// an empty list disables cross-origin access.
func Middleware(allowOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowOrigins))
	for _, o := range allowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           MaxAge,
	})
}
