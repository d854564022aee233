package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gatherhub/server/internal/api/problem"
)

// Recover converts handler panics into a 500 problem response instead of
// tearing down the connection.
func Recover(env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger := zerolog.Ctx(r.Context())
					logger.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Str("method", r.Method).
						Msg("handler panic")
					problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, env)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
