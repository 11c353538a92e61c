package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS lets the dashboard frontend call the API from its own origin. Tokens
// travel in the Authorization header, so credentials stay disabled.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		MaxAge:           600,
		AllowCredentials: false,
	})

	return handler.Handler
}
