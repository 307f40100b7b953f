package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS is only mounted when CORS_ALLOWED_ORIGINS is set.
func CORS(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}
