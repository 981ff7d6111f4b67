package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/ReinsDesk/internal/middleware"
)

// NewRouter constructs the HTTP handler of the stub backend.
//
// Routes:
//
//	POST   /api/auth/register  → authHandler.Register
//	POST   /api/auth/login     → authHandler.Login
//	GET    /api/auth/me        → authHandler.Me          (bearer)
//	GET    /api/properties     → propertyHandler.List    (bearer)
//	POST   /api/properties     → propertyHandler.Create  (bearer, multipart)
//	GET    /api/properties/{id} → propertyHandler.Get    (bearer)
//	DELETE /api/properties/{id} → propertyHandler.Delete (bearer)
//	GET    /files/*            → propertyHandler.File
//
// Browser front ends on corsOrigins may call the API; an empty list
// disables CORS handling.
func NewRouter(
	authHandler *AuthHandler,
	propertyHandler *PropertyHandler,
	verifier middleware.TokenVerifier,
	corsOrigins []string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(verifier))
			r.Get("/auth/me", authHandler.Me)
			r.Get("/properties", propertyHandler.List)
			r.Post("/properties", propertyHandler.Create)
			r.Get("/properties/{id}", propertyHandler.Get)
			r.Delete("/properties/{id}", propertyHandler.Delete)
		})
	})
	r.Get("/files/*", propertyHandler.File)

	return r
}
