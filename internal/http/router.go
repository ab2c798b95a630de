package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"contacts-api/internal/auth"
	"contacts-api/internal/config"
	"contacts-api/internal/contact"
	"contacts-api/internal/httputil"
	"contacts-api/internal/logging"
	"contacts-api/internal/ratelimit"
)

// Rate limits enforced per authenticated identity (original API contract:
// reads allow 10 requests per minute, creation 3 per 5 minutes).
const (
	readLimit    = 10
	readWindow   = time.Minute
	createLimit  = 3
	createWindow = 5 * time.Minute
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	logger *logging.Logger,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	contactHandler *contact.Handler,
	limiter *ratelimit.Limiter,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Get("/refresh_token", authHandler.Refresh)
		r.Get("/confirmed_email/{token}", authHandler.ConfirmEmail)
		r.Post("/request_email", authHandler.RequestEmail)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/logout", authHandler.Logout)
		})
	})

	// User routes (protected)
	r.Route("/api/users", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/me", authHandler.Me)
		r.Patch("/avatar", authHandler.UpdateAvatar)
	})

	// Contact routes (protected, rate limited per identity)
	r.Route("/api/contacts", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.With(limiter.Limit("contacts:list", readLimit, readWindow)).
			Get("/", contactHandler.Search)
		r.With(limiter.Limit("contacts:birthdays", readLimit, readWindow)).
			Get("/birthdays", contactHandler.Birthdays)
		r.With(limiter.Limit("contacts:get", readLimit, readWindow)).
			Get("/{id}", contactHandler.Get)
		r.With(limiter.Limit("contacts:create", createLimit, createWindow)).
			Post("/", contactHandler.Create)
		r.Put("/{id}", contactHandler.Update)
		r.Delete("/{id}", contactHandler.Delete)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
