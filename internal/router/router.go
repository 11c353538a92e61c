package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-content-dashboard/internal/config"
	"go-content-dashboard/internal/handler"
	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Posts    *handler.PostHandler
	Calendar *handler.CalendarHandler
	Audit    *handler.AuditHandler
	Events   *handler.EventsHandler
}

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, health HealthCheck) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(metrics.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				slog.Warn("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	deleteAuth := authMiddleware.OptionalAuth
	if cfg.PostDeleteRequiresOwner {
		deleteAuth = authMiddleware.RequireAuth
	}

	r.Route("/api", func(api chi.Router) {
		// The live feed is long-lived and needs the raw connection.
		if h.Events != nil {
			api.With(authMiddleware.RequireAuthOrQuery).Get("/events", h.Events.Serve)
		}

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(cfg.RequestTimeout))

			rest.Route("/auth", func(auth chi.Router) {
				auth.Post("/register", h.Auth.Register)
				auth.Post("/login", h.Auth.Login)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
				auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			})

			rest.Route("/posts", func(posts chi.Router) {
				posts.Get("/", h.Posts.List)
				posts.Get("/analytics", h.Posts.Analytics)
				posts.Get("/{id}", h.Posts.Get)
				posts.With(authMiddleware.RequireAuth).Post("/", h.Posts.Create)
				posts.With(authMiddleware.RequireAuth).Put("/{id}", h.Posts.Update)
				posts.With(deleteAuth).Delete("/{id}", h.Posts.Delete)
			})

			rest.Route("/calendar", func(calendar chi.Router) {
				calendar.Use(authMiddleware.RequireAuth)
				calendar.Get("/", h.Calendar.List)
				calendar.Post("/", h.Calendar.Create)
				calendar.Put("/{id}", h.Calendar.Update)
				calendar.Delete("/{id}", h.Calendar.Delete)
			})

			rest.With(authMiddleware.RequireAuth).Get("/audit", h.Audit.List)
		})
	})

	return r
}
