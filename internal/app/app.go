package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-content-dashboard/internal/cache"
	"go-content-dashboard/internal/config"
	"go-content-dashboard/internal/database"
	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/handler"
	"go-content-dashboard/internal/middleware"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/internal/router"
	"go-content-dashboard/internal/service"
	"go-content-dashboard/internal/websocket"
)

type App struct {
	server       *http.Server
	cancel       context.CancelFunc
	cleanupFuncs []func()
}

// Components is everything the HTTP layer needs, built from one config.
type Components struct {
	Handler http.Handler
	Tokens  *service.TokenService
	Stores  repository.Set
}

func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cancel: cancel}

	stores, health, err := a.openStores(ctx, cfg)
	if err != nil {
		a.cleanup()
		cancel()
		return nil, err
	}

	denylist, err := a.openDenylist(ctx, cfg)
	if err != nil {
		a.cleanup()
		cancel()
		return nil, err
	}

	components, err := Build(ctx, cfg, stores, denylist, health)
	if err != nil {
		a.cleanup()
		cancel()
		return nil, err
	}

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           components.Handler,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}
	return a, nil
}

// Build wires services, handlers and background workers onto the given
// stores. Workers stop when ctx is cancelled.
func Build(ctx context.Context, cfg *config.Config, stores repository.Set, denylist service.Denylist, health router.HealthCheck) (*Components, error) {
	handler.ExposeInternalErrors(cfg.ExposeInternalErrors)

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, denylist)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	hub.Start(ctx)

	auditService := service.NewAuditService(stores.Audit)
	auditService.Start(ctx, bus)

	authService, err := service.NewAuthService(stores.Users, tokens, cfg.BcryptCost, bus)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	postService := service.NewPostService(stores.Posts, bus, service.PostServiceOptions{
		DeleteRequiresOwner: cfg.PostDeleteRequiresOwner,
	})
	calendarService := service.NewCalendarService(stores.Events, bus)

	if !cfg.PostDeleteRequiresOwner {
		slog.Warn("post deletion is public; set POST_DELETE_REQUIRES_OWNER=true to restrict it to the author")
	}

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(tokens), router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Posts:    handler.NewPostHandler(postService),
		Calendar: handler.NewCalendarHandler(calendarService),
		Audit:    handler.NewAuditHandler(auditService),
		Events:   handler.NewEventsHandler(hub, cfg.CORSOrigins),
	}, health)

	return &Components{Handler: appRouter, Tokens: tokens, Stores: stores}, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (repository.Set, router.HealthCheck, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; using the in-memory store, data is lost on restart")
		return repository.NewMemory(), nil, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return repository.Set{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		return repository.Set{}, nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	return repository.NewPostgres(db.Pool), db.Ping, nil
}

func (a *App) openDenylist(ctx context.Context, cfg *config.Config) (service.Denylist, error) {
	if cfg.RedisAddr == "" {
		slog.Info("REDIS_ADDR is not set; logout will not revoke tokens")
		return nil, nil
	}

	client := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

	slog.Info("token denylist enabled", "addr", cfg.RedisAddr)
	return repository.NewRedisDenylist(client), nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closes live feed connections and stops the audit recorder.
	a.cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
