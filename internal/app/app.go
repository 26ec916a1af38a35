package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"posgate/internal/config"
	"posgate/internal/database"
	"posgate/internal/infrastructure"
	customMiddleware "posgate/internal/middleware"
	"posgate/internal/registry"
	"posgate/internal/services"
	handlers "posgate/internal/transport/http"
)

const (
	AppName = "pos-license-gate"
	Version = "v1.0.0"
)

// Application represents the main application container.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	DB            *database.DB
	Registry      *registry.Registry
	GateService   *services.GateService
	GateMetrics   *infrastructure.GateMetrics
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication creates a new application instance with dependency
// injection: configuration, logger, telemetry, storage, registry, service,
// router, server, in that order.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the application from an explicit config,
// so tests can instantiate isolated instances.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", Version),
		slog.Bool("company_gating", cfg.Gating.CompanyEnabled))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires storage, registry and the gate service.
func (a *Application) initializeServices() error {
	db, err := database.Open(
		a.Config.Storage.DBPath,
		a.Logger,
		database.WithDebug(a.Config.Storage.Debug),
	)
	if err != nil {
		return fmt.Errorf("failed to open licensing store: %w", err)
	}
	a.DB = db

	a.Registry = registry.New(db.Bun(), a.Logger)

	metrics, err := infrastructure.CreateGateMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.GateMetrics = metrics

	a.GateService = services.NewGateService(
		a.Registry,
		a.Config.Gating.CompanyEnabled,
		metrics,
		a.Logger,
	)
	return nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.GateMetrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	healthHandler := handlers.NewHealthHandler(AppName, Version)
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	r.Get("/healthz", healthHandler.Health)

	checkHandler := handlers.NewCheckHandler(a.GateService, a.Logger)
	r.Mount("/api", checkHandler.Routes())

	adminAuth := customMiddleware.NewAdminAuth(a.Config.Security.AdminToken, a.Logger)
	adminHandler := handlers.NewAdminHandler(a.GateService, a.Logger)
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth.Handler)
		r.Mount("/", adminHandler.Routes())
	})

	// The panel is a static page that prompts for the token itself; the
	// API calls it makes are what the admin middleware protects.
	panelHandler := handlers.NewPanelHandler()
	r.Get("/admin-panel", panelHandler.Panel)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer creates the HTTP server from configuration.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run starts the HTTP server and blocks until shutdown completes.
func (a *Application) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		a.Logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server and releases resources.
func (a *Application) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("database close failed", slog.String("error", err.Error()))
			return err
		}
	}

	a.Logger.Info("application stopped")
	return infrastructure.CloseLogFile()
}

// Handler exposes the configured router, primarily for tests.
func (a *Application) Handler() http.Handler {
	return a.Router
}

// String returns a short identification of the application.
func (a *Application) String() string {
	return fmt.Sprintf("%s %s (port %d)", AppName, Version, a.Config.Server.Port)
}
