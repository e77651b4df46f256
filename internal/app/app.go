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
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/analysis"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/config"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/decoder"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/erp"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/exporter"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/infrastructure"
	customMiddleware "github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/middleware"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/services"
	"github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/summary"
	handlers "github.com/mpretel-sketch/Analisis-Venta-Motor-YoY/internal/transport/http"
)

const (
	VERSION = "1.2.0"
	AppName = "Early Warning - Motor YoY"
)

// Application wires configuration, services and the HTTP server.
type Application struct {
	Config  *config.Config
	Router  *chi.Mux
	Server  *http.Server
	Service *services.AnalysisService
	Logger  *slog.Logger

	registry *prometheus.Registry
}

// NewApplication builds the full dependency graph from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the application around an already loaded
// configuration. Used directly by tests and the report CLI.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger := infrastructure.InitializeLogger(cfg.Logging)

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION))

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the service layer bottom-up.
func (a *Application) initializeServices() {
	cache := decoder.NewTableCache(decoder.New(a.Logger), a.Config.Cache.Tables, a.Logger)
	analyzer := analysis.NewAnalyzer(a.Logger)
	writer := exporter.NewReportWriter(a.Logger)

	// Unconfigured integrations stay a plain nil so typed nils never
	// reach the interface fields.
	var generator summary.Generator
	if g := summary.NewChatGenerator(a.Config.Summary); g != nil {
		generator = g
		a.Logger.Info("narrative generator enabled", slog.String("model", a.Config.Summary.Model))
	}
	summarizer := summary.NewService(generator, a.Config.Summary.Timeout, a.Logger)

	var erpClient services.ERPClient
	if a.Config.ERP.Enabled() {
		erpClient = erp.NewClient(a.Config.ERP, a.Logger)
		a.Logger.Info("erp integration enabled", slog.String("account", a.Config.ERP.AccountID))
	}

	a.Service = services.NewAnalysisService(cache, analyzer, writer, summarizer, erpClient, a.Logger)
}

// setupRouter configures the HTTP router and middleware chain. Ordering:
// RequestID -> RealIP -> Logger -> Recoverer -> SecurityHeaders -> CORS ->
// RateLimit -> Metrics.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.Compress(5))

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
			Logger:         a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector())
	a.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := customMiddleware.NewMetrics(a.registry)

	r.Route("/api", func(r chi.Router) {
		r.Use(metrics.Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		analysisHandler := handlers.NewAnalysisHandler(a.Service, a.Config.Upload.MaxSizeBytes, a.Logger)
		r.Mount("/", analysisHandler.Routes())

		healthHandler := handlers.NewHealthHandler(VERSION, a.Service.CacheStats)
		r.Get("/health", healthHandler.Health)
	})

	// Outside the API group so scrapes skip CORS and rate limiting.
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.ListenAddr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start runs the server in the background; a listen failure cancels the
// application context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("addr", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level),
		slog.Bool("erp_enabled", a.Config.ERP.Enabled()),
		slog.Bool("summary_enabled", a.Config.Summary.Enabled()))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop drains in-flight requests within the configured shutdown timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.Start(ctx, cancel)

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(ctx)
}
