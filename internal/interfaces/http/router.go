package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/internal/interfaces/http/handlers"
	"github.com/turtacn/plotinfo/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil entries are skipped.
type RouterConfig struct {
	PlotHandler   *handlers.PlotHandler
	HealthHandler *handlers.HealthHandler

	CORSMiddleware      *middleware.CORSMiddleware
	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.PlotInfoMetrics
	MetricsPath      string
}

// NewRouter builds the route tree: health checks and metrics at the root, the plot
// API under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	if cfg.RateLimitMiddleware != nil {
		r.Use(cfg.RateLimitMiddleware.Handler)
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
		r.Get("/healthz/detail", cfg.HealthHandler.Detailed)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerPlotRoutes(api, cfg.PlotHandler)
	})

	return r
}

// registerPlotRoutes mounts the plot endpoints under /plots.
func registerPlotRoutes(r chi.Router, h *handlers.PlotHandler) {
	if h == nil {
		return
	}
	r.Route("/plots", func(pr chi.Router) {
		pr.Get("/", h.PlotsAtPoint)

		pr.Route("/{egrid}", func(item chi.Router) {
			item.Get("/", h.PlotByEGRID)
			item.Get("/queries", h.Queries)
			item.Get("/queries/{key}", h.Query)
			item.Post("/queries/{key}/pdf", h.DownloadPDF)
			item.Get("/extract", h.Extract)
			item.Get("/extract/themes/{code}", h.Theme)
		})
	})
}
