// API server entry point for the plot-info service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/plotinfo/internal/app"
	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/plotinfo/internal/interfaces/http"
	"github.com/turtacn/plotinfo/internal/interfaces/http/handlers"
	"github.com/turtacn/plotinfo/internal/interfaces/http/middleware"
)

var version = "dev"

const (
	defaultConfigPath = "configs/config.yaml"
	startupTimeout    = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file (empty: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	if _, err := os.Stat(configPath); configPath != "" && os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "config file %s not found, using environment only\n", configPath)
		configPath = ""
	}
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)
	logger.Info("starting plot-info API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("service", cfg.Service.BaseURL),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	a, err := app.New(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Kafka.Enabled {
		ensureEffectTopic(startCtx, cfg.Kafka, logger)
	}
	if configPath != "" {
		watchConfig(configPath, a)
	}

	deps := make([]handlers.Dependency, 0, len(a.Checks))
	for _, c := range a.Checks {
		deps = append(deps, handlers.Dependency{Name: c.Name, Required: c.Required, Check: c.Ping})
	}

	var rateLimit *middleware.RateLimitMiddleware
	if cfg.Server.RateLimit.Enabled {
		rateLimit = middleware.NewRateLimitMiddleware(cfg.Server.RateLimit)
		defer rateLimit.Stop()
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		PlotHandler:         handlers.NewPlotHandler(a.Service, a.MachineConfig(), a.Layers(), a.Saver, a.Metrics, logger.Named("plots")),
		HealthHandler:       handlers.NewHealthHandler(version, deps...),
		CORSMiddleware:      middleware.NewCORSMiddleware(cfg.Server.CORS),
		LoggingMiddleware:   middleware.NewLoggingMiddleware(logger.Named("http"), middleware.DefaultLoggingConfig()),
		RateLimitMiddleware: rateLimit,
		Logger:              logger,
		MetricsCollector:    a.Collector,
		Metrics:             a.Metrics,
		MetricsPath:         cfg.Metrics.Path,
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
		return err
	}
	return nil
}

// ensureEffectTopic creates the map effect topic. Failures are logged; the
// producer reports them again on the first publish.
func ensureEffectTopic(ctx context.Context, kc config.KafkaConfig, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(kc.Brokers, logger)
	if err != nil {
		logger.Warn("cannot reach kafka to check the effect topic", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopic(ctx, kafka.EffectTopic(kc.Topic)); err != nil {
		logger.Warn("effect topic not ensured", logging.String("topic", kc.Topic), logging.Err(err))
	}
}

// watchConfig reacts to configuration file edits. Cached lookups are dropped
// when the service URL changes; every other setting takes effect on restart.
func watchConfig(path string, a *app.App) {
	current := a.Config.Service.BaseURL
	config.Watch(path, func(next *config.Config) {
		a.Logger.Info("configuration file changed", logging.String("path", path))
		if next.Service.BaseURL == current {
			return
		}
		a.Logger.Warn("service base_url changed, restart to apply",
			logging.String("old", current), logging.String("new", next.Service.BaseURL))
		current = next.Service.BaseURL
		if a.Cached == nil {
			return
		}
		n, err := a.Cached.Invalidate(context.Background())
		if err != nil {
			a.Logger.Error("cache invalidation failed", logging.Err(err))
			return
		}
		a.Logger.Info("cache invalidated", logging.Int64("keys", n))
	})
}
