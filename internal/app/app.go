// Package app wires the plot-info components from a Config. Both binaries
// build on it: the API server and the plotinfo CLI.
package app

import (
	"context"
	"fmt"

	"github.com/turtacn/plotinfo/internal/application/highlight"
	"github.com/turtacn/plotinfo/internal/application/plotinfo"
	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/infrastructure/database/redis"
	"github.com/turtacn/plotinfo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/plotinfo/internal/infrastructure/storage/local"
	"github.com/turtacn/plotinfo/internal/infrastructure/storage/minio"
	"github.com/turtacn/plotinfo/pkg/client"
)

// Check is a named readiness check. Lookups keep working when an optional
// check fails.
type Check struct {
	Name     string
	Required bool
	Ping     func(ctx context.Context) error
}

// App holds the wired components. Optional components are nil when
// disabled in the configuration.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.PlotInfoMetrics
	Service   plotinfo.PlotService
	Cached    *plotinfo.CachedService
	Saver     plotinfo.DocumentSaver
	Producer  *kafka.Producer
	Checks    []Check

	closers []func() error
}

// New wires every component cfg enables. Components that fail to connect
// abort the wiring and release what was already opened.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg, log := a.Config, a.Logger
	var err error

	if cfg.Metrics.Enabled {
		a.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, log)
		if err != nil {
			return err
		}
		a.Metrics = prometheus.NewPlotInfoMetrics(a.Collector)
	}

	c, err := client.NewClient(cfg.Service.BaseURL,
		client.WithTimeout(cfg.Service.Timeout),
		client.WithRetryMax(cfg.Service.RetryMax),
		client.WithRetryWait(cfg.Service.RetryWait, 4*cfg.Service.RetryWait),
		client.WithUserAgent(cfg.Service.UserAgent),
		client.WithLogger(clientLogger{log.Named("client")}),
	)
	if err != nil {
		return err
	}
	a.Service = plotinfo.NewClientService(c)

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc.Close)
		a.Checks = append(a.Checks, Check{Name: "redis", Ping: rc.Ping})
		cache := redis.NewRedisCache(rc, log, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithDefaultTTL(cfg.Redis.TTL),
			redis.WithNullCacheTTL(cfg.Redis.NullTTL))
		a.Cached = plotinfo.NewCachedService(a.Service, cache, log,
			plotinfo.WithCacheTTL(cfg.Redis.TTL),
			plotinfo.WithCacheMetrics(a.Metrics))
		a.Service = a.Cached
	}

	if a.Saver, err = a.newSaver(ctx); err != nil {
		return err
	}

	if cfg.Kafka.Enabled {
		p, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return err
		}
		a.Producer = p
		a.closers = append(a.closers, p.Close)
	}
	return nil
}

func (a *App) newSaver(ctx context.Context) (plotinfo.DocumentSaver, error) {
	switch a.Config.Download.Target {
	case config.DownloadTargetMinIO:
		mc, err := minio.NewClient(ctx, a.Config.MinIO, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Checks = append(a.Checks, Check{Name: "minio", Required: true, Ping: mc.EnsureBucket})
		return minio.NewDocumentStore(mc, a.Config.Download.ObjectPrefix), nil
	case config.DownloadTargetLocal, "":
		return local.NewSaver(a.Config.Download.Directory)
	}
	return nil, fmt.Errorf("unknown download target %q", a.Config.Download.Target)
}

// MachineConfig derives the orchestrator configuration.
func (a *App) MachineConfig() plotinfo.Config {
	return plotinfo.ConfigFrom(a.Config)
}

// Layers returns a highlight manager for the configured projections.
func (a *App) Layers() *highlight.Manager {
	pc := a.Config.PlotInfo
	return highlight.NewManager(highlight.Config{
		ServiceProjection: pc.ServiceProjection,
		MapProjection:     pc.Map.Projection,
		Language:          pc.Language,
	})
}

// Map returns the map the effects of session are applied to: m, mirrored to
// Kafka when a producer is configured.
func (a *App) Map(session string, m mapview.Map) mapview.Map {
	if a.Producer == nil {
		return m
	}
	return mapview.Multi(m, kafka.NewEffectPublisher(a.Producer, session))
}

// NewSession creates a session running on m.
func (a *App) NewSession(m mapview.Map, opts ...plotinfo.SessionOption) *plotinfo.Session {
	base := []plotinfo.SessionOption{
		plotinfo.WithSessionLogger(a.Logger),
		plotinfo.WithSessionMetrics(a.Metrics),
		plotinfo.WithRequestTimeout(a.Config.Service.Timeout),
	}
	if a.Saver != nil {
		base = append(base, plotinfo.WithDocumentSaver(a.Saver))
	}
	machine := plotinfo.NewMachine(a.MachineConfig(), a.Layers())
	return plotinfo.NewSession(machine, a.Service, m, append(base, opts...)...)
}

// Close releases every opened connection in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// clientLogger adapts logging.Logger to the printf-style client logger.
type clientLogger struct{ l logging.Logger }

func (c clientLogger) Debugf(format string, args ...interface{}) {
	c.l.Debug(fmt.Sprintf(format, args...))
}

func (c clientLogger) Infof(format string, args ...interface{}) {
	c.l.Info(fmt.Sprintf(format, args...))
}

func (c clientLogger) Errorf(format string, args ...interface{}) {
	c.l.Error(fmt.Sprintf(format, args...))
}
