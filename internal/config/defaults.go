package config

import (
	"math"
	"time"
)

const (
	DefaultServiceTimeout   = 30 * time.Second
	DefaultServiceRetryMax  = 3
	DefaultServiceRetryWait = 500 * time.Millisecond
	DefaultUserAgent        = "plotinfo/1.0"

	DefaultLanguage          = "de"
	DefaultServiceProjection = "EPSG:2056"
	DefaultMapProjection     = "EPSG:3857"
	DefaultMapWidth          = 1024
	DefaultMapHeight         = 768
	DefaultExtractQueryKey   = "oereb"
	DefaultStartupParam      = "realty"

	DefaultServerPort            = 8080
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultCORSMaxAge            = 10 * time.Minute
	DefaultRateLimitWindow       = time.Minute
	DefaultRateLimitLookups      = 120
	DefaultRateLimitDownloads    = 10

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "plotinfo:"
	DefaultRedisTTL       = 5 * time.Minute
	DefaultRedisNullTTL   = 30 * time.Second

	DefaultKafkaTopic        = "plotinfo.map-effects"
	DefaultKafkaGroupID      = "plotinfo-effects-tail"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = 10 * time.Millisecond
	DefaultKafkaMaxAttempts  = 3

	DefaultMetricsNamespace = "plotinfo"
	DefaultMetricsPath      = "/metrics"

	DefaultDownloadTarget    = DownloadTargetLocal
	DefaultDownloadDirectory = "."

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultResolutions returns Web Mercator resolutions for zoom levels 0-20.
func DefaultResolutions() []float64 {
	const base = 156543.03392804097
	out := make([]float64, 21)
	for z := range out {
		out[z] = base / math.Pow(2, float64(z))
	}
	return out
}

// ApplyDefaults fills every zero-value field in cfg with its default. Values
// already set are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Service.Timeout == 0 {
		cfg.Service.Timeout = DefaultServiceTimeout
	}
	if cfg.Service.RetryMax == 0 {
		cfg.Service.RetryMax = DefaultServiceRetryMax
	}
	if cfg.Service.RetryWait == 0 {
		cfg.Service.RetryWait = DefaultServiceRetryWait
	}
	if cfg.Service.UserAgent == "" {
		cfg.Service.UserAgent = DefaultUserAgent
	}

	p := &cfg.PlotInfo
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	if p.ServiceProjection == "" {
		p.ServiceProjection = DefaultServiceProjection
	}
	if p.Map.Projection == "" {
		p.Map.Projection = DefaultMapProjection
	}
	if len(p.Map.Resolutions) == 0 {
		p.Map.Resolutions = DefaultResolutions()
	}
	if p.Map.Width == 0 {
		p.Map.Width = DefaultMapWidth
	}
	if p.Map.Height == 0 {
		p.Map.Height = DefaultMapHeight
	}
	if p.ExtractQueryKey == "" {
		p.ExtractQueryKey = DefaultExtractQueryKey
	}
	if p.StartupParam == "" {
		p.StartupParam = DefaultStartupParam
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}
	rl := &cfg.Server.RateLimit
	if rl.Window == 0 {
		rl.Window = DefaultRateLimitWindow
	}
	if rl.Lookups == 0 {
		rl.Lookups = DefaultRateLimitLookups
	}
	if rl.Downloads == 0 {
		rl.Downloads = DefaultRateLimitDownloads
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}
	if cfg.Redis.NullTTL == 0 {
		cfg.Redis.NullTTL = DefaultRedisNullTTL
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.MaxAttempts == 0 {
		cfg.Kafka.MaxAttempts = DefaultKafkaMaxAttempts
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Download.Target == "" {
		cfg.Download.Target = DefaultDownloadTarget
	}
	if cfg.Download.Directory == "" {
		cfg.Download.Directory = DefaultDownloadDirectory
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
