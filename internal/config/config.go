// Package config defines the configuration structures of the plot-info
// subsystem. No I/O lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
)

// ServiceConfig describes the remote plot-info service.
type ServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
	RetryWait time.Duration `mapstructure:"retry_wait"`
	UserAgent string        `mapstructure:"user_agent"`
}

// MapConfig describes the map the effects are applied to. Resolutions are
// map units per pixel, indexed by zoom level.
type MapConfig struct {
	Projection  string    `mapstructure:"projection"`
	Resolutions []float64 `mapstructure:"resolutions"`
	Width       int       `mapstructure:"width"`
	Height      int       `mapstructure:"height"`
}

// InfoQueryConfig is one expandable info query offered for every plot.
// Query and PDFQuery are URL templates containing the $egrid$ token.
type InfoQueryConfig struct {
	Key        string                 `mapstructure:"key"`
	Title      string                 `mapstructure:"title"`
	TitleMsgID string                 `mapstructure:"title_msg_id"`
	Query      string                 `mapstructure:"query"`
	PDFQuery   string                 `mapstructure:"pdf_query"`
	PDFTooltip string                 `mapstructure:"pdf_tooltip"`
	URLKey     string                 `mapstructure:"url_key"`
	ScrollMode string                 `mapstructure:"scroll_mode"`
	Cfg        map[string]interface{} `mapstructure:"cfg"`
}

// SubthemeOrderConfig lists the sub-theme priority of one theme. Theme codes
// are case sensitive, which is why this is a list rather than a map (viper
// lower-cases map keys).
type SubthemeOrderConfig struct {
	Theme     string   `mapstructure:"theme"`
	Subthemes []string `mapstructure:"subthemes"`
}

// PlotInfoConfig holds the tool configuration.
type PlotInfoConfig struct {
	Language          string                `mapstructure:"language"`
	ServiceProjection string                `mapstructure:"service_projection"`
	Map               MapConfig             `mapstructure:"map"`
	InfoQueries       []InfoQueryConfig     `mapstructure:"info_queries"`
	Subthemes         []SubthemeOrderConfig `mapstructure:"subthemes"`
	ToolLayers        []string              `mapstructure:"tool_layers"`
	ExtractQueryKey   string                `mapstructure:"extract_query_key"`
	StartupParam      string                `mapstructure:"startup_param"`
}

// ServerConfig holds HTTP server tunables for cmd/apiserver.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig lists the browser origins allowed to call the API. "*" allows
// any origin and "*.example.ch" any subdomain of example.ch.
type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxAge         time.Duration `mapstructure:"max_age"`
}

// RateLimitConfig bounds the requests one client address may send to the
// plot API within Window. PDF downloads draw from their own budget.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Window    time.Duration `mapstructure:"window"`
	Lookups   int           `mapstructure:"lookups"`
	Downloads int           `mapstructure:"downloads"`
}

// RedisConfig holds the lookup cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	TTL          time.Duration `mapstructure:"ttl"`
	// NullTTL is the lifetime of cached lookups that found no plot.
	NullTTL time.Duration `mapstructure:"null_ttl"`
}

// MinIOConfig holds the object storage parameters used for PDF downloads.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`

	// ExpiryDays installs a bucket lifecycle rule deleting downloads after
	// that many days. Zero keeps them.
	ExpiryDays int `mapstructure:"expiry_days"`
	// PresignExpiry makes saved documents report a presigned GET URL
	// instead of an s3:// location.
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// KafkaConfig holds the map-effect publisher parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Compression  string        `mapstructure:"compression"`
}

// MetricsConfig controls the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Path      string `mapstructure:"path"`
}

// Download targets.
const (
	DownloadTargetLocal = "local"
	DownloadTargetMinIO = "minio"
)

// DownloadConfig selects where downloaded PDFs are written.
type DownloadConfig struct {
	Target       string `mapstructure:"target"`
	Directory    string `mapstructure:"directory"`
	ObjectPrefix string `mapstructure:"object_prefix"`
}

// Config is the root configuration.
type Config struct {
	Service  ServiceConfig     `mapstructure:"service"`
	PlotInfo PlotInfoConfig    `mapstructure:"plotinfo"`
	Server   ServerConfig      `mapstructure:"server"`
	Redis    RedisConfig       `mapstructure:"redis"`
	MinIO    MinIOConfig       `mapstructure:"minio"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Download DownloadConfig    `mapstructure:"download"`
	Log      logging.LogConfig `mapstructure:"log"`
}

// SubthemeOrder returns the configured sub-theme priority keyed by theme code.
func (c *PlotInfoConfig) SubthemeOrder() map[string][]string {
	out := make(map[string][]string, len(c.Subthemes))
	for _, s := range c.Subthemes {
		out[s.Theme] = append([]string(nil), s.Subthemes...)
	}
	return out
}

// Validate performs semantic validation of a fully populated Config and
// returns the first problem found.
func (c *Config) Validate() error {
	if c.Service.BaseURL == "" {
		return fmt.Errorf("config: service.base_url is required")
	}
	if u, err := url.Parse(c.Service.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: service.base_url %q is not an absolute URL", c.Service.BaseURL)
	}
	if c.Service.RetryMax < 0 {
		return fmt.Errorf("config: service.retry_max must be ≥ 0, got %d", c.Service.RetryMax)
	}

	if len(c.PlotInfo.Map.Resolutions) == 0 {
		return fmt.Errorf("config: plotinfo.map.resolutions must not be empty")
	}
	if c.PlotInfo.Map.Width < 1 || c.PlotInfo.Map.Height < 1 {
		return fmt.Errorf("config: plotinfo.map width and height must be ≥ 1")
	}
	seen := make(map[string]struct{}, len(c.PlotInfo.InfoQueries))
	for i, q := range c.PlotInfo.InfoQueries {
		if q.Key == "" {
			return fmt.Errorf("config: plotinfo.info_queries[%d].key is required", i)
		}
		if q.Query == "" {
			return fmt.Errorf("config: plotinfo.info_queries[%d].query is required", i)
		}
		if _, dup := seen[q.Key]; dup {
			return fmt.Errorf("config: plotinfo.info_queries key %q is duplicated", q.Key)
		}
		seen[q.Key] = struct{}{}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if rl := c.Server.RateLimit; rl.Enabled && (rl.Window <= 0 || rl.Lookups < 1 || rl.Downloads < 1) {
		return fmt.Errorf("config: server.rate_limit needs a positive window, lookups and downloads")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required")
		}
	}

	switch c.Download.Target {
	case DownloadTargetLocal:
	case DownloadTargetMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required for download.target=minio")
		}
	default:
		return fmt.Errorf("config: download.target %q is invalid; expected local|minio", c.Download.Target)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}
