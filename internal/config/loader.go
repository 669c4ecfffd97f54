package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "PLOTINFO"

// bindableKeys are registered with viper so that PLOTINFO_* variables are
// honoured even when the key is absent from the file. AutomaticEnv alone only
// affects keys viper already knows about.
var bindableKeys = []string{
	"service.base_url", "service.timeout", "service.retry_max", "service.retry_wait", "service.user_agent",
	"plotinfo.language", "plotinfo.service_projection", "plotinfo.map.projection",
	"plotinfo.map.width", "plotinfo.map.height", "plotinfo.extract_query_key", "plotinfo.startup_param",
	"server.port", "server.rate_limit.enabled", "server.rate_limit.window",
	"server.rate_limit.lookups", "server.rate_limit.downloads", "server.cors.max_age",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.key_prefix", "redis.ttl", "redis.null_ttl",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.use_ssl", "minio.bucket", "minio.region",
	"minio.expiry_days", "minio.presign_expiry",
	"kafka.enabled", "kafka.topic", "kafka.group_id",
	"metrics.enabled", "metrics.namespace",
	"download.target", "download.directory", "download.object_prefix",
	"log.level", "log.format",
}

// newViper builds a viper instance with YAML type, the PLOTINFO_ env prefix
// and a "." → "_" key replacer ("service.base_url" → PLOTINFO_SERVICE_BASE_URL).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range bindableKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the YAML file at configPath, merges PLOTINFO_* overrides,
// applies defaults and validates.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from PLOTINFO_* variables only.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOptional loads configPath when it is non-empty and falls back to
// LoadFromEnv otherwise.
func LoadOptional(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// Watch calls onChange with the re-parsed Config whenever configPath changes
// on disk. Changes that fail to parse or validate are skipped.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is Load that panics on error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
