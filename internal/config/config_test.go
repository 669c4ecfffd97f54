package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/plotinfo/internal/config"
)

func validConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Service.BaseURL = "https://geo.example.ch/api/v1/plotinfo"
	cfg.PlotInfo.InfoQueries = []config.InfoQueryConfig{
		{Key: "oereb", Query: "/oereb/json/$egrid$", PDFQuery: "/oereb/pdf/$egrid$"},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing base url", func(c *config.Config) { c.Service.BaseURL = "" }, "service.base_url is required"},
		{"relative base url", func(c *config.Config) { c.Service.BaseURL = "/plotinfo" }, "not an absolute URL"},
		{"empty resolutions", func(c *config.Config) { c.PlotInfo.Map.Resolutions = nil }, "resolutions"},
		{"query without key", func(c *config.Config) { c.PlotInfo.InfoQueries[0].Key = "" }, "key is required"},
		{"query without template", func(c *config.Config) { c.PlotInfo.InfoQueries[0].Query = "" }, "query is required"},
		{"duplicate query key", func(c *config.Config) {
			c.PlotInfo.InfoQueries = append(c.PlotInfo.InfoQueries, c.PlotInfo.InfoQueries[0])
		}, "duplicated"},
		{"bad port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"redis without addr", func(c *config.Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka without brokers", func(c *config.Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"minio target without bucket", func(c *config.Config) { c.Download.Target = config.DownloadTargetMinIO }, "minio.endpoint"},
		{"unknown target", func(c *config.Config) { c.Download.Target = "s3" }, "download.target"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
		{"rate limit without downloads", func(c *config.Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.Downloads = 0
		}, "server.rate_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.want)
			}
		})
	}
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, config.DefaultLanguage, cfg.PlotInfo.Language)
	assert.Equal(t, "EPSG:2056", cfg.PlotInfo.ServiceProjection)
	assert.Equal(t, "EPSG:3857", cfg.PlotInfo.Map.Projection)
	assert.Len(t, cfg.PlotInfo.Map.Resolutions, 21)
	assert.Equal(t, "oereb", cfg.PlotInfo.ExtractQueryKey)
	assert.Equal(t, config.DownloadTargetLocal, cfg.Download.Target)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, config.DefaultCORSMaxAge, cfg.Server.CORS.MaxAge)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	assert.Equal(t, 120, cfg.Server.RateLimit.Lookups)
	assert.Equal(t, 10, cfg.Server.RateLimit.Downloads)
	assert.Equal(t, 30*time.Second, cfg.Redis.NullTTL)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &config.Config{}
	cfg.PlotInfo.Language = "fr"
	cfg.Server.Port = 9000
	cfg.PlotInfo.Map.Resolutions = []float64{100, 50}
	config.ApplyDefaults(cfg)

	assert.Equal(t, "fr", cfg.PlotInfo.Language)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []float64{100, 50}, cfg.PlotInfo.Map.Resolutions)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { config.ApplyDefaults(nil) })
}

func TestSubthemeOrder_PreservesCase(t *testing.T) {
	p := config.PlotInfoConfig{Subthemes: []config.SubthemeOrderConfig{
		{Theme: "ch.Nutzungsplanung", Subthemes: []string{"Grundnutzung", "Überlagernd"}},
	}}
	order := p.SubthemeOrder()
	assert.Equal(t, []string{"Grundnutzung", "Überlagernd"}, order["ch.Nutzungsplanung"])
}
