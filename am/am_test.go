package am

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3*time.Second, cfg.Interval())
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 15*time.Second, cfg.NotifyTimeout())
	assert.Equal(t, "https://ntfy.sh", cfg.Notify.BaseURL)
	assert.Equal(t, "bkrush_ric", cfg.Notify.Topic)
	assert.Equal(t, "high", cfg.Notify.Priority)
	assert.Equal(t, []string{"rotating_light", "white_check_mark", "buy"}, cfg.Notify.Tags)
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", cfg.Scan.UserAgent)
	assert.Equal(t, StateBackendFile, cfg.State.Backend)
	assert.Equal(t, "history.json", cfg.State.Path)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "origin", cfg.Backup.Remote)

	require.NoError(t, cfg.Validate())
}

func TestEffectiveSources(t *testing.T) {
	cfg := &Config{}
	defaults := cfg.EffectiveSources()
	require.Len(t, defaults, 3)
	assert.Equal(t, "predator-bk-rush", defaults[0].ID)
	assert.Equal(t, []string{"Black"}, defaults[0].Forbid)
	assert.Equal(t, KindShopify, defaults[2].Kind)
	assert.Equal(t, "Mezz PBG: ", defaults[2].AlertPrefix)

	cfg.Sources = []SourceConfig{{ID: "only", Kind: KindCategory, URL: "https://example.com/c"}}
	assert.Len(t, cfg.EffectiveSources(), 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative interval", func(c *Config) { c.Scan.IntervalSeconds = -1 }, "scan.interval_seconds"},
		{"zero interval allowed", func(c *Config) { c.Scan.IntervalSeconds = 0 }, ""},
		{"zero fetch timeout", func(c *Config) { c.Scan.FetchTimeoutSeconds = 0 }, "fetch_timeout_seconds"},
		{"negative rate", func(c *Config) { c.Scan.RequestsPerMinute = -5 }, "requests_per_minute"},
		{"missing topic", func(c *Config) { c.Notify.Topic = "" }, "notify.topic"},
		{"log backend needs no topic", func(c *Config) { c.Notify.Backend = NotifyBackendLog; c.Notify.Topic = "" }, ""},
		{"bad notify backend", func(c *Config) { c.Notify.Backend = "smtp" }, "notify.backend"},
		{"bad base url", func(c *Config) { c.Notify.BaseURL = "ntfy.sh" }, "notify.base_url"},
		{"unknown state backend", func(c *Config) { c.State.Backend = "redis" }, "state.backend"},
		{"sqlite without database", func(c *Config) {
			c.State.Backend = StateBackendSQLite
			c.Backup.Enabled = false
			c.Database.Path = ""
		}, "database.path"},
		{"backup with sqlite state", func(c *Config) { c.State.Backend = StateBackendSQLite }, "file state backend"},
		{"duplicate source", func(c *Config) {
			s := SourceConfig{ID: "a", Kind: KindCategory, URL: "https://example.com/a"}
			c.Sources = []SourceConfig{s, s}
		}, "duplicate id"},
		{"unknown kind", func(c *Config) { c.Sources = []SourceConfig{{ID: "a", Kind: "rss"}} }, "kind"},
		{"shopify without handles", func(c *Config) {
			c.Sources = []SourceConfig{{ID: "a", Kind: KindShopify, BaseURL: "https://mezzusa.com"}}
		}, "handles"},
		{"bad mode", func(c *Config) {
			c.Sources = []SourceConfig{{ID: "a", Kind: KindCategory, URL: "https://example.com", Mode: "level"}}
		}, "mode"},
		{"bad key strategy", func(c *Config) {
			c.Sources = []SourceConfig{{ID: "a", Kind: KindCategory, URL: "https://example.com", KeyBy: "sku"}}
		}, "key_by"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
