package am

import (
	"github.com/spf13/viper"
)

// Default selectors for Magento category listings (Predator)
const (
	DefaultItemSelector   = "li.product-item"
	DefaultLinkSelector   = ".product-item-link"
	DefaultStatusSelector = ".amstockstatus"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Scan loop
	v.SetDefault("scan.interval_seconds", 3)
	v.SetDefault("scan.fetch_timeout_seconds", 20)
	v.SetDefault("scan.user_agent", "Mozilla/5.0 (X11; Linux x86_64)")
	v.SetDefault("scan.accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	v.SetDefault("scan.requests_per_minute", 60) // per host; two Predator pages share one host
	v.SetDefault("scan.allow_private_hosts", false)

	// Notifications
	v.SetDefault("notify.backend", NotifyBackendNtfy)
	v.SetDefault("notify.base_url", "https://ntfy.sh")
	v.SetDefault("notify.topic", "bkrush_ric")
	v.SetDefault("notify.priority", "high")
	v.SetDefault("notify.tags", []string{"rotating_light", "white_check_mark", "buy"})
	v.SetDefault("notify.default_title", "Stock Update")
	v.SetDefault("notify.timeout_seconds", 15)
	v.SetDefault("notify.allow_private", false)

	// State snapshot
	v.SetDefault("state.backend", StateBackendFile)
	v.SetDefault("state.path", "history.json")

	// Database
	v.SetDefault("database.path", "restock.db")

	// Git heartbeat
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.repo_path", ".")
	v.SetDefault("backup.remote", "origin")
	v.SetDefault("backup.username", "x-access-token")
	v.SetDefault("backup.author_name", "restock")
	v.SetDefault("backup.author_email", "restock@localhost")
	v.SetDefault("backup.timeout_seconds", 60)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("notify.topic", "RESTOCK_NOTIFY_TOPIC")
	v.BindEnv("backup.token", "RESTOCK_BACKUP_TOKEN")
	v.BindEnv("state.path", "RESTOCK_STATE_PATH")
	v.BindEnv("database.path", "RESTOCK_DATABASE_PATH")
}

// DefaultSources is the built-in watch list used when no [[sources]] are configured.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			ID:        "predator-bk-rush",
			Kind:      KindCategory,
			URL:       "https://www.predatorcues.com/usa/pool-cues/break-jump-cues/bk-rush-break-cues.html",
			Namespace: "predator",
			Require:   []string{"BK Rush"},
			Forbid:    []string{"Black"},
		},
		{
			ID:        "predator-p3",
			Kind:      KindCategory,
			URL:       "https://www.predatorcues.com/usa/pool-cues/lines/p3-pool-cues.html",
			Namespace: "predator",
			Require:   []string{"P3"},
		},
		{
			ID:          "mezz-pbg",
			Kind:        KindShopify,
			BaseURL:     "https://mezzusa.com",
			Handles:     []string{"power-break-g", "power-break-g-no-wrap"},
			Namespace:   "mezz",
			KeyBy:       "handle",
			AlertTitle:  "Mezz PBG In Stock",
			AlertPrefix: "Mezz PBG: ",
		},
	}
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always decode
		panic(err)
	}
	cfg.Sources = DefaultSources()
	return cfg
}
