package am

import "time"

// Config represents the restock configuration
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan" toml:"scan"`
	Notify   NotifyConfig   `mapstructure:"notify" toml:"notify"`
	State    StateConfig    `mapstructure:"state" toml:"state"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Backup   BackupConfig   `mapstructure:"backup" toml:"backup"`
	Sources  []SourceConfig `mapstructure:"sources" toml:"sources,omitempty"`
}

// ScanConfig configures the scan loop and the shared fetcher
type ScanConfig struct {
	IntervalSeconds     int    `mapstructure:"interval_seconds" toml:"interval_seconds"`         // sleep between cycles
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds" toml:"fetch_timeout_seconds"` // per request
	UserAgent           string `mapstructure:"user_agent" toml:"user_agent"`
	Accept              string `mapstructure:"accept" toml:"accept"`
	RequestsPerMinute   int    `mapstructure:"requests_per_minute" toml:"requests_per_minute"` // per host, 0 = unlimited
	AllowPrivateHosts   bool   `mapstructure:"allow_private_hosts" toml:"allow_private_hosts"` // allow RFC 1918 / loopback targets
}

// NotifyConfig configures alert delivery
type NotifyConfig struct {
	Backend        string   `mapstructure:"backend" toml:"backend"` // ntfy | log
	BaseURL        string   `mapstructure:"base_url" toml:"base_url"`
	Topic          string   `mapstructure:"topic" toml:"topic"`
	Priority       string   `mapstructure:"priority" toml:"priority"`
	Tags           []string `mapstructure:"tags" toml:"tags"`
	DefaultTitle   string   `mapstructure:"default_title" toml:"default_title"` // used when an alert carries no title
	TimeoutSeconds int      `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	AllowPrivate   bool     `mapstructure:"allow_private" toml:"allow_private"` // self-hosted ntfy on the LAN
}

// StateConfig selects where the StateMap snapshot lives
type StateConfig struct {
	Backend string `mapstructure:"backend" toml:"backend"` // file | sqlite
	Path    string `mapstructure:"path" toml:"path"`       // snapshot file for the file backend
}

// DatabaseConfig configures the SQLite database (run history, sqlite state backend)
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"` // empty disables run history
}

// BackupConfig configures the git heartbeat that pushes the snapshot
type BackupConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled"`
	RepoPath       string `mapstructure:"repo_path" toml:"repo_path"` // working tree containing the snapshot
	Remote         string `mapstructure:"remote" toml:"remote"`
	Branch         string `mapstructure:"branch" toml:"branch"` // empty = current HEAD
	Username       string `mapstructure:"username" toml:"username"`
	Token          string `mapstructure:"token" toml:"token,omitempty"` // prefer RESTOCK_BACKUP_TOKEN
	AuthorName     string `mapstructure:"author_name" toml:"author_name"`
	AuthorEmail    string `mapstructure:"author_email" toml:"author_email"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// SourceConfig describes one source and the rule its observations follow
type SourceConfig struct {
	ID   string `mapstructure:"id" toml:"id"`
	Kind string `mapstructure:"kind" toml:"kind"` // category | shopify

	// category
	URL            string `mapstructure:"url" toml:"url,omitempty"`
	ItemSelector   string `mapstructure:"item_selector" toml:"item_selector,omitempty"`
	LinkSelector   string `mapstructure:"link_selector" toml:"link_selector,omitempty"`
	StatusSelector string `mapstructure:"status_selector" toml:"status_selector,omitempty"`

	// shopify
	BaseURL string   `mapstructure:"base_url" toml:"base_url,omitempty"`
	Handles []string `mapstructure:"handles" toml:"handles,omitempty"`

	// rule
	Namespace   string   `mapstructure:"namespace" toml:"namespace,omitempty"`
	Require     []string `mapstructure:"require" toml:"require,omitempty"`
	Forbid      []string `mapstructure:"forbid" toml:"forbid,omitempty"`
	Mode        string   `mapstructure:"mode" toml:"mode,omitempty"`     // transition | presence
	KeyBy       string   `mapstructure:"key_by" toml:"key_by,omitempty"` // name | slug | handle
	AlertTitle  string   `mapstructure:"alert_title" toml:"alert_title,omitempty"`
	AlertPrefix string   `mapstructure:"alert_prefix" toml:"alert_prefix,omitempty"`
	SkipIgnored bool     `mapstructure:"skip_ignored" toml:"skip_ignored,omitempty"`
}

// Source kinds
const (
	KindCategory = "category"
	KindShopify  = "shopify"
)

// Backends
const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"
	NotifyBackendNtfy  = "ntfy"
	NotifyBackendLog   = "log"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Interval returns the pause between scan cycles.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scan.IntervalSeconds) * time.Second
}

// FetchTimeout returns the per-request fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scan.FetchTimeoutSeconds) * time.Second
}

// NotifyTimeout returns the per-dispatch notification timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSeconds) * time.Second
}

// BackupTimeout bounds one commit-and-push.
func (c *Config) BackupTimeout() time.Duration {
	return time.Duration(c.Backup.TimeoutSeconds) * time.Second
}

// EffectiveSources returns the configured sources, or the built-in set when none are configured.
func (c *Config) EffectiveSources() []SourceConfig {
	if len(c.Sources) > 0 {
		return c.Sources
	}
	return DefaultSources()
}
