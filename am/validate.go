package am

import (
	"net/url"
	"strings"

	"github.com/teranos/restock/errors"
)

// Validate checks that the configuration is usable.
// Zero means zero: a zero interval scans back to back, a zero
// requests_per_minute disables rate limiting.
func (c *Config) Validate() error {
	if c.Scan.IntervalSeconds < 0 {
		return errors.Newf("scan.interval_seconds must be >= 0, got %d", c.Scan.IntervalSeconds)
	}
	if c.Scan.FetchTimeoutSeconds <= 0 {
		return errors.Newf("scan.fetch_timeout_seconds must be > 0, got %d", c.Scan.FetchTimeoutSeconds)
	}
	if c.Scan.RequestsPerMinute < 0 {
		return errors.Newf("scan.requests_per_minute must be >= 0, got %d", c.Scan.RequestsPerMinute)
	}

	switch c.Notify.Backend {
	case NotifyBackendNtfy:
		if c.Notify.Topic == "" {
			return errors.WithHint(errors.New("notify.topic cannot be empty"), "set RESTOCK_NOTIFY_TOPIC or notify.topic in am.toml")
		}
		if err := validateHTTPURL("notify.base_url", c.Notify.BaseURL); err != nil {
			return err
		}
		if c.Notify.TimeoutSeconds <= 0 {
			return errors.Newf("notify.timeout_seconds must be > 0, got %d", c.Notify.TimeoutSeconds)
		}
	case NotifyBackendLog:
	default:
		return errors.Newf("notify.backend must be %q or %q, got %q", NotifyBackendNtfy, NotifyBackendLog, c.Notify.Backend)
	}

	switch c.State.Backend {
	case StateBackendFile:
		if c.State.Path == "" {
			return errors.New("state.path cannot be empty with the file backend")
		}
	case StateBackendSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty with the sqlite state backend")
		}
	default:
		return errors.Newf("state.backend must be %q or %q, got %q", StateBackendFile, StateBackendSQLite, c.State.Backend)
	}

	if c.Backup.Enabled {
		if c.State.Backend != StateBackendFile {
			return errors.New("backup.enabled requires the file state backend")
		}
		if c.Backup.Remote == "" {
			return errors.New("backup.remote cannot be empty when backup is enabled")
		}
		if c.Backup.TimeoutSeconds <= 0 {
			return errors.Newf("backup.timeout_seconds must be > 0, got %d", c.Backup.TimeoutSeconds)
		}
	}

	seen := make(map[string]bool)
	for i, s := range c.EffectiveSources() {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "sources[%d]", i)
		}
		if seen[s.ID] {
			return errors.Newf("sources[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
	}

	return nil
}

// Validate checks one source entry.
func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("id cannot be empty")
	}
	switch s.Kind {
	case KindCategory:
		if err := validateHTTPURL("url", s.URL); err != nil {
			return errors.Wrapf(err, "source %s", s.ID)
		}
	case KindShopify:
		if err := validateHTTPURL("base_url", s.BaseURL); err != nil {
			return errors.Wrapf(err, "source %s", s.ID)
		}
		if len(s.Handles) == 0 {
			return errors.Newf("source %s: handles cannot be empty", s.ID)
		}
	default:
		return errors.Newf("source %s: kind must be %q or %q, got %q", s.ID, KindCategory, KindShopify, s.Kind)
	}
	switch s.Mode {
	case "", "transition", "presence":
	default:
		return errors.Newf("source %s: mode must be transition or presence, got %q", s.ID, s.Mode)
	}
	switch s.KeyBy {
	case "", "name", "slug", "handle":
	default:
		return errors.Newf("source %s: key_by must be name, slug or handle, got %q", s.ID, s.KeyBy)
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Newf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}
