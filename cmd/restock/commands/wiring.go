package commands

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/restock/am"
	"github.com/teranos/restock/backup"
	"github.com/teranos/restock/db"
	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/internal/httpclient"
	"github.com/teranos/restock/internal/util"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/notify"
	"github.com/teranos/restock/scan"
	"github.com/teranos/restock/source"
	"github.com/teranos/restock/state"
	"github.com/teranos/restock/version"
)

// ConfigPath is set by the root --config flag. Empty means the normal search cascade.
var ConfigPath string

// loadConfig loads and validates the configuration.
func loadConfig() (*am.Config, error) {
	var (
		cfg *am.Config
		err error
	)
	if ConfigPath != "" {
		cfg, err = am.LoadFromFile(ConfigPath)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "invalid configuration"),
			"run 'restock am show' to see the effective settings",
		)
	}
	return cfg, nil
}

// watchedConfigPath is the file watch --reload follows.
func watchedConfigPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	return am.ActiveConfigFile()
}

// openDatabase opens and migrates the configured database. An empty path
// returns nil without error: run history is optional.
func openDatabase(cfg *am.Config) (*sql.DB, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", cfg.Database.Path)
	}
	return database, nil
}

// newStore picks the snapshot backend.
func newStore(cfg *am.Config, database *sql.DB) (state.Store, error) {
	log := logger.ComponentLogger("state")
	switch cfg.State.Backend {
	case am.StateBackendSQLite:
		if database == nil {
			return nil, errors.NewInvalidRequestError("state backend %q needs database.path", am.StateBackendSQLite)
		}
		return state.NewSQLStore(database, cfg.Database.Path, log), nil
	default:
		return state.NewFileStore(cfg.State.Path, log), nil
	}
}

// newNotifier picks the delivery backend. Dry runs always log.
func newNotifier(cfg *am.Config, dryRun bool) (notify.Notifier, error) {
	log := logger.ComponentLogger("notify")
	if dryRun || cfg.Notify.Backend == am.NotifyBackendLog {
		return notify.NewLogNotifier(log), nil
	}
	client := httpclient.NewWithOptions(cfg.NotifyTimeout(), httpclient.Options{
		BlockPrivateIP: util.Ptr(!cfg.Notify.AllowPrivate),
		UserAgent:      version.UserAgent(),
	})
	return notify.NewNtfy(client, notify.NtfyConfig{
		BaseURL:      cfg.Notify.BaseURL,
		Topic:        cfg.Notify.Topic,
		Priority:     cfg.Notify.Priority,
		Tags:         cfg.Notify.Tags,
		DefaultTitle: cfg.Notify.DefaultTitle,
		Timeout:      cfg.NotifyTimeout(),
	}, log)
}

// newSyncer returns the git heartbeat, or Noop when backup is off or the
// snapshot is not a file.
func newSyncer(cfg *am.Config, dryRun bool) backup.Syncer {
	if dryRun || !cfg.Backup.Enabled || cfg.State.Backend != am.StateBackendFile {
		return backup.Noop{}
	}
	return backup.NewGitSync(backup.GitConfig{
		RepoPath:    cfg.Backup.RepoPath,
		FilePath:    cfg.State.Path,
		Remote:      cfg.Backup.Remote,
		Branch:      cfg.Backup.Branch,
		Username:    cfg.Backup.Username,
		Token:       cfg.Backup.Token,
		AuthorName:  cfg.Backup.AuthorName,
		AuthorEmail: cfg.Backup.AuthorEmail,
		Timeout:     cfg.BackupTimeout(),
	}, logger.ComponentLogger("backup"))
}

// buildPlan constructs sources and rules from cfg.
func buildPlan(cfg *am.Config, log *zap.SugaredLogger) (*source.Plan, error) {
	fetcher := source.NewFetcherFromConfig(cfg, source.NewClient(cfg), log)
	return source.Build(cfg.EffectiveSources(), fetcher, log)
}

// app is everything a scan needs. close releases the database.
type app struct {
	cfg    *am.Config
	db     *sql.DB
	store  state.Store
	runner *scan.Runner
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApp wires a Runner from cfg.
func newApp(cfg *am.Config, dryRun bool) (*app, error) {
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: database}

	if a.store, err = newStore(cfg, database); err != nil {
		a.close()
		return nil, err
	}
	notifier, err := newNotifier(cfg, dryRun)
	if err != nil {
		a.close()
		return nil, err
	}
	plan, err := buildPlan(cfg, logger.ComponentLogger("source"))
	if err != nil {
		a.close()
		return nil, err
	}

	opts := scan.Options{DryRun: dryRun}
	if database != nil {
		opts.Runs = scan.NewRunStore(database)
	}
	a.runner = scan.NewRunner(plan, a.store, notifier, newSyncer(cfg, dryRun), opts, logger.ComponentLogger("scan"))
	return a, nil
}
