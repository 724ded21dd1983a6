package db

import (
	"database/sql"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
)

//go:embed sqlite/migrations/*.sql
var embedded embed.FS

const migrationsDir = "sqlite/migrations"

// bootstrapVersion creates schema_migrations and records itself.
const bootstrapVersion = "000"

type migration struct {
	version string
	name    string
	sql     string
}

// readMigrations lists NNN_name.sql files in dir ordered by version.
// Duplicate versions or files without a numeric prefix are rejected.
func readMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var out []migration
	seen := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok || !isDigits(version) {
			return nil, errors.Newf("migration %s: name must start with a numeric version and '_'", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, errors.Newf("migrations %s and %s share version %s", prev, name, version)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		out = append(out, migration{version: version, name: name, sql: string(body)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	if len(out) > 0 && out[0].version != bootstrapVersion {
		return nil, errors.Newf("first migration must be %s, got %s", bootstrapVersion, out[0].name)
	}
	return out, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Migrate brings the restock schema (snapshot tables and run history) up to
// date. Each pending migration runs in its own transaction together with its
// schema_migrations row.
func Migrate(db *sql.DB, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = logger.AddStateSymbol(log)

	all, err := readMigrations(embedded, migrationsDir)
	if err != nil {
		return err
	}

	done, err := appliedVersions(db)
	if err != nil {
		return err
	}

	var applied []string
	for _, m := range all {
		if done[m.version] {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		log.Debugw("Applied migration", "migration", m.name)
		applied = append(applied, m.name)
	}

	if len(applied) > 0 {
		log.Infow("Schema updated", "applied", applied, "total_migrations", len(all))
	}
	return nil
}

// appliedVersions is empty on a fresh database, where schema_migrations
// does not exist yet.
func appliedVersions(db *sql.DB) (map[string]bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`).Scan(&n)
	if err != nil {
		return nil, errors.Wrap(err, "inspect schema")
	}
	done := make(map[string]bool)
	if n == 0 {
		return done, nil
	}

	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, errors.Wrap(err, "list applied migrations")
	}
	defer rows.Close()
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan migration version")
		}
		done[v] = true
	}
	return done, errors.Wrap(rows.Err(), "list applied migrations")
}

func apply(db *sql.DB, m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return errors.Wrapf(err, "begin %s", m.name)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.sql); err != nil {
		return errors.Wrapf(err, "execute %s", m.name)
	}
	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.name)
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", m.name)
	}
	return nil
}
