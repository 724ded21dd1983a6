package state

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/stock"
)

const metaLastChecked = "last_checked"

// SQLStore keeps the snapshot in the stock_state and state_meta tables.
type SQLStore struct {
	db     *sql.DB
	label  string
	logger *zap.SugaredLogger
	now    clock
}

// NewSQLStore creates a store on an already migrated database.
// label is what Location reports (usually the database path).
func NewSQLStore(db *sql.DB, label string, log *zap.SugaredLogger) *SQLStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SQLStore{db: db, label: label, logger: logger.AddStateSymbol(log), now: time.Now}
}

// Location returns the database label.
func (s *SQLStore) Location() string { return "sqlite:" + s.label }

// Load reads every row into a fresh map.
func (s *SQLStore) Load(ctx context.Context) (*stock.StateMap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT item_key, status FROM stock_state`)
	if err != nil {
		return stock.NewStateMap(), errors.Mark(errors.Wrap(err, "query stock_state"), errors.ErrCorruptSnapshot)
	}
	defer rows.Close()

	m := stock.NewStateMap()
	for rows.Next() {
		var key, status string
		if err := rows.Scan(&key, &status); err != nil {
			return stock.NewStateMap(), errors.Mark(errors.Wrap(err, "scan stock_state"), errors.ErrCorruptSnapshot)
		}
		m.Set(stock.ItemKey(key), stock.ParseStatus(status))
	}
	if err := rows.Err(); err != nil {
		return stock.NewStateMap(), errors.Mark(errors.Wrap(err, "iterate stock_state"), errors.ErrCorruptSnapshot)
	}
	rows.Close()

	var checked string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM state_meta WHERE key = ?`, metaLastChecked).Scan(&checked)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		s.logger.Warnw("Could not read last_checked", "error", err)
	default:
		if t, perr := time.Parse(time.RFC3339Nano, checked); perr == nil {
			m.Touch(t)
		}
	}
	return m, nil
}

// Save replaces all rows in one transaction.
func (s *SQLStore) Save(ctx context.Context, m *stock.StateMap) (err error) {
	m.Touch(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM stock_state`); err != nil {
		return errors.Wrap(err, "clear stock_state")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stock_state (item_key, status) VALUES (?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, k := range m.Keys() {
		if _, err = stmt.ExecContext(ctx, string(k), string(m.Get(k))); err != nil {
			return errors.Wrapf(err, "insert %s", k)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO state_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaLastChecked, m.LastChecked().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return errors.Wrap(err, "update last_checked")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit save")
	}

	s.logger.Debugw("Snapshot saved", "location", s.Location(), "items", m.Len())
	return nil
}
