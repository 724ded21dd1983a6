package scan

import (
	"context"
	"database/sql"
	"time"

	"github.com/teranos/restock/errors"
)

// RunStatus is the outcome of one scan cycle.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial" // some sources failed, or a delivery or backup did
	RunFailed    RunStatus = "failed"  // every source failed, or the snapshot was not saved
)

// Run is one row of scan history.
type Run struct {
	ID            string
	StartedAt     time.Time
	CompletedAt   *time.Time
	DurationMS    *int64
	SourcesOK     int
	SourcesFailed int
	Observations  int
	Tracked       int
	Alerts        int
	Status        RunStatus
	ErrorMessage  *string
}

// AlertRecord is one dispatched alert.
type AlertRecord struct {
	RunID        string
	ItemKey      string
	ItemName     string
	Link         string
	Title        string
	Delivered    bool
	ErrorMessage *string
	CreatedAt    time.Time
}

// RunStore handles persistence of scan run history
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a run store on a migrated database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a run in the running state.
func (s *RunStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, started_at, status)
		VALUES (?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), run.Status)
	if err != nil {
		return errors.Wrapf(err, "failed to create run %s", run.ID)
	}
	return nil
}

// CompleteRun writes the final counters and status of a run.
func (s *RunStore) CompleteRun(ctx context.Context, run *Run) error {
	var completedAt, durationMS, errorMessage interface{}
	if run.CompletedAt != nil {
		completedAt = formatTime(*run.CompletedAt)
	}
	if run.DurationMS != nil {
		durationMS = *run.DurationMS
	}
	if run.ErrorMessage != nil {
		errorMessage = *run.ErrorMessage
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs
		SET completed_at = ?,
		    duration_ms = ?,
		    sources_ok = ?,
		    sources_failed = ?,
		    observations = ?,
		    tracked = ?,
		    alerts = ?,
		    status = ?,
		    error_message = ?
		WHERE id = ?
	`,
		completedAt,
		durationMS,
		run.SourcesOK,
		run.SourcesFailed,
		run.Observations,
		run.Tracked,
		run.Alerts,
		run.Status,
		errorMessage,
		run.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to complete run %s", run.ID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check rows affected")
	}
	if rows == 0 {
		return errors.NewNotFoundError("run %s", run.ID)
	}
	return nil
}

// RecordAlert stores the outcome of one dispatch.
func (s *RunStore) RecordAlert(ctx context.Context, rec AlertRecord) error {
	var errorMessage interface{}
	if rec.ErrorMessage != nil {
		errorMessage = *rec.ErrorMessage
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_alerts (run_id, item_key, item_name, link, title, delivered, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.ItemKey, rec.ItemName, rec.Link, rec.Title, rec.Delivered, errorMessage, formatTime(rec.CreatedAt))
	if err != nil {
		return errors.Wrapf(err, "failed to record alert for %s", rec.ItemKey)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, duration_ms,
		       sources_ok, sources_failed, observations, tracked, alerts,
		       status, error_message
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run          Run
			startedAt    string
			completedAt  sql.NullString
			durationMS   sql.NullInt64
			errorMessage sql.NullString
		)
		if err := rows.Scan(
			&run.ID, &startedAt, &completedAt, &durationMS,
			&run.SourcesOK, &run.SourcesFailed, &run.Observations, &run.Tracked, &run.Alerts,
			&run.Status, &errorMessage,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}

		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, errors.Wrapf(err, "run %s: started_at", run.ID)
		}
		if completedAt.Valid {
			t, err := parseTime(completedAt.String)
			if err != nil {
				return nil, errors.Wrapf(err, "run %s: completed_at", run.ID)
			}
			run.CompletedAt = &t
		}
		if durationMS.Valid {
			run.DurationMS = &durationMS.Int64
		}
		if errorMessage.Valid {
			run.ErrorMessage = &errorMessage.String
		}
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "failed to iterate runs")
}

// ListAlerts returns the alerts dispatched by one run, in dispatch order.
func (s *RunStore) ListAlerts(ctx context.Context, runID string) ([]AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, item_key, item_name, link, title, delivered, error_message, created_at
		FROM scan_alerts
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list alerts for run %s", runID)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var (
			rec          AlertRecord
			errorMessage sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&rec.RunID, &rec.ItemKey, &rec.ItemName, &rec.Link, &rec.Title,
			&rec.Delivered, &errorMessage, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan alert")
		}
		if errorMessage.Valid {
			rec.ErrorMessage = &errorMessage.String
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, errors.Wrapf(err, "alert %s: created_at", rec.ItemKey)
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate alerts")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime accepts what formatTime wrote, and the driver's own layout in
// case the column came back as a time.Time rendered by database/sql.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05.999999999-07:00", s)
}
