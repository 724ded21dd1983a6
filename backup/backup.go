// Package backup pushes the state snapshot somewhere durable after each
// successful save. A failed sync is logged by the caller and never retried.
package backup

import "context"

// Syncer runs one backup after a successful save.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Noop is used when backup is disabled or the state lives in SQLite.
type Noop struct{}

// Sync does nothing.
func (Noop) Sync(context.Context) error { return nil }
