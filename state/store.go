// Package state persists the StateMap between scan cycles.
//
// Load never fails a cycle: a missing snapshot is an empty map, and an
// unreadable one is an empty map plus an error marked ErrCorruptSnapshot
// for the caller to log. Save always replaces the whole snapshot.
package state

import (
	"context"
	"time"

	"github.com/teranos/restock/stock"
)

// Store loads and saves the StateMap.
type Store interface {
	// Load always returns a usable map, even alongside an error.
	Load(ctx context.Context) (*stock.StateMap, error)
	// Save stamps m with the current time and replaces the stored snapshot.
	Save(ctx context.Context, m *stock.StateMap) error
	// Location describes where the snapshot lives, for logs and CLI output.
	Location() string
}

// clock is overridden in tests.
type clock func() time.Time
