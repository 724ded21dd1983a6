// Package source turns retailer pages into stock.Observations.
//
// A Source performs all of its network I/O inside Fetch and has no shared
// mutable state with other sources, so the scan runner fetches them in
// parallel. Decisions about what to track are not made here; see stock.Rule.
package source

import (
	"context"

	"github.com/teranos/restock/stock"
)

// Source produces one batch of observations per scan cycle.
type Source interface {
	ID() string
	// Fetch returns the observations for this cycle. An error means the whole
	// source failed and is skipped this cycle; a partial batch may still be
	// returned alongside it.
	Fetch(ctx context.Context) ([]stock.Observation, error)
}
