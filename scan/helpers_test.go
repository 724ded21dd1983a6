package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/source"
	"github.com/teranos/restock/stock"
)

const bkRushPage = "https://www.predatorcues.com/usa/pool-cues/break-jump-cues/bk-rush-break-cues.html"

// fakeSource returns a fixed batch or error.
type fakeSource struct {
	id  string
	obs []stock.Observation
	err error
}

func (f *fakeSource) ID() string { return f.id }

func (f *fakeSource) Fetch(ctx context.Context) ([]stock.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.obs, nil
}

// memStore is an in-memory state.Store.
type memStore struct {
	mu      sync.Mutex
	saved   *stock.StateMap
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(context.Context) (*stock.StateMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return stock.NewStateMap(), m.loadErr
	}
	return m.saved.Clone(), nil
}

func (m *memStore) Save(_ context.Context, s *stock.StateMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = s.Clone()
	m.saves++
	return nil
}

func (m *memStore) Location() string { return "memory" }

// recorder collects alerts, failing for names listed in fail.
type recorder struct {
	mu     sync.Mutex
	alerts []stock.Alert
	fail   map[string]bool
}

func (r *recorder) Notify(_ context.Context, a stock.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	if r.fail[a.Name] {
		return errors.Mark(errors.New("ntfy returned 500"), errors.ErrDeliveryFailed)
	}
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.alerts))
	for i, a := range r.alerts {
		out[i] = a.Name
	}
	return out
}

type countingSyncer struct {
	calls int
	err   error
}

func (c *countingSyncer) Sync(context.Context) error {
	c.calls++
	return c.err
}

func testRegistry(t *testing.T) *stock.Registry {
	t.Helper()
	reg, err := stock.NewRegistry(
		stock.Rule{Source: "predator-bk-rush", Namespace: "predator", Require: []string{"BK Rush"}, Forbid: []string{"Black"}},
		stock.Rule{Source: "predator-p3", Namespace: "predator", Require: []string{"P3"}},
		stock.Rule{Source: "limited", Mode: stock.ModePresence, KeyBy: stock.KeyBySlug},
	)
	require.NoError(t, err)
	return reg
}

func plan(t *testing.T, sources ...source.Source) *source.Plan {
	return &source.Plan{Sources: sources, Registry: testRegistry(t)}
}

func bkRush(name, status string) stock.Observation {
	return stock.Observation{Source: "predator-bk-rush", Name: name, StatusText: status, Link: bkRushPage + "#" + name}
}

var fixedStart = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
