package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/restock/errors"
	restocktest "github.com/teranos/restock/internal/testing"
	"github.com/teranos/restock/stock"
)

func TestRunOnceFirstSightAlerts(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}
	syncer := &countingSyncer{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{
		bkRush("BK Rush Break Cue", "In Stock"),
		bkRush("BK Rush Break Cue Black", "In Stock"),
	}}

	r := NewRunner(plan(t, src), store, rec, syncer, Options{}, zaptest.NewLogger(t).Sugar())
	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BK Rush Break Cue"}, rec.names())
	assert.Equal(t, RunCompleted, rep.Status)
	assert.Equal(t, 2, rep.Observations)
	assert.Equal(t, 2, rep.Tracked)
	assert.True(t, rep.Saved)
	assert.Equal(t, 1, syncer.calls)

	assert.Equal(t, stock.InStock, store.saved.Get("predator::BK Rush Break Cue"))
	assert.Equal(t, stock.InStock, store.saved.Get("_ignored::predator::BK Rush Break Cue Black"))
	assert.False(t, store.saved.Has("predator::BK Rush Break Cue Black"))
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, nil, Options{}, nil)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	first := store.saved.Clone()

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Deliveries)
	assert.Empty(t, rep.Changes)
	assert.Len(t, rec.alerts, 1)
	assert.True(t, first.Equal(store.saved))
}

func TestRunOncePartialFailureIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &memStore{}
	rec := &recorder{}

	broken := &fakeSource{id: "predator-p3", err: errors.New("unexpected status 503")}
	ok := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}

	r := NewRunner(plan(t, broken, ok), store, rec, nil, Options{}, zap.New(core).Sugar())
	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunPartial, rep.Status)
	assert.Equal(t, 1, rep.SourcesOK)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "predator-p3", rep.Failures[0].Source)
	assert.True(t, errors.Is(rep.Failures[0].Err, errors.ErrSourceFailed))

	assert.Equal(t, []string{"BK Rush Break Cue"}, rec.names())
	assert.Equal(t, stock.InStock, store.saved.Get("predator::BK Rush Break Cue"))

	failed := logs.FilterMessage("Source failed, skipping this cycle").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "predator-p3", failed[0].ContextMap()["source"])
}

func TestRunOnceAllSourcesFailedStillSaves(t *testing.T) {
	store := &memStore{}
	r := NewRunner(plan(t,
		&fakeSource{id: "predator-bk-rush", err: errors.New("timeout")},
		&fakeSource{id: "predator-p3", err: errors.New("timeout")},
	), store, &recorder{}, nil, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunFailed, rep.Status)
	assert.Equal(t, 1, store.saves)
	assert.Zero(t, rep.Observations)
}

func TestRunOnceDeliveryFailureKeepsState(t *testing.T) {
	store := &memStore{}
	rec := &recorder{fail: map[string]bool{"BK Rush Break Cue": true}}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, nil, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunPartial, rep.Status)
	require.Len(t, rep.Deliveries, 1)
	assert.True(t, errors.Is(rep.Deliveries[0].Err, errors.ErrDeliveryFailed))
	assert.Equal(t, stock.InStock, store.saved.Get("predator::BK Rush Break Cue"))

	// Not retried next cycle
	rep, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Deliveries)
}

func TestRunOnceCorruptSnapshotStartsEmpty(t *testing.T) {
	store := &memStore{loadErr: errors.Mark(errors.New("parse history.json"), errors.ErrCorruptSnapshot)}
	rec := &recorder{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, nil, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, errors.Is(rep.LoadErr, errors.ErrCorruptSnapshot))
	assert.Len(t, rec.alerts, 1)
	assert.True(t, rep.Saved)
}

func TestRunOnceSaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only file system")}
	rec := &recorder{}
	syncer := &countingSyncer{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, syncer, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")
	assert.Equal(t, RunFailed, rep.Status)
	assert.Len(t, rec.alerts, 1)
	assert.Zero(t, syncer.calls)
}

func TestRunOnceFailingSaveAlertsOnce(t *testing.T) {
	store := &memStore{saveErr: errors.New("no space left on device")}
	rec := &recorder{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, nil, Options{}, nil)

	for i := 0; i < 3; i++ {
		_, err := r.RunOnce(context.Background())
		require.Error(t, err)
	}
	assert.Len(t, rec.alerts, 1)

	// Disk recovers: the remembered state is written and no alert repeats.
	store.saveErr = nil
	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Saved)
	assert.Len(t, rec.alerts, 1)
	assert.Equal(t, stock.InStock, store.saved.Get("predator::BK Rush Break Cue"))

	// Later cycles read the store again and still see real transitions.
	src.obs = []stock.Observation{bkRush("BK Rush Break Cue", "Out of Stock")}
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	src.obs = []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}
	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.alerts, 2)
}

func TestRunOnceBackupFailureIsPartial(t *testing.T) {
	syncer := &countingSyncer{err: errors.Mark(errors.New("push rejected"), errors.ErrBackupFailed)}
	src := &fakeSource{id: "predator-p3", obs: []stock.Observation{{Source: "predator-p3", Name: "P3 Cue", StatusText: "Out of Stock", Link: "https://example.com/p3"}}}
	r := NewRunner(plan(t, src), &memStore{}, &recorder{}, syncer, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunPartial, rep.Status)
	assert.True(t, errors.Is(rep.BackupErr, errors.ErrBackupFailed))
}

func TestRunOnceDryRun(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}
	syncer := &countingSyncer{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, rec, syncer, Options{DryRun: true}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Saved)
	assert.Zero(t, store.saves)
	assert.Zero(t, syncer.calls)
	assert.Len(t, rec.alerts, 1)
	assert.Equal(t, stock.InStock, rep.State.Get("predator::BK Rush Break Cue"))
}

func TestRunOncePresenceItem(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}
	src := &fakeSource{id: "limited", obs: []stock.Observation{{Source: "limited", Name: "LE Special Edition", Link: "https://example.com/le"}}}
	r := NewRunner(plan(t, src), store, rec, nil, Options{}, nil)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"LE Special Edition"}, rec.names())
	assert.Equal(t, stock.Seen, store.saved.Get("limited::le-special-edition"))

	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.alerts, 1)
}

func TestRunOnceMalformedObservationDropped(t *testing.T) {
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{
		{Source: "predator-bk-rush", StatusText: "In Stock"},
		bkRush("BK Rush Break Cue", "Out of Stock"),
	}}
	r := NewRunner(plan(t, src), &memStore{}, &recorder{}, nil, Options{}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Tracked)
	require.Len(t, rep.Dropped, 1)
	assert.True(t, errors.Is(rep.Dropped[0].Err, errors.ErrMalformedObservation))
}

func TestReconfigureAppliesNextCycle(t *testing.T) {
	store := &memStore{}
	rec := &recorder{}
	r := NewRunner(plan(t, &fakeSource{id: "predator-bk-rush"}), store, rec, nil, Options{}, nil)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.alerts)

	r.Reconfigure(plan(t, &fakeSource{id: "predator-p3", obs: []stock.Observation{
		{Source: "predator-p3", Name: "P3 REVO", StatusText: "In Stock", Link: "https://example.com/p3"},
	}}))

	_, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"P3 REVO"}, rec.names())
}

func TestRunOnceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &memStore{}
	src := &fakeSource{id: "predator-bk-rush", obs: []stock.Observation{bkRush("BK Rush Break Cue", "In Stock")}}
	r := NewRunner(plan(t, src), store, &recorder{}, nil, Options{}, nil)

	rep, err := r.RunOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, RunFailed, rep.Status)
	assert.Zero(t, store.saves)
}

func TestRunOnceRecordsHistory(t *testing.T) {
	runs := NewRunStore(restocktest.CreateTestDB(t))
	rec := &recorder{fail: map[string]bool{"P3 REVO": true}}
	src := &fakeSource{id: "predator-p3", obs: []stock.Observation{
		{Source: "predator-p3", Name: "P3 REVO", StatusText: "In Stock", Link: "https://example.com/p3-revo"},
		{Source: "predator-p3", Name: "P3 Curly Maple", StatusText: "In Stock", Link: "https://example.com/p3-maple"},
	}}
	r := NewRunner(plan(t, src), &memStore{}, rec, nil, Options{Runs: runs}, nil)

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	list, err := runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rep.RunID, list[0].ID)
	assert.Equal(t, RunPartial, list[0].Status)
	assert.Equal(t, 2, list[0].Alerts)
	assert.Equal(t, 1, list[0].SourcesOK)
	require.NotNil(t, list[0].CompletedAt)

	alerts, err := runs.ListAlerts(context.Background(), rep.RunID)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "P3 REVO", alerts[0].ItemName)
	assert.False(t, alerts[0].Delivered)
	require.NotNil(t, alerts[0].ErrorMessage)
	assert.Contains(t, *alerts[0].ErrorMessage, "ntfy returned 500")
	assert.True(t, alerts[1].Delivered)
}
