package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/restock/backup"
	"github.com/teranos/restock/db"
	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
	"github.com/teranos/restock/notify"
	"github.com/teranos/restock/source"
	"github.com/teranos/restock/state"
	"github.com/teranos/restock/stock"
)

// Options tunes a Runner.
type Options struct {
	// DryRun diffs and dispatches but never saves or backs up.
	DryRun bool
	// Runs records history when set.
	Runs *RunStore
}

// SourceFailure is a source skipped for one cycle.
type SourceFailure struct {
	Source string
	Err    error
}

// Delivery is the outcome of one alert dispatch.
type Delivery struct {
	Alert stock.Alert
	Err   error
}

// Report summarises one cycle.
type Report struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	SourcesOK    int
	Failures     []SourceFailure
	Observations int
	Tracked      int
	Dropped      []stock.Dropped
	Changes      []stock.Change
	Deliveries   []Delivery
	State        *stock.StateMap
	LoadErr      error
	SaveErr      error
	BackupErr    error
	Saved        bool
	Status       RunStatus
}

// Runner executes scan cycles. Cycles never overlap.
type Runner struct {
	runMu sync.Mutex

	planMu sync.RWMutex
	plan   *source.Plan

	store    state.Store
	notifier notify.Notifier
	syncer   backup.Syncer
	opts     Options

	// unsaved is the last diffed state when its save failed. It stands in
	// for the stored snapshot until a save succeeds. Guarded by runMu.
	unsaved *stock.StateMap

	logger  *zap.SugaredLogger
	scanLog *zap.SugaredLogger
	now     func() time.Time
}

// NewRunner creates a Runner. A nil syncer disables backup.
func NewRunner(plan *source.Plan, store state.Store, notifier notify.Notifier, syncer backup.Syncer, opts Options, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if syncer == nil {
		syncer = backup.Noop{}
	}
	return &Runner{
		plan:     plan,
		store:    store,
		notifier: notifier,
		syncer:   syncer,
		opts:     opts,
		logger:   log,
		scanLog:  logger.AddScanSymbol(log),
		now:      time.Now,
	}
}

// Reconfigure swaps sources and rules. A cycle already running finishes
// with the plan it started with.
func (r *Runner) Reconfigure(plan *source.Plan) {
	r.planMu.Lock()
	r.plan = plan
	r.planMu.Unlock()
	r.scanLog.Infow("Sources reconfigured", logger.FieldCount, len(plan.Sources))
}

func (r *Runner) currentPlan() *source.Plan {
	r.planMu.RLock()
	defer r.planMu.RUnlock()
	return r.plan
}

// RunOnce runs a full cycle. The returned error is only for logging: it is
// set when the snapshot could not be saved or ctx ended mid-cycle. The
// report is always non-nil.
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	plan := r.currentPlan()
	rep := &Report{RunID: uuid.NewString(), StartedAt: r.now(), Status: RunRunning}
	log := logger.ChildLogger(r.scanLog, logger.FieldRunID, rep.RunID)

	r.createRun(ctx, rep, log)

	prev := r.unsaved
	if prev != nil {
		log.Warnw("Last snapshot was not saved, diffing against in-memory state",
			logger.FieldStatePath, r.store.Location())
	} else {
		loaded, err := r.store.Load(ctx)
		if err != nil {
			rep.LoadErr = err
			log.Warnw("Snapshot unreadable, starting from empty state",
				logger.FieldStatePath, r.store.Location(), logger.FieldError, err)
		}
		prev = loaded
	}
	if prev == nil {
		prev = stock.NewStateMap()
	}

	batch := r.fetchAll(ctx, plan.Sources, rep, log)
	if err := ctx.Err(); err != nil {
		rep.Status = RunFailed
		r.finish(rep, err, log)
		return rep, errors.Wrap(err, "scan interrupted")
	}

	tracked, dropped := plan.Registry.Apply(batch)
	rep.Observations = len(batch)
	rep.Tracked = len(tracked)
	rep.Dropped = dropped
	for _, d := range dropped {
		if d.Err != nil {
			log.Warnw("Dropped malformed observation",
				logger.FieldSource, d.Observation.Source, logger.FieldError, d.Err)
			continue
		}
		log.Debugw("Observation not tracked",
			logger.FieldSource, d.Observation.Source,
			logger.FieldItemName, d.Observation.Name,
			logger.FieldReason, d.Reason)
	}

	res := stock.Diff(prev, tracked)
	rep.Changes = res.Changes
	rep.State = res.State
	for _, c := range res.Changes {
		log.Infow("Status changed",
			logger.FieldItemKey, string(c.Key),
			logger.FieldPrevious, string(c.Prev),
			logger.FieldCurrent, string(c.Curr),
			"new", c.New)
	}

	if !r.opts.DryRun {
		if err := r.store.Save(ctx, res.State); err != nil {
			rep.SaveErr = err
			r.unsaved = res.State.Clone()
			log.Errorw("Failed to save snapshot",
				logger.FieldStatePath, r.store.Location(), logger.FieldError, err)
		} else {
			rep.Saved = true
			r.unsaved = nil
		}
	}

	// Alerts go out even if the save failed: the transition was observed,
	// and delivery is best effort either way.
	r.dispatch(ctx, rep, res.Alerts, log)

	if rep.Saved {
		if err := r.syncer.Sync(ctx); err != nil {
			rep.BackupErr = err
			logger.AddBackupSymbol(log).Warnw("Backup sync failed", logger.FieldError, err)
		}
	}

	rep.Status = statusFor(rep, len(plan.Sources))
	r.finish(rep, rep.SaveErr, log)

	if rep.SaveErr != nil {
		return rep, errors.Wrap(rep.SaveErr, "save snapshot")
	}
	return rep, nil
}

type fetchResult struct {
	obs []stock.Observation
	err error
}

// fetchAll fetches every source concurrently and returns the successful
// observations concatenated in source order.
func (r *Runner) fetchAll(ctx context.Context, sources []source.Source, rep *Report, log *zap.SugaredLogger) []stock.Observation {
	results := make([]fetchResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					results[i].err = errors.Newf("panic in source %s: %v", src.ID(), p)
				}
			}()
			obs, err := src.Fetch(ctx)
			results[i] = fetchResult{obs: obs, err: err}
		}(i, src)
	}
	wg.Wait()

	var batch []stock.Observation
	for i, res := range results {
		id := sources[i].ID()
		if res.err != nil {
			err := res.err
			if !errors.Is(err, errors.ErrSourceFailed) {
				err = errors.Mark(err, errors.ErrSourceFailed)
			}
			rep.Failures = append(rep.Failures, SourceFailure{Source: id, Err: err})
			log.Warnw("Source failed, skipping this cycle", logger.FieldSource, id, logger.FieldError, err)
			continue
		}
		rep.SourcesOK++
		log.Debugw("Source fetched", logger.FieldSource, id, logger.FieldObservations, len(res.obs))
		batch = append(batch, res.obs...)
	}
	return batch
}

func (r *Runner) dispatch(ctx context.Context, rep *Report, alerts []stock.Alert, log *zap.SugaredLogger) {
	alertLog := logger.AddAlertSymbol(log)
	for _, a := range alerts {
		err := r.notifier.Notify(ctx, a)
		rep.Deliveries = append(rep.Deliveries, Delivery{Alert: a, Err: err})
		if err != nil {
			alertLog.Warnw("Alert delivery failed",
				logger.FieldItemKey, string(a.Key), logger.FieldItemName, a.Name, logger.FieldError, err)
		} else {
			alertLog.Infow("Alert dispatched",
				logger.FieldItemKey, string(a.Key), logger.FieldItemName, a.Name, logger.FieldTitle, a.Title)
		}
		r.recordAlert(ctx, rep.RunID, a, err, log)
	}
}

func statusFor(rep *Report, sources int) RunStatus {
	switch {
	case rep.SaveErr != nil:
		return RunFailed
	case sources > 0 && rep.SourcesOK == 0:
		return RunFailed
	case len(rep.Failures) > 0 || rep.BackupErr != nil:
		return RunPartial
	}
	for _, d := range rep.Deliveries {
		if d.Err != nil {
			return RunPartial
		}
	}
	return RunCompleted
}

func (r *Runner) finish(rep *Report, cause error, log *zap.SugaredLogger) {
	rep.Duration = r.now().Sub(rep.StartedAt)

	log.Infow("Scan complete",
		logger.FieldStatus, string(rep.Status),
		logger.FieldDurationMS, rep.Duration.Milliseconds(),
		logger.FieldObservations, rep.Observations,
		logger.FieldTracked, rep.Tracked,
		logger.FieldAlerts, len(rep.Deliveries),
		logger.FieldFailed, len(rep.Failures))

	if r.opts.Runs == nil {
		return
	}
	completed := rep.StartedAt.Add(rep.Duration)
	ms := rep.Duration.Milliseconds()
	run := &Run{
		ID:            rep.RunID,
		StartedAt:     rep.StartedAt,
		CompletedAt:   &completed,
		DurationMS:    &ms,
		SourcesOK:     rep.SourcesOK,
		SourcesFailed: len(rep.Failures),
		Observations:  rep.Observations,
		Tracked:       rep.Tracked,
		Alerts:        len(rep.Deliveries),
		Status:        rep.Status,
	}
	if cause != nil {
		msg := cause.Error()
		run.ErrorMessage = &msg
	}
	// History is written even when ctx is done.
	if err := r.opts.Runs.CompleteRun(context.Background(), run); err != nil {
		if db.IsDatabaseClosed(err) {
			log.Debugw("Database closed before run was recorded", logger.FieldRunID, rep.RunID)
			return
		}
		log.Warnw("Failed to record run", logger.FieldError, err)
	}
}

func (r *Runner) createRun(ctx context.Context, rep *Report, log *zap.SugaredLogger) {
	if r.opts.Runs == nil {
		return
	}
	if err := r.opts.Runs.CreateRun(ctx, &Run{ID: rep.RunID, StartedAt: rep.StartedAt, Status: RunRunning}); err != nil {
		log.Warnw("Failed to record run start", logger.FieldError, err)
	}
}

func (r *Runner) recordAlert(ctx context.Context, runID string, a stock.Alert, deliveryErr error, log *zap.SugaredLogger) {
	if r.opts.Runs == nil {
		return
	}
	rec := AlertRecord{
		RunID:     runID,
		ItemKey:   string(a.Key),
		ItemName:  a.Name,
		Link:      a.Link,
		Title:     a.Title,
		Delivered: deliveryErr == nil,
		CreatedAt: r.now(),
	}
	if deliveryErr != nil {
		msg := deliveryErr.Error()
		rec.ErrorMessage = &msg
	}
	if err := r.opts.Runs.RecordAlert(ctx, rec); err != nil {
		log.Warnw("Failed to record alert", logger.FieldItemKey, rec.ItemKey, logger.FieldError, err)
	}
}
