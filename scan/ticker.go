package scan

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/restock/logger"
)

// CycleRunner is what the Ticker drives. *Runner implements it.
type CycleRunner interface {
	RunOnce(ctx context.Context) (*Report, error)
}

// Ticker runs a cycle, sleeps for the interval, and repeats until stopped.
// The sleep starts after a cycle finishes, so cycles never overlap and a
// slow cycle pushes the next one back rather than queueing it.
type Ticker struct {
	runner   CycleRunner
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	scanLog  *zap.SugaredLogger
	mu       sync.Mutex
	interval time.Duration
	cycles   int64
	onReport func(*Report)
}

// NewTicker creates a ticker whose cycles derive their context from ctx.
func NewTicker(ctx context.Context, runner CycleRunner, interval time.Duration, log *zap.SugaredLogger) *Ticker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tickerCtx, cancel := context.WithCancel(ctx)
	return &Ticker{
		runner:   runner,
		ctx:      tickerCtx,
		cancel:   cancel,
		scanLog:  logger.AddScanSymbol(log),
		interval: interval,
	}
}

// OnReport registers a callback invoked after every cycle. Call before Start.
func (t *Ticker) OnReport(fn func(*Report)) {
	t.onReport = fn
}

// SetInterval changes the sleep between cycles, from the next sleep on.
func (t *Ticker) SetInterval(d time.Duration) {
	t.mu.Lock()
	t.interval = d
	t.mu.Unlock()
}

// Start begins the loop. The first cycle runs immediately.
func (t *Ticker) Start() {
	t.wg.Add(1)
	go t.run()
	t.scanLog.Infow("Scan ticker started", logger.FieldInterval, t.currentInterval().String())
}

// Stop cancels the running cycle and waits for the loop to exit.
func (t *Ticker) Stop() {
	t.cancel()
	t.wg.Wait()
	t.scanLog.Infow("Scan ticker stopped", "cycles", t.Cycles())
}

// Done is closed once Stop has been called or the parent context ended.
func (t *Ticker) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Cycles reports how many cycles have completed.
func (t *Ticker) Cycles() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycles
}

func (t *Ticker) currentInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *Ticker) run() {
	defer t.wg.Done()

	for {
		t.cycle()

		timer := time.NewTimer(t.currentInterval())
		select {
		case <-t.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (t *Ticker) cycle() {
	if t.ctx.Err() != nil {
		return
	}
	rep, err := t.runner.RunOnce(t.ctx)

	t.mu.Lock()
	t.cycles++
	t.mu.Unlock()

	if err != nil && t.ctx.Err() == nil {
		// Logged, never fatal: the next cycle starts from whatever was saved.
		t.scanLog.Warnw("Scan cycle error", logger.FieldError, err)
	}
	if rep != nil && t.onReport != nil {
		t.onReport(rep)
	}
}
