package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/restock/errors"
)

// slowRunner records concurrency and cycle count.
type slowRunner struct {
	delay   time.Duration
	running int32
	overlap int32
	calls   int32
	err     error
}

func (s *slowRunner) RunOnce(ctx context.Context) (*Report, error) {
	if atomic.AddInt32(&s.running, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	defer atomic.AddInt32(&s.running, -1)
	atomic.AddInt32(&s.calls, 1)

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
	}
	return &Report{Status: RunCompleted}, s.err
}

func TestTickerRunsImmediatelyAndRepeats(t *testing.T) {
	runner := &slowRunner{delay: time.Millisecond}
	tk := NewTicker(context.Background(), runner, 5*time.Millisecond, zaptest.NewLogger(t).Sugar())
	tk.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 3 }, 2*time.Second, time.Millisecond)
	tk.Stop()

	assert.Zero(t, atomic.LoadInt32(&runner.overlap))
	assert.GreaterOrEqual(t, tk.Cycles(), int64(3))
}

func TestTickerCyclesNeverOverlap(t *testing.T) {
	// Interval shorter than the cycle itself
	runner := &slowRunner{delay: 20 * time.Millisecond}
	tk := NewTicker(context.Background(), runner, time.Millisecond, nil)
	tk.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 3 }, 2*time.Second, time.Millisecond)
	tk.Stop()
	assert.Zero(t, atomic.LoadInt32(&runner.overlap))
}

func TestTickerSurvivesCycleErrors(t *testing.T) {
	runner := &slowRunner{err: errors.New("save snapshot: read-only file system")}
	tk := NewTicker(context.Background(), runner, time.Millisecond, nil)
	tk.Start()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 3 }, 2*time.Second, time.Millisecond)
	tk.Stop()
}

func TestTickerStopInterruptsSleep(t *testing.T) {
	runner := &slowRunner{}
	tk := NewTicker(context.Background(), runner, time.Hour, nil)
	tk.Start()

	require.Eventually(t, func() bool { return tk.Cycles() == 1 }, 2*time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		tk.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while ticker was sleeping")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&runner.calls))
}

func TestTickerParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := NewTicker(ctx, &slowRunner{}, time.Hour, nil)
	tk.Start()

	cancel()
	select {
	case <-tk.Done():
	case <-time.After(time.Second):
		t.Fatal("ticker context not cancelled by parent")
	}
	tk.Stop()
}

func TestTickerOnReport(t *testing.T) {
	var mu sync.Mutex
	var statuses []RunStatus

	tk := NewTicker(context.Background(), &slowRunner{}, time.Millisecond, nil)
	tk.OnReport(func(r *Report) {
		mu.Lock()
		statuses = append(statuses, r.Status)
		mu.Unlock()
	})
	tk.SetInterval(2 * time.Millisecond)
	tk.Start()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(statuses) >= 2
	}, 2*time.Second, time.Millisecond)
	tk.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, RunCompleted, statuses[0])
}
