package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Task runs a function at a fixed interval until stopped. Runs never
// overlap; a tick that arrives while a run is in progress is dropped.
type Task struct {
	name     string
	interval time.Duration
	clock    clockwork.Clock
	run      func(ctx context.Context)
	logger   *zap.Logger

	mu     gosync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTask creates a stopped task.
func NewTask(name string, interval time.Duration, clock clockwork.Clock, run func(ctx context.Context), logger *zap.Logger) *Task {
	return &Task{
		name:     name,
		interval: interval,
		clock:    clock,
		run:      run,
		logger:   logger,
	}
}

// Start begins ticking. The first run happens one interval from now.
// Starting a running task does nothing.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})

	ticker := t.clock.NewTicker(t.interval)
	go t.loop(ctx, ticker, t.done)
	t.logger.Debug("task started", zap.String("task", t.name), zap.Duration("interval", t.interval))
}

// Stop cancels the task and waits for an in-progress run to return.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	t.logger.Debug("task stopped", zap.String("task", t.name))
}

// Running reports whether the task is started.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

func (t *Task) loop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			t.run(ctx)
		case <-ctx.Done():
			return
		}
	}
}
