package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
)

// Sweeper removes stale persisted session data.
type Sweeper interface {
	Preventive(ctx context.Context) (int, error)
}

// Janitor runs preventive cleanup on a fixed interval.
type Janitor struct {
	sweeper  Sweeper
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	timer   clock.Timer
	running bool
	wg      sync.WaitGroup
}

// NewJanitor creates a janitor. A non-positive interval disables it.
func NewJanitor(sweeper Sweeper, interval time.Duration, clk clock.Clock, log *slog.Logger) *Janitor {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		sweeper:  sweeper,
		interval: interval,
		clock:    clk,
		log:      log.With("component", "janitor"),
	}
}

// Start schedules the first sweep one interval from now. It returns immediately.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		return // Janitor disabled
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}
	j.ctx = ctx
	j.running = true
	j.timer = j.clock.AfterFunc(j.interval, j.tick)
	j.log.Info("Janitor started", "interval", j.interval)
}

// Stop cancels the next sweep and waits for a sweep already running to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.running {
		j.running = false
		if j.timer != nil {
			j.timer.Stop()
		}
	}
	j.mu.Unlock()

	j.wg.Wait()
}

func (j *Janitor) tick() {
	j.mu.Lock()
	ctx, running := j.ctx, j.running
	if !running || ctx.Err() != nil {
		j.mu.Unlock()
		return
	}
	j.wg.Add(1)
	j.mu.Unlock()
	defer j.wg.Done()

	j.sweep(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running && ctx.Err() == nil {
		j.timer = j.clock.AfterFunc(j.interval, j.tick)
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.sweeper.Preventive(ctx)
	if err != nil {
		j.log.Error("Preventive sweep failed", "deleted", deleted, "error", err)
		return
	}
	if deleted > 0 {
		j.log.Info("Preventive sweep removed stale keys", "deleted", deleted)
	}
}
