// Package cleanup serializes destructive deletion of persisted wallet-session
// data and implements the deletion stages used by session recovery.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/authguard/internal/signin/metrics"
)

// ErrOperationPanicked wraps a panic raised by a cleanup operation.
var ErrOperationPanicked = errors.New("cleanup operation panicked")

// Operation is one destructive unit of work.
type Operation func(ctx context.Context) error

type pending struct {
	ctx  context.Context
	op   Operation
	done chan error
}

// Mutex guarantees at most one cleanup operation runs at a time.
//
// The caller that finds the lock free runs its operation, then drains the
// waiting queue in FIFO order before releasing the lock, whether or not its own
// operation failed. Queued operations report their own result to their own
// callers; their failures are also logged by the drainer and never affect the
// initiating caller. There is no bound on how long the lock is held.
type Mutex struct {
	mu         sync.Mutex
	inProgress bool
	queue      []*pending
	log        *slog.Logger
}

// NewMutex creates an unlocked cleanup mutex.
func NewMutex(log *slog.Logger) *Mutex {
	if log == nil {
		log = slog.Default()
	}
	return &Mutex{log: log.With("component", "cleanup_mutex")}
}

// Run executes op under the lock and returns op's own result.
func (m *Mutex) Run(ctx context.Context, op Operation) error {
	m.mu.Lock()
	if m.inProgress {
		p := &pending{ctx: ctx, op: op, done: make(chan error, 1)}
		m.queue = append(m.queue, p)
		metrics.CleanupQueueDepth.Set(float64(len(m.queue)))
		m.log.Debug("Cleanup in progress, queued", "position", len(m.queue))
		m.mu.Unlock()
		return <-p.done
	}
	m.inProgress = true
	m.mu.Unlock()

	defer m.drain()
	return call(ctx, op)
}

// InProgress reports whether the lock is held.
func (m *Mutex) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// Queued returns the number of waiting operations.
func (m *Mutex) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Mutex) drain() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.inProgress = false
			metrics.CleanupQueueDepth.Set(0)
			m.mu.Unlock()
			return
		}
		next := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		metrics.CleanupQueueDepth.Set(float64(len(m.queue)))
		m.mu.Unlock()

		err := call(next.ctx, next.op)
		if err != nil {
			m.log.Error("Queued cleanup failed", "error", err)
		}
		next.done <- err
	}
}

func call(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
		}
	}()
	return op(ctx)
}
