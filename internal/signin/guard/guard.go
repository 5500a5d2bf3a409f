// Package guard intercepts raw error reports and starts session recovery at most
// once per incident.
//
// Every report is forwarded to the previous sink unchanged before anything else
// happens. Reports that the corruption detector flags start a recovery unless
//   - the same message was handled less than DedupWindow ago, or
//   - a recovery is already running.
//
// The running flag is cleared HandlingResetDelay after the recovery finishes, so
// trailing reports of the same condition are absorbed.
package guard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/signin/classify"
	"github.com/vietddude/authguard/internal/signin/metrics"
)

const (
	DedupWindow        = 5000 * time.Millisecond
	HandlingResetDelay = 3000 * time.Millisecond
)

// Detector reports whether a message indicates session corruption.
type Detector func(msg string) bool

// Recoverer runs the recovery path for one raw error.
type Recoverer interface {
	Recover(ctx context.Context, raw any) domain.RecoveryResult
}

// handlingState is the dedup/throttle state. Only the guard mutates it.
type handlingState struct {
	lastMessage string
	lastAt      time.Time
	handling    bool
}

// Guard wraps a Channel while started.
type Guard struct {
	channel   *Channel
	detect    Detector
	recoverer Recoverer
	clock     clock.Clock
	log       *slog.Logger

	mu      sync.Mutex
	state   handlingState
	started bool
	prev    Sink
	ctx     context.Context

	inflight sync.WaitGroup
}

// New creates a stopped guard. A nil detector uses classify.IsSessionCorruption.
func New(channel *Channel, detect Detector, recoverer Recoverer, clk clock.Clock, log *slog.Logger) *Guard {
	if detect == nil {
		detect = classify.IsSessionCorruption
	}
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		channel:   channel,
		detect:    detect,
		recoverer: recoverer,
		clock:     clk,
		log:       log.With("component", "guard"),
	}
}

// Start installs the guard on its channel. Starting a started guard is a no-op;
// starting while another guard owns the channel stops that guard first.
func (g *Guard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	if owner := g.channel.currentOwner(); owner != nil && owner != g {
		g.log.Info("Superseding active guard")
		owner.Stop()
	}

	prev := g.channel.install(g, g.intercept)

	g.mu.Lock()
	g.prev = prev
	g.ctx = context.WithoutCancel(ctx)
	g.started = true
	g.mu.Unlock()

	g.log.Debug("Guard started")
}

// Stop restores the sink that was active when the guard started. In-flight
// recoveries keep running; use Wait to block on them.
func (g *Guard) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	prev := g.prev
	g.started = false
	g.prev = nil
	g.mu.Unlock()

	if !g.channel.restore(g, prev) {
		g.log.Warn("Channel no longer owned by guard, leaving current sink in place")
		return
	}
	g.log.Debug("Guard stopped")
}

// Wait blocks until every recovery started so far has finished and its reset
// has been scheduled.
func (g *Guard) Wait() {
	g.inflight.Wait()
}

// Handling reports whether a recovery is running or still in its reset window.
func (g *Guard) Handling() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.handling
}

func (g *Guard) intercept(args ...any) {
	msg := joinArgs(args)

	g.mu.Lock()
	prev := g.prev
	g.mu.Unlock()
	if prev != nil {
		prev(args...)
	}

	if !g.safeDetect(msg) {
		metrics.GuardReports.WithLabelValues("ignored").Inc()
		return
	}

	g.mu.Lock()
	now := g.clock.Now()
	if msg == g.state.lastMessage && now.Sub(g.state.lastAt) < DedupWindow {
		g.mu.Unlock()
		metrics.GuardReports.WithLabelValues("deduplicated").Inc()
		g.log.Debug("Duplicate session error ignored")
		return
	}
	if g.state.handling {
		g.mu.Unlock()
		metrics.GuardReports.WithLabelValues("busy").Inc()
		g.log.Debug("Recovery already running, session error ignored")
		return
	}
	g.state.handling = true
	g.state.lastMessage = msg
	g.state.lastAt = now
	ctx := g.ctx
	g.mu.Unlock()

	incident := uuid.New().String()
	metrics.GuardReports.WithLabelValues("detected").Inc()
	g.log.Warn("Session corruption detected", "incident", incident, "message", msg)

	if ctx == nil {
		ctx = context.Background()
	}
	g.inflight.Add(1)
	go g.runRecovery(ctx, incident, msg)
}

func (g *Guard) runRecovery(ctx context.Context, incident, msg string) {
	defer g.inflight.Done()

	func() {
		defer func() {
			if r := recover(); r != nil {
				g.log.Error("Recovery failed", "incident", incident, "panic", r)
			}
		}()
		if g.recoverer == nil {
			g.log.Error("Recovery skipped", "incident", incident, "error", domain.ErrServiceUnavailable)
			return
		}
		result := g.recoverer.Recover(ctx, msg)
		g.log.Info("Recovery finished", "incident", incident, "cleanup", result.CleanupPerformed)
	}()

	g.clock.AfterFunc(HandlingResetDelay, func() {
		g.mu.Lock()
		g.state.handling = false
		g.mu.Unlock()
	})
}

func (g *Guard) safeDetect(msg string) (corrupt bool) {
	defer func() {
		if r := recover(); r != nil {
			metrics.GuardReports.WithLabelValues("detector_panic").Inc()
			g.log.Error("Corruption detector failed", "panic", r)
			corrupt = false
		}
	}()
	return g.detect(msg)
}

func joinArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = classify.Message(a)
	}
	return strings.Join(parts, " ")
}
