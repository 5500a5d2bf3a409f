// Package control wires the sign-in state and recovery components into a runnable engine.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/config"
	"github.com/vietddude/authguard/internal/core/snapshot"
	"github.com/vietddude/authguard/internal/core/worker"
	"github.com/vietddude/authguard/internal/infra/storage"
	"github.com/vietddude/authguard/internal/infra/wallet"
	"github.com/vietddude/authguard/internal/signin/categorize"
	"github.com/vietddude/authguard/internal/signin/cleanup"
	"github.com/vietddude/authguard/internal/signin/feedback"
	"github.com/vietddude/authguard/internal/signin/flow"
	"github.com/vietddude/authguard/internal/signin/guard"
	"github.com/vietddude/authguard/internal/signin/health"
	"github.com/vietddude/authguard/internal/signin/metrics"
	"github.com/vietddude/authguard/internal/signin/notify"
	"github.com/vietddude/authguard/internal/signin/recovery"
)

// Options override engine collaborators, mainly for tests.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger
	// Store replaces the configured key-value backend.
	Store storage.KVStore
	// ReportSink receives raw error reports before the guard inspects them.
	// Defaults to logging them at error level.
	ReportSink guard.Sink
}

// Engine owns one instance of every component.
type Engine struct {
	cfg   *config.AppConfig
	clock clock.Clock
	log   *slog.Logger

	store      storage.KVStore
	closeStore func() error

	snapshots   *snapshot.Store
	wallet      *wallet.Connector
	mutex       *cleanup.Mutex
	cleaner     *cleanup.Cleaner
	categorizer categorize.Categorizer
	notifier    *notify.LogNotifier
	feedback    *feedback.Scheduler
	coordinator *recovery.Coordinator
	channel     *guard.Channel
	guard       *guard.Guard
	janitor     *worker.Janitor
	server      *health.Server
}

// NewEngine creates an engine with all dependencies initialized. Nothing runs
// until Start.
func NewEngine(ctx context.Context, cfg *config.AppConfig, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	// 1. Initialize Storage
	store, closeStore := opts.Store, func() error { return nil }
	if store == nil {
		var err error
		store, closeStore, err = OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	// 2. Connection state
	snapshots := snapshot.NewStore(clk, log)
	snapshots.SetChangeCallback(func(s snapshot.Snapshot) {
		metrics.ConnectionSequence.Set(float64(s.SequenceNumber))
	})
	connector := wallet.NewConnector(snapshots, log)

	// 3. Cleanup and recovery
	mu := cleanup.NewMutex(log)
	cleaner := cleanup.NewCleaner(store, mu, cfg.Cleanup.Patterns, log)
	categorizer := categorize.New()
	notifier := notify.NewLogNotifier(clk, log, 0)
	scheduler := feedback.NewScheduler(notifier, clk, log)
	coordinator := recovery.NewCoordinator(recovery.Deps{
		Wallet:      connector,
		Cleaner:     cleaner,
		Categorizer: categorizer,
		Notifier:    notifier,
		State:       snapshots,
		Feedback:    scheduler,
		Clock:       clk,
		Logger:      log,
	})

	// 4. Raw error channel and guard
	sink := opts.ReportSink
	if sink == nil {
		sink = logSink(log)
	}
	channel := guard.NewChannel(sink)
	g := guard.New(channel, nil, coordinator, clk, log)

	janitor := worker.NewJanitor(cleaner, cfg.Cleanup.Interval, clk, log)

	// 5. HTTP surface
	deps := health.Deps{
		State:         snapshots,
		Wallet:        connector,
		Reporter:      channel,
		Notifications: notifier,
		Logger:        log,
	}
	if checker, ok := store.(health.HealthChecker); ok {
		deps.Checker = checker
	}
	server := health.NewServer(deps, cfg.Server.Port)

	return &Engine{
		cfg:         cfg,
		clock:       clk,
		log:         log,
		store:       store,
		closeStore:  closeStore,
		snapshots:   snapshots,
		wallet:      connector,
		mutex:       mu,
		cleaner:     cleaner,
		categorizer: categorizer,
		notifier:    notifier,
		feedback:    scheduler,
		coordinator: coordinator,
		channel:     channel,
		guard:       g,
		janitor:     janitor,
		server:      server,
	}, nil
}

// Start installs the guard and schedules the janitor. It does not start the
// HTTP server; see Run.
func (e *Engine) Start(ctx context.Context) {
	e.guard.Start(ctx)
	e.janitor.Start(ctx)
	e.log.Info("Engine started", "storage", e.cfg.Storage.Driver)
}

// Run starts the engine and serves HTTP until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(e.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return e.Stop(context.WithoutCancel(ctx))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop removes the guard, waits for in-flight recoveries and releases resources.
func (e *Engine) Stop(ctx context.Context) error {
	e.log.Info("Stopping engine...")

	e.janitor.Stop()
	e.guard.Stop()
	e.guard.Wait()

	var errs []error
	if err := e.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}
	if err := e.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// Channel is the raw error-reporting channel watched by the guard.
func (e *Engine) Channel() *guard.Channel { return e.channel }

// Guard returns the session-corruption guard.
func (e *Engine) Guard() *guard.Guard { return e.guard }

// Coordinator returns the recovery coordinator.
func (e *Engine) Coordinator() *recovery.Coordinator { return e.coordinator }

// Cleaner returns the persisted-key cleaner.
func (e *Engine) Cleaner() *cleanup.Cleaner { return e.cleaner }

// Snapshots returns the connection state store.
func (e *Engine) Snapshots() *snapshot.Store { return e.snapshots }

// Wallet returns the wallet connector.
func (e *Engine) Wallet() *wallet.Connector { return e.wallet }

// Notifier returns the notification collaborator.
func (e *Engine) Notifier() *notify.LogNotifier { return e.notifier }

// Store returns the persisted key-value store.
func (e *Engine) Store() storage.KVStore { return e.store }

// Server returns the HTTP server.
func (e *Engine) Server() *health.Server { return e.server }

// SignInFlow builds a sign-in flow over the engine state using the given
// wallet signer and backend login client.
func (e *Engine) SignInFlow(signer flow.Signer, login flow.LoginClient) *flow.Flow {
	return flow.New(e.cfg.SignIn, flow.Deps{
		State:     e.snapshots,
		Signer:    signer,
		Login:     login,
		Recoverer: e.coordinator,
		Clock:     e.clock,
		Logger:    e.log,
	})
}

func logSink(log *slog.Logger) guard.Sink {
	log = log.With("component", "report")
	return func(args ...any) {
		log.Error(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
	}
}
