package recovery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/signin/classify"
	"github.com/vietddude/authguard/internal/signin/metrics"
)

// Deps are the collaborators of a Coordinator. Any of them may be nil; missing
// collaborators degrade recovery instead of failing it.
type Deps struct {
	Wallet      Disconnector
	Cleaner     SessionCleaner
	Categorizer Categorizer
	Notifier    Notifier
	State       StateReader
	Feedback    Feedback
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Coordinator classifies raw errors, runs the matching strategy and hands the
// result to feedback.
type Coordinator struct {
	session   Strategy
	timeout   Strategy
	connector Strategy
	generic   Strategy

	categorizer Categorizer
	state       StateReader
	feedback    Feedback
	log         *slog.Logger
}

// NewCoordinator wires the four default strategies.
func NewCoordinator(d Deps) *Coordinator {
	log := logger(d.Logger).With("component", "recovery")
	clk := d.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Coordinator{
		session: &SessionStrategy{
			Wallet:   d.Wallet,
			Cleaner:  d.Cleaner,
			Notifier: d.Notifier,
			Clock:    clk,
			Log:      log.With("strategy", "session"),
		},
		timeout:   &TimeoutStrategy{Wallet: d.Wallet, Log: log.With("strategy", "timeout")},
		connector: ConnectorStrategy{},
		generic: &GenericStrategy{
			Wallet:      d.Wallet,
			Categorizer: d.Categorizer,
			Log:         log.With("strategy", "generic"),
		},
		categorizer: d.Categorizer,
		state:       d.State,
		feedback:    d.Feedback,
		log:         log,
	}
}

// SetStrategy replaces the strategy for kind.
func (c *Coordinator) SetStrategy(kind domain.ErrorKind, s Strategy) {
	switch kind {
	case domain.ErrorKindSession:
		c.session = s
	case domain.ErrorKindTimeout:
		c.timeout = s
	case domain.ErrorKindConnector:
		c.connector = s
	case domain.ErrorKindGeneric:
		c.generic = s
	}
}

// Recover runs the full recovery path for one raw error.
func (c *Coordinator) Recover(ctx context.Context, raw any) domain.RecoveryResult {
	cls := classify.Analyze(raw)
	metrics.ErrorsClassified.WithLabelValues(string(cls.Kind)).Inc()
	appErr := c.categorize(raw, cls)

	result := c.Dispatch(ctx, cls, appErr)

	if c.feedback != nil {
		c.feedback.Show(appErr, result)
	} else if result.ShouldShowError {
		c.log.Warn("Error display skipped", "error", domain.ErrServiceUnavailable, "missing", "feedback")
	}
	return result
}

// Dispatch runs the strategy for cls.Kind exactly once.
func (c *Coordinator) Dispatch(
	ctx context.Context,
	cls domain.ErrorClassification,
	appErr domain.AppError,
) domain.RecoveryResult {
	req := Request{Classification: cls, AppError: appErr}
	if c.state != nil {
		req.Connection = c.state.Capture()
	}

	strategy := c.strategyFor(cls.Kind)
	result := strategy.Handle(ctx, req)

	metrics.Recoveries.WithLabelValues(string(cls.Kind), metrics.BoolLabel(result.ShouldDisconnect)).Inc()
	c.log.Info("Recovery completed",
		"kind", cls.Kind,
		"correlation_id", cls.CorrelationID,
		"disconnect", result.ShouldDisconnect,
		"show_error", result.ShouldShowError,
		"delay_ms", result.ErrorDelayMs,
		"cleanup", result.CleanupPerformed,
	)
	return result
}

func (c *Coordinator) strategyFor(kind domain.ErrorKind) Strategy {
	switch kind {
	case domain.ErrorKindSession:
		return c.session
	case domain.ErrorKindTimeout:
		return c.timeout
	case domain.ErrorKindConnector:
		return c.connector
	case domain.ErrorKindGeneric:
		return c.generic
	default:
		c.log.Warn("Unknown error kind, using generic recovery", "kind", kind)
		return c.generic
	}
}

func (c *Coordinator) categorize(raw any, cls domain.ErrorClassification) domain.AppError {
	if c.categorizer != nil {
		return c.categorizer.Categorize(raw)
	}
	orig, ok := raw.(error)
	if !ok {
		orig = errors.New(cls.RawMessage)
	}
	return domain.AppError{
		Type:                domain.AppErrorUnknown,
		UserFriendlyMessage: cls.RawMessage,
		OriginalError:       orig,
	}
}
