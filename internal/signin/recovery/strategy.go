package recovery

import (
	"context"
	"log/slog"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
)

// SessionStrategy purges corrupted session data, disconnects, and shows a
// dedicated session notice after SessionNoticeDelay.
type SessionStrategy struct {
	Wallet   Disconnector
	Cleaner  SessionCleaner
	Notifier Notifier
	Clock    clock.Clock
	Log      *slog.Logger
}

func (s *SessionStrategy) Handle(ctx context.Context, req Request) domain.RecoveryResult {
	log := logger(s.Log)
	if s.Wallet == nil {
		return unavailable(log, req)
	}

	performed := s.cleanup(ctx, req.Classification.CorrelationID)
	disconnect(ctx, s.Wallet, log)

	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	notifier := s.Notifier
	clk.AfterFunc(SessionNoticeDelay, func() {
		if notifier == nil {
			log.Warn("Session notice skipped", "error", domain.ErrServiceUnavailable)
			return
		}
		notifier.ShowSessionNotice()
	})

	return domain.RecoveryResult{
		ShouldDisconnect: true,
		ShouldShowError:  false, // the session notice covers it
		ErrorDelayMs:     0,
		CleanupPerformed: performed,
	}
}

// cleanup runs the stages in order until one completes without error.
func (s *SessionStrategy) cleanup(ctx context.Context, correlationID string) bool {
	log := logger(s.Log)
	if s.Cleaner == nil {
		log.Warn("Session cleanup skipped", "error", domain.ErrServiceUnavailable)
		return false
	}

	if correlationID != "" {
		_, err := s.Cleaner.PurgeCorrelated(ctx, correlationID)
		if err == nil {
			return true
		}
		log.Warn("Targeted session cleanup failed, falling back", "correlation_id", correlationID, "error", err)
	}

	_, err := s.Cleaner.PurgeConnection(ctx)
	if err == nil {
		return true
	}
	log.Warn("Full connection cleanup failed, falling back to preventive", "error", err)

	if _, err := s.Cleaner.Preventive(ctx); err != nil {
		log.Error("All session cleanup stages failed", "error", err)
		return false
	}
	return true
}

// TimeoutStrategy disconnects and shows the error once the disconnect has settled.
type TimeoutStrategy struct {
	Wallet Disconnector
	Log    *slog.Logger
}

func (s *TimeoutStrategy) Handle(ctx context.Context, req Request) domain.RecoveryResult {
	log := logger(s.Log)
	if s.Wallet == nil {
		return unavailable(log, req)
	}

	disconnect(ctx, s.Wallet, log)
	return domain.RecoveryResult{
		ShouldDisconnect: true,
		ShouldShowError:  true,
		ErrorDelayMs:     TimeoutErrorDelayMs,
		CleanupPerformed: false,
	}
}

// ConnectorStrategy handles a connector that is already gone; nothing to disconnect.
type ConnectorStrategy struct{}

func (ConnectorStrategy) Handle(ctx context.Context, req Request) domain.RecoveryResult {
	return domain.RecoveryResult{
		ShouldDisconnect: false,
		ShouldShowError:  true,
		ErrorDelayMs:     ConnectorErrorDelayMs,
		CleanupPerformed: false,
	}
}

// GenericStrategy disconnects only for errors the user did not cause while a
// connection is active.
type GenericStrategy struct {
	Wallet      Disconnector
	Categorizer Categorizer
	Log         *slog.Logger
}

func (s *GenericStrategy) Handle(ctx context.Context, req Request) domain.RecoveryResult {
	log := logger(s.Log)
	if s.Wallet == nil {
		return unavailable(log, req)
	}

	userInitiated := false
	if s.Categorizer != nil {
		userInitiated = s.Categorizer.IsUserInitiated(req.AppError)
	}
	shouldDisconnect := !userInitiated && req.Connection.IsConnected

	delay := 0
	switch {
	case shouldDisconnect:
		disconnect(ctx, s.Wallet, log)
		delay = GenericDisconnectDelayMs
	case userInitiated:
		delay = GenericUserInitiatedDelay
	}

	return domain.RecoveryResult{
		ShouldDisconnect: shouldDisconnect,
		ShouldShowError:  true,
		ErrorDelayMs:     delay,
		CleanupPerformed: false,
	}
}

// =============================================================================
// Helpers
// =============================================================================

func disconnect(ctx context.Context, w Disconnector, log *slog.Logger) {
	if err := w.Disconnect(ctx); err != nil {
		log.Error("Disconnect failed during recovery", "error", err)
	}
}

func unavailable(log *slog.Logger, req Request) domain.RecoveryResult {
	log.Error("Recovery skipped",
		"kind", req.Classification.Kind,
		"error", domain.ErrServiceUnavailable,
		"missing", "disconnect",
	)
	return unavailableResult
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
