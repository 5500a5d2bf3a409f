// Package feedback times user-visible error display relative to recovery.
package feedback

import (
	"log/slog"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
)

// Displayer shows an error to the user without blocking.
type Displayer interface {
	Show(appErr domain.AppError)
}

// Scheduler displays errors after the delay chosen by the recovery strategy.
type Scheduler struct {
	display Displayer
	clock   clock.Clock
	log     *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(display Displayer, clk clock.Clock, log *slog.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		display: display,
		clock:   clk,
		log:     log.With("component", "feedback"),
	}
}

// Show displays appErr now or after result.ErrorDelayMs. The scenario label is
// for logs only and never changes timing.
func (s *Scheduler) Show(appErr domain.AppError, result domain.RecoveryResult) {
	scenario := "non-disconnect"
	if result.ShouldDisconnect {
		scenario = "disconnect"
	}

	if !result.ShouldShowError {
		s.log.Debug("Error display suppressed", "scenario", scenario, "reason", "handled by dedicated notice")
		return
	}
	if s.display == nil {
		s.log.Warn("Error display skipped", "error", domain.ErrServiceUnavailable)
		return
	}

	if result.ErrorDelayMs <= 0 {
		s.log.Debug("Showing error", "scenario", scenario, "type", appErr.Type)
		s.display.Show(appErr)
		return
	}

	delay := time.Duration(result.ErrorDelayMs) * time.Millisecond
	s.log.Debug("Scheduling error display", "scenario", scenario, "type", appErr.Type, "delay", delay)
	display := s.display
	s.clock.AfterFunc(delay, func() {
		display.Show(appErr)
	})
}
