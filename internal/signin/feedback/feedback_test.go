package feedback

import (
	"testing"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
)

type recordingDisplay struct {
	shown []domain.AppError
}

func (d *recordingDisplay) Show(appErr domain.AppError) {
	d.shown = append(d.shown, appErr)
}

func TestScheduler_Suppressed(t *testing.T) {
	fc := clock.NewFake()
	d := &recordingDisplay{}
	s := NewScheduler(d, fc, nil)

	s.Show(domain.AppError{Type: domain.AppErrorSession}, domain.RecoveryResult{ShouldDisconnect: true})
	fc.Advance(time.Minute)

	if len(d.shown) != 0 {
		t.Errorf("expected no display, got %d", len(d.shown))
	}
	if fc.Pending() != 0 {
		t.Error("suppressed display must not schedule a timer")
	}
}

func TestScheduler_Immediate(t *testing.T) {
	fc := clock.NewFake()
	d := &recordingDisplay{}
	s := NewScheduler(d, fc, nil)

	s.Show(domain.AppError{Type: domain.AppErrorUnknown}, domain.RecoveryResult{ShouldShowError: true, ErrorDelayMs: 0})
	if len(d.shown) != 1 {
		t.Errorf("expected immediate display, got %d", len(d.shown))
	}

	s.Show(domain.AppError{Type: domain.AppErrorUnknown}, domain.RecoveryResult{ShouldShowError: true, ErrorDelayMs: -5})
	if len(d.shown) != 2 {
		t.Errorf("negative delay should display immediately, got %d", len(d.shown))
	}
}

func TestScheduler_DelayIgnoresScenario(t *testing.T) {
	for _, disconnect := range []bool{true, false} {
		fc := clock.NewFake()
		d := &recordingDisplay{}
		s := NewScheduler(d, fc, nil)

		s.Show(domain.AppError{Type: domain.AppErrorTimeout}, domain.RecoveryResult{
			ShouldDisconnect: disconnect,
			ShouldShowError:  true,
			ErrorDelayMs:     2000,
		})

		fc.Advance(1999 * time.Millisecond)
		if len(d.shown) != 0 {
			t.Fatalf("disconnect=%v: displayed before delay", disconnect)
		}
		fc.Advance(time.Millisecond)
		if len(d.shown) != 1 {
			t.Errorf("disconnect=%v: expected display at exactly 2000ms, got %d", disconnect, len(d.shown))
		}
	}
}
