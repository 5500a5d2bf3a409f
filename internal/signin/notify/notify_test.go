package notify

import (
	"testing"
	"time"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
)

func TestLogNotifier_RecordsInOrder(t *testing.T) {
	clk := clock.NewFake()
	n := NewLogNotifier(clk, nil, 0)

	n.Show(domain.AppError{Type: domain.AppErrorTimeout, UserFriendlyMessage: "slow"})
	clk.Advance(time.Second)
	n.ShowSessionNotice()

	got := n.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Type != "timeout" || got[0].Message != "slow" {
		t.Errorf("unexpected first notification: %+v", got[0])
	}
	if got[1].Type != SessionNoticeType || got[1].Message != SessionNoticeMessage {
		t.Errorf("unexpected second notification: %+v", got[1])
	}
	if got[1].ShownAt-got[0].ShownAt != 1000 {
		t.Errorf("expected 1000ms between notifications, got %d", got[1].ShownAt-got[0].ShownAt)
	}
}

func TestLogNotifier_HistoryLimit(t *testing.T) {
	n := NewLogNotifier(clock.NewFake(), nil, 2)

	for _, msg := range []string{"a", "b", "c"} {
		n.Show(domain.AppError{Type: domain.AppErrorUnknown, UserFriendlyMessage: msg})
	}

	got := n.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Message != "b" || got[1].Message != "c" {
		t.Errorf("expected oldest dropped, got %+v", got)
	}
}
