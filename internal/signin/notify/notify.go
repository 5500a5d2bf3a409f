// Package notify provides the default user notification collaborator.
package notify

import (
	"log/slog"
	"sync"

	"github.com/vietddude/authguard/internal/core/clock"
	"github.com/vietddude/authguard/internal/core/domain"
	"github.com/vietddude/authguard/internal/signin/metrics"
)

// SessionNoticeType is the notification type of the post-cleanup session notice.
const SessionNoticeType = "session_notice"

// SessionNoticeMessage is shown after a session error was cleaned up.
const SessionNoticeMessage = "Your wallet session was reset. Please reconnect your wallet to continue."

const defaultHistory = 50

// Notification is one shown notification.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	ShownAt int64  `json:"shown_at"`
}

// LogNotifier logs notifications and keeps the most recent ones in memory.
type LogNotifier struct {
	clock clock.Clock
	log   *slog.Logger

	mu      sync.Mutex
	history []Notification
	limit   int
}

// NewLogNotifier creates a notifier keeping up to limit notifications.
// A non-positive limit uses the default.
func NewLogNotifier(clk clock.Clock, log *slog.Logger, limit int) *LogNotifier {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = slog.Default()
	}
	if limit <= 0 {
		limit = defaultHistory
	}
	return &LogNotifier{
		clock: clk,
		log:   log.With("component", "notify"),
		limit: limit,
	}
}

// Show displays appErr.
func (n *LogNotifier) Show(appErr domain.AppError) {
	n.record(string(appErr.Type), appErr.UserFriendlyMessage)
	n.log.Warn("Showing error", "type", appErr.Type, "message", appErr.UserFriendlyMessage, "error", appErr.OriginalError)
}

// ShowSessionNotice displays the session reset notice.
func (n *LogNotifier) ShowSessionNotice() {
	n.record(SessionNoticeType, SessionNoticeMessage)
	n.log.Info("Showing session notice")
}

// Recent returns shown notifications, oldest first.
func (n *LogNotifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.history))
	copy(out, n.history)
	return out
}

func (n *LogNotifier) record(typ, msg string) {
	metrics.Notifications.WithLabelValues(typ).Inc()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = append(n.history, Notification{
		Type:    typ,
		Message: msg,
		ShownAt: n.clock.Now().UnixMilli(),
	})
	if over := len(n.history) - n.limit; over > 0 {
		n.history = append(n.history[:0], n.history[over:]...)
	}
}
