// Package classify maps raw wallet errors onto the recovery taxonomy.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vietddude/authguard/internal/core/domain"
)

// Indicator sets, evaluated in order. The first set that matches wins, so a
// message naming both a session problem and a timeout is a session error:
// session corruption needs the full cleanup.
var (
	sessionIndicators = []string{
		"no matching key",
		"session:",
		"session topic",
		"pairing",
		"walletconnect",
		"relayer",
		"record was recently deleted",
	}

	timeoutIndicators = []string{
		"timed out",
	}

	connectorIndicators = []string{
		"connectornotconnected",
		"connector not connected",
	}
)

var correlationPattern = regexp.MustCompile(`(?i)session:\s*([0-9a-f]{64})`)

// Message coerces any raw error value to a single string.
func Message(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Analyze classifies raw into exactly one kind.
func Analyze(raw any) domain.ErrorClassification {
	msg := Message(raw)
	c := domain.ErrorClassification{
		Kind:       KindOf(msg),
		RawMessage: msg,
	}
	if c.Kind == domain.ErrorKindSession {
		c.CorrelationID = ExtractCorrelationID(msg)
	}
	return c
}

// KindOf returns the kind of msg.
func KindOf(msg string) domain.ErrorKind {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, sessionIndicators):
		return domain.ErrorKindSession
	case containsAny(lower, timeoutIndicators):
		return domain.ErrorKindTimeout
	case containsAny(lower, connectorIndicators):
		return domain.ErrorKindConnector
	default:
		return domain.ErrorKindGeneric
	}
}

// ExtractCorrelationID returns the 64-hex session id following a "session:"
// marker, or "" if there is none.
func ExtractCorrelationID(msg string) string {
	m := correlationPattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// IsSessionCorruption is the default corruption detector used by the guard.
func IsSessionCorruption(msg string) bool {
	return containsAny(strings.ToLower(msg), sessionIndicators)
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
