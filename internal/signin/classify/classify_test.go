package classify

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vietddude/authguard/internal/core/domain"
	_ "github.com/vietddude/authguard/internal/signin/metrics"
)

var topic = strings.Repeat("ab12", 16)

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		kind   domain.ErrorKind
		corrID string
	}{
		{"walletconnect no matching key", "WalletConnect session error: No matching key", domain.ErrorKindSession, ""},
		{"session marker with id", errors.New("Missing or invalid. session: " + topic), domain.ErrorKindSession, topic},
		{"session marker upper case", "SESSION: " + strings.ToUpper(topic), domain.ErrorKindSession, strings.ToUpper(topic)},
		{"session marker short id", "session: abc123", domain.ErrorKindSession, ""},
		{"pairing", "pairing expired", domain.ErrorKindSession, ""},
		{"relayer", stringer{"Relayer connection lost"}, domain.ErrorKindSession, ""},
		{"session beats timeout", "WalletConnect request timed out", domain.ErrorKindSession, ""},
		{"timeout", "Request timed out", domain.ErrorKindTimeout, ""},
		{"timeout beats connector", "connector not connected: request timed out", domain.ErrorKindTimeout, ""},
		{"connector", "ConnectorNotConnectedError", domain.ErrorKindConnector, ""},
		{"connector phrase", errors.New("Connector not connected"), domain.ErrorKindConnector, ""},
		{"generic", "User rejected the request", domain.ErrorKindGeneric, ""},
		{"non string", 42, domain.ErrorKindGeneric, ""},
		{"nil", nil, domain.ErrorKindGeneric, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.raw)
			if got.Kind != tt.kind {
				t.Errorf("Analyze(%v).Kind = %s, want %s", tt.raw, got.Kind, tt.kind)
			}
			if got.CorrelationID != tt.corrID {
				t.Errorf("Analyze(%v).CorrelationID = %q, want %q", tt.raw, got.CorrelationID, tt.corrID)
			}
		})
	}
}

func TestAnalyze_RawMessagePreserved(t *testing.T) {
	got := Analyze(errors.New("Request Timed Out"))
	if got.RawMessage != "Request Timed Out" {
		t.Errorf("expected raw message preserved, got %q", got.RawMessage)
	}
}

func TestMessage(t *testing.T) {
	if got := Message(errors.New("boom")); got != "boom" {
		t.Errorf("error: got %q", got)
	}
	if got := Message(stringer{"str"}); got != "str" {
		t.Errorf("stringer: got %q", got)
	}
	if got := Message(3.5); got != "3.5" {
		t.Errorf("float: got %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("nil: got %q", got)
	}
}

func TestIsSessionCorruption(t *testing.T) {
	if !IsSessionCorruption("Error: No matching key. session: xyz") {
		t.Error("expected corruption")
	}
	if IsSessionCorruption("Request timed out") {
		t.Error("timeout is not corruption")
	}
}

func classifiedCount(t *testing.T, kind domain.ErrorKind) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "authguard_errors_classified_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "kind" && lp.GetValue() == string(kind) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAnalyze_RecordsNothing(t *testing.T) {
	before := classifiedCount(t, domain.ErrorKindSession)

	for i := 0; i < 3; i++ {
		Analyze("WalletConnect session error: No matching key")
	}

	if after := classifiedCount(t, domain.ErrorKindSession); after != before {
		t.Errorf("Analyze must not record classifications, counter moved %v -> %v", before, after)
	}
}
