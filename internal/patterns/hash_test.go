package patterns

import (
	"testing"

	"execintel/internal/event"
)

func TestHashDeterministicAcrossEquivalentMessages(t *testing.T) {
	m1 := Normalize("Error on line 42 in /a/b/c.py")
	m2 := Normalize("Error on line 99 in /x/y/c.py")
	if Hash(event.SignalAssertion, m1) != Hash(event.SignalAssertion, m2) {
		t.Fatalf("expected equal hashes for equivalent normalized messages")
	}
}

func TestHashDiffersBySignalType(t *testing.T) {
	msg := Normalize("connection refused")
	h1 := Hash(event.SignalConnectionError, msg)
	h2 := Hash(event.SignalDNSError, msg)
	if h1 == h2 {
		t.Fatalf("expected hashes to differ when signal_type differs")
	}
}

func TestHashLength(t *testing.T) {
	h := Hash(event.SignalTimeout, "x")
	if len(h) != 16 {
		t.Fatalf("expected 16 hex chars, got %d (%q)", len(h), h)
	}
}

func TestFrequencyBoostClampsAndDiminishes(t *testing.T) {
	if b := FrequencyBoost(0, 20); b != 0 {
		t.Errorf("expected 0 boost for 0 occurrences, got %v", b)
	}
	small := FrequencyBoost(1, 20)
	large := FrequencyBoost(1000, 20)
	if large > 0.15 {
		t.Errorf("expected boost clamped to 0.15, got %v", large)
	}
	if small >= large {
		t.Errorf("expected boost to increase with occurrence count: %v >= %v", small, large)
	}
}
