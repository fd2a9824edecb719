package adapters

import (
	"testing"

	"execintel/internal/event"
)

func TestGenericAdapter_ParseExtractsErrorLevel(t *testing.T) {
	raw := "2024-01-01T10:00:00Z INFO starting up\n2024-01-01T10:00:01Z ERROR connection refused\n  at Client.connect(client.go:10)\n"
	events := (GenericAdapter{}).Parse(raw)

	var found bool
	for _, e := range events {
		if e.Level == event.LevelError {
			found = true
			if e.Stacktrace == "" {
				t.Errorf("expected stacktrace to be captured for error line")
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one ERROR level event")
	}
}

func TestGenericAdapter_EmptyInputProducesNoEvents(t *testing.T) {
	if events := (GenericAdapter{}).Parse("   \n  \n"); events != nil {
		t.Errorf("expected nil events for blank input, got %v", events)
	}
}

func TestGenericAdapter_AlwaysCanHandle(t *testing.T) {
	if !(GenericAdapter{}).CanHandle("anything at all") {
		t.Errorf("expected GenericAdapter.CanHandle to always return true")
	}
}
