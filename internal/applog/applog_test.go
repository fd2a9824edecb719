package applog

import (
	"testing"

	"execintel/internal/event"
)

func TestParseFile_MissingFileReturnsEmptyNotError(t *testing.T) {
	events := ParseFile(Source{Path: "/nonexistent/path/service.log", ServiceName: "payments"})
	if events != nil {
		t.Fatalf("expected nil events for missing file, got %d", len(events))
	}
}

func TestParse_Log4j(t *testing.T) {
	raw := "2024-01-01 10:00:01,123 ERROR [main] com.example.PaymentService - NullPointerException processing order 42\n"
	events := Parse(raw, Source{ServiceName: "payments", Format: "log4j"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Level != event.LevelError {
		t.Errorf("expected ERROR level, got %s", e.Level)
	}
	if e.LogSourceType != event.SourceApplication {
		t.Errorf("expected APPLICATION source type")
	}
	if e.ExceptionType != "NullPointerException" {
		t.Errorf("expected NullPointerException, got %q", e.ExceptionType)
	}
}

func TestParse_JSONLines(t *testing.T) {
	raw := `{"timestamp":"2024-01-01T10:00:00Z","level":"ERROR","message":"ServiceUnavailableException: downstream timeout"}`
	events := Parse(raw, Source{ServiceName: "gateway", Format: "json"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ExceptionType != "ServiceUnavailableException" {
		t.Errorf("expected ServiceUnavailableException, got %q", events[0].ExceptionType)
	}
}

func TestParse_AutoDetectFormat(t *testing.T) {
	raw := `{"level":"INFO","message":"ok"}`
	events := Parse(raw, Source{ServiceName: "svc"})
	if len(events) != 1 {
		t.Fatalf("expected 1 event from auto-detected json, got %d", len(events))
	}
}

func TestExtractHTTPStatus(t *testing.T) {
	if got := ExtractHTTPStatus("request failed with status 503 Service Unavailable"); got != "503" {
		t.Errorf("expected 503, got %q", got)
	}
}

func TestParse_EmptyContentIsEmptyNotError(t *testing.T) {
	if events := Parse("", Source{}); events != nil {
		t.Errorf("expected nil events for empty content")
	}
}
