package signals

import (
	"testing"

	"execintel/internal/event"
)

func evt(msg, stack string) event.ExecutionEvent {
	return event.ExecutionEvent{Level: event.LevelError, Message: msg, Stacktrace: stack}
}

func TestExtract_TimeoutSignal(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("operation timed out after 30s", "")})
	if !hasSignal(sigs, event.SignalTimeout) {
		t.Fatalf("expected TIMEOUT signal")
	}
}

func TestExtract_AssertionWithExpectedActual(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("AssertionError: expected 200, but got 500", "")})
	sig := findSignal(sigs, event.SignalAssertion)
	if sig == nil {
		t.Fatalf("expected ASSERTION signal")
	}
	if sig.Metadata["expected"] == "" || sig.Metadata["actual"] == "" {
		t.Errorf("expected expected/actual to be captured, got %+v", sig.Metadata)
	}
}

func TestExtract_LocatorCapturesSelector(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt(`NoSuchElementException: locator="#submit-button"`, "")})
	sig := findSignal(sigs, event.SignalLocator)
	if sig == nil {
		t.Fatalf("expected LOCATOR signal")
	}
}

func TestExtract_HTTPErrorCapturesStatus(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("POST /api/orders returned 500 Internal Server Error", "")})
	sig := findSignal(sigs, event.SignalHTTPError)
	if sig == nil {
		t.Fatalf("expected HTTP_ERROR signal")
	}
	if sig.Metadata["status_code"] != "500" {
		t.Errorf("expected status_code=500, got %+v", sig.Metadata)
	}
}

func TestExtract_ConnectionErrorIsRetryableAndInfraRelated(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("connection refused to db host", "")})
	sig := findSignal(sigs, event.SignalConnectionError)
	if sig == nil {
		t.Fatalf("expected CONNECTION_ERROR signal")
	}
	if !sig.IsRetryable || !sig.IsInfraRelated {
		t.Errorf("expected connection errors to be retryable and infra-related, got %+v", sig)
	}
}

func TestExtract_AssertionIsNotRetryable(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("AssertionError: expected true", "")})
	sig := findSignal(sigs, event.SignalAssertion)
	if sig == nil {
		t.Fatalf("expected ASSERTION signal")
	}
	if sig.IsRetryable {
		t.Errorf("assertion signals must never be retryable")
	}
}

func TestExtract_NoSignalsForCleanPass(t *testing.T) {
	sigs := Extract([]event.ExecutionEvent{evt("test completed successfully", "")})
	if len(sigs) != 0 {
		t.Errorf("expected no signals for a clean pass, got %d", len(sigs))
	}
}

func TestExtract_PerformanceThresholdsRespectConfig(t *testing.T) {
	sigs := extractPerformanceWithThresholds([]event.ExecutionEvent{evt("test took duration: 5000ms", "")}, PerformanceThresholds{SlowTestMS: 1000, MemoryLeakMB: 500, HighCPUPercent: 90})
	if !hasSignal(sigs, event.SignalSlowTest) {
		t.Fatalf("expected SLOW_TEST signal when duration exceeds configured threshold")
	}
}

func hasSignal(sigs []event.FailureSignal, st event.SignalType) bool {
	return findSignal(sigs, st) != nil
}

func findSignal(sigs []event.FailureSignal, st event.SignalType) *event.FailureSignal {
	for i := range sigs {
		if sigs[i].SignalType == st {
			return &sigs[i]
		}
	}
	return nil
}
