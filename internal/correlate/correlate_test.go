package correlate

import (
	"testing"
	"time"

	"execintel/internal/event"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}

func TestCorrelate_SharedExceptionTypeWithinWindow(t *testing.T) {
	failureTime := at(t, "2024-01-01T10:00:00Z")
	failure := event.ExecutionEvent{ExceptionType: "NullPointerException", Message: "assert response.status_code == 200"}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2024-01-01T10:00:05Z", Level: event.LevelError, ExceptionType: "NullPointerException", Message: "NullPointerException in PaymentService"},
	}

	result := Correlate(failure, failureTime, nil, appEvents, DefaultWindow)
	if !result.Correlated {
		t.Fatalf("expected correlation on shared exception_type")
	}
}

func TestCorrelate_OutsideWindowDoesNotCorrelate(t *testing.T) {
	failureTime := at(t, "2024-01-01T10:00:00Z")
	failure := event.ExecutionEvent{ExceptionType: "NullPointerException"}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2024-01-01T10:05:00Z", Level: event.LevelError, ExceptionType: "NullPointerException"},
	}

	result := Correlate(failure, failureTime, nil, appEvents, DefaultWindow)
	if result.Correlated {
		t.Fatalf("expected no correlation outside the window")
	}
}

func TestCorrelate_SharedHTTPStatusCode(t *testing.T) {
	failureTime := at(t, "2024-01-01T10:00:00Z")
	failure := event.ExecutionEvent{Message: "POST /orders returned 500"}
	sigs := []event.FailureSignal{{SignalType: event.SignalHTTPError, Metadata: map[string]string{"status_code": "500"}}}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2024-01-01T10:00:10Z", Level: event.LevelError, Message: "request failed with status 500 Internal Server Error"},
	}

	result := Correlate(failure, failureTime, sigs, appEvents, DefaultWindow)
	if !result.Correlated {
		t.Fatalf("expected correlation on shared HTTP status code")
	}
}

func TestCorrelate_BelowWarnLevelIgnored(t *testing.T) {
	failureTime := at(t, "2024-01-01T10:00:00Z")
	failure := event.ExecutionEvent{ExceptionType: "NullPointerException"}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2024-01-01T10:00:05Z", Level: event.LevelInfo, ExceptionType: "NullPointerException"},
	}

	result := Correlate(failure, failureTime, nil, appEvents, DefaultWindow)
	if result.Correlated {
		t.Fatalf("expected INFO-level application events to be ignored")
	}
}

func TestCorrelate_SharedDistinctiveTokens(t *testing.T) {
	failureTime := at(t, "2024-01-01T10:00:00Z")
	failure := event.ExecutionEvent{Message: "checkout failed processing payment gateway timeout"}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2024-01-01T10:00:05Z", Level: event.LevelError, Message: "payment gateway timeout while processing checkout request"},
	}

	result := Correlate(failure, failureTime, nil, appEvents, Window{Seconds: 30, MinSharedTokens: 3})
	if !result.Correlated {
		t.Fatalf("expected correlation on shared distinctive tokens")
	}
}

func TestCorrelate_NoApplicationEventsNeverCorrelates(t *testing.T) {
	result := Correlate(event.ExecutionEvent{}, at(t, "2024-01-01T10:00:00Z"), nil, nil, DefaultWindow)
	if result.Correlated {
		t.Fatalf("expected no correlation with no application events")
	}
}
