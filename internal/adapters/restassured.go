package adapters

import (
	"strings"
	"time"

	"execintel/internal/event"
)

// RestAssuredAdapter parses REST Assured's request/response logging
// and Hamcrest assertion-failure output ("Expected:" / "but: was"),
// distinct from generic HTTP-client logs by the "io.restassured"
// package marker.
type RestAssuredAdapter struct{}

func (RestAssuredAdapter) Name() string { return "restassured" }

func (RestAssuredAdapter) CanHandle(raw string) bool {
	return strings.Contains(raw, "io.restassured") || strings.Contains(raw, "RestAssuredResponseImpl")
}

func (RestAssuredAdapter) Parse(raw string) []event.ExecutionEvent {
	lines := strings.Split(raw, "\n")
	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	currentTest := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Request method:"), strings.HasPrefix(trimmed, "Request URI:"):
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelDebug,
				Source:        "restassured",
				Message:       trimmed,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
			})
			idx++

		case strings.Contains(trimmed, "java.lang.AssertionError"), strings.Contains(trimmed, "io.restassured.internal.") && strings.Contains(trimmed, "Exception"):
			trace, next := collectStacktrace(lines, i+1)
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "restassured",
				Message:       trimmed,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
				ExceptionType: extractExceptionType(trimmed),
				Stacktrace:    trace,
			})
			idx++
			i = next - 1

		case strings.HasPrefix(trimmed, "Expected:") || strings.HasPrefix(trimmed, "but:"):
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "restassured",
				Message:       trimmed,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
			})
			idx++

		case strings.Contains(trimmed, "Test:") || strings.Contains(trimmed, "@Test"):
			currentTest = trimmed
		}
	}
	return events
}
