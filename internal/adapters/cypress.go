package adapters

import (
	"encoding/json"
	"strings"
	"time"

	"execintel/internal/event"
)

// cypressReport mirrors Cypress's mochawesome/mocha-json reporter
// output: a flat "tests" array (state, fullTitle, err), distinct from
// Playwright's nested suite tree.
type cypressReport struct {
	Tests []cypressTest `json:"tests"`
}

type cypressTest struct {
	Title     string      `json:"title"`
	FullTitle string      `json:"fullTitle"`
	File      string      `json:"file"`
	State     string      `json:"state"`
	Err       cypressErr  `json:"err"`
}

type cypressErr struct {
	Message      string `json:"message"`
	EstackTrace  string `json:"estack"`
}

// CypressAdapter parses Cypress's mocha/mochawesome JSON reporter output.
type CypressAdapter struct{}

func (CypressAdapter) Name() string { return "cypress" }

func (CypressAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "{") && strings.Contains(raw, "\"fullTitle\"") && strings.Contains(raw, "\"tests\"")
}

func (CypressAdapter) Parse(raw string) []event.ExecutionEvent {
	var report cypressReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil
	}

	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	for _, t := range report.Tests {
		name := t.FullTitle
		if name == "" {
			name = t.Title
		}
		status := cypressStatus(t.State)

		events = append(events, event.ExecutionEvent{
			Timestamp:     syntheticTimestamp(runStart, idx),
			Level:         event.LevelInfo,
			Source:        "cypress",
			Message:       "test " + name + " " + strings.ToLower(string(status)),
			LogSourceType: event.SourceAutomation,
			TestName:      name,
			TestFile:      t.File,
		})
		idx++

		if status == event.StatusFail && strings.TrimSpace(t.Err.Message) != "" {
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "cypress",
				Message:       firstLine(t.Err.Message),
				LogSourceType: event.SourceAutomation,
				TestName:      name,
				TestFile:      t.File,
				ExceptionType: extractExceptionType(t.Err.Message),
				Stacktrace:    t.Err.EstackTrace,
			})
			idx++
		}
	}
	return events
}

func cypressStatus(raw string) event.Status {
	switch strings.ToLower(raw) {
	case "passed":
		return event.StatusPass
	case "failed":
		return event.StatusFail
	case "pending", "skipped":
		return event.StatusSkip
	default:
		return event.StatusError
	}
}
