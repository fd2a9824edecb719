package adapters

import (
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// SpecFlowAdapter parses SpecFlow's console test output: a sequence of
// "Scenario: <name>" headers followed by step lines, with a failing
// step marked by a "TechTalk.SpecFlow" binding error or a
// "-> error:" annotation carrying the exception.
type SpecFlowAdapter struct{}

func (SpecFlowAdapter) Name() string { return "specflow" }

func (SpecFlowAdapter) CanHandle(raw string) bool {
	return strings.Contains(raw, "TechTalk.SpecFlow") || strings.Contains(raw, "SpecFlow.Assist")
}

func (SpecFlowAdapter) Parse(raw string) []event.ExecutionEvent {
	lines := strings.Split(raw, "\n")
	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	currentScenario := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Scenario:"):
			currentScenario = strings.TrimSpace(strings.TrimPrefix(trimmed, "Scenario:"))
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelInfo,
				Source:        "specflow",
				Message:       fmt.Sprintf("scenario %s started", currentScenario),
				LogSourceType: event.SourceAutomation,
				TestName:      currentScenario,
			})
			idx++

		case strings.Contains(trimmed, "-> error:") || strings.Contains(trimmed, "TechTalk.SpecFlow.BindingException"):
			msg := strings.TrimSpace(strings.TrimPrefix(trimmed, "-> error:"))
			trace, next := collectStacktrace(lines, i+1)
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "specflow",
				Message:       msg,
				LogSourceType: event.SourceAutomation,
				TestName:      currentScenario,
				ExceptionType: extractExceptionType(msg),
				Stacktrace:    trace,
			})
			idx++
			i = next - 1
		}
	}
	return events
}
