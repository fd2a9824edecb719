package adapters

import (
	"regexp"
	"strings"
	"time"

	"execintel/internal/event"
)

var pytestFailedLine = regexp.MustCompile(`^(?:FAILED|ERROR) (\S+) - (.*)$`)
var pytestSessionMarker = regexp.MustCompile(`={3,} (?:FAILURES|ERRORS|short test summary info)`)

// PytestAdapter parses pytest's console output: the "FAILED <nodeid> -
// <reason>" summary lines plus the "E   " prefixed assertion lines
// inside the "=== FAILURES ===" section tracebacks.
type PytestAdapter struct{}

func (PytestAdapter) Name() string { return "pytest" }

func (PytestAdapter) CanHandle(raw string) bool {
	return pytestSessionMarker.MatchString(raw) || strings.Contains(raw, "rootdir:") && strings.Contains(raw, "collected ")
}

func (PytestAdapter) Parse(raw string) []event.ExecutionEvent {
	lines := strings.Split(raw, "\n")
	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	currentTest := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, "\r")

		if m := pytestFailedLine.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
			currentTest = m[1]
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "pytest",
				Message:       m[2],
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
				ExceptionType: extractExceptionType(m[2]),
			})
			idx++
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(trimmed), "E ") {
			msg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed), "E"))
			trace, next := collectPytestTraceback(lines, i)
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelError,
				Source:        "pytest",
				Message:       msg,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
				ExceptionType: extractExceptionType(msg),
				Stacktrace:    trace,
			})
			idx++
			i = next - 1
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(trimmed), "___") {
			currentTest = strings.Trim(strings.TrimSpace(trimmed), "_ ")
		}
	}
	return events
}

// collectPytestTraceback gathers the "E   " continuation lines that
// make up one assertion's rendered diff.
func collectPytestTraceback(lines []string, i int) (string, int) {
	var trace []string
	j := i
	for j < len(lines) {
		trimmed := strings.TrimSpace(lines[j])
		if !strings.HasPrefix(trimmed, "E") && trimmed != "" {
			break
		}
		if trimmed == "" {
			j++
			break
		}
		trace = append(trace, strings.TrimPrefix(trimmed, "E"))
		j++
	}
	return strings.TrimSpace(strings.Join(trace, "\n")), j
}
