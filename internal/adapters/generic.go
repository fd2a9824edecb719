package adapters

import (
	"strings"
	"time"

	"execintel/internal/event"
)

// GenericAdapter is the catch-all fallback: it treats raw as plain
// line-oriented log text, extracting a level and timestamp per line
// and collecting any trailing indented/"at "-style continuation lines
// as a stacktrace. Always reports CanHandle true so auto-detection
// never fails to produce events.
type GenericAdapter struct{}

func (GenericAdapter) Name() string { return "generic" }

func (GenericAdapter) CanHandle(raw string) bool {
	return true
}

func (GenericAdapter) Parse(raw string) []event.ExecutionEvent {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}

		ts, hasTS := extractTimestamp(trimmed)
		timestamp := ts
		if !hasTS {
			timestamp = syntheticTimestamp(runStart, idx)
		}

		level := detectLevel(trimmed)
		ev := event.ExecutionEvent{
			Timestamp:     timestamp,
			Level:         level,
			Source:        "generic",
			Message:       trimmed,
			LogSourceType: event.SourceAutomation,
		}

		if level == event.LevelError || level == event.LevelFatal {
			trace, next := collectStacktrace(lines, i+1)
			if trace != "" {
				ev.Stacktrace = trace
				ev.ExceptionType = extractExceptionType(trimmed)
				i = next - 1
			}
		}

		events = append(events, ev)
		idx++
	}
	return events
}
