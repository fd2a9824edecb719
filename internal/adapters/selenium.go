package adapters

import (
	"strings"
	"time"

	"execintel/internal/event"
)

var seleniumExceptionMarkers = []string{
	"selenium.common.exceptions",
	"org.openqa.selenium",
	"NoSuchElementException",
	"ElementNotInteractableException",
	"StaleElementReferenceException",
	"WebDriverException",
	"TimeoutException",
}

// SeleniumAdapter parses raw Selenium WebDriver test logs, identified
// by the org.openqa.selenium / selenium.common.exceptions namespace
// markers that precede a locator or WebDriver failure.
type SeleniumAdapter struct{}

func (SeleniumAdapter) Name() string { return "selenium" }

func (SeleniumAdapter) CanHandle(raw string) bool {
	for _, marker := range seleniumExceptionMarkers {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

func (SeleniumAdapter) Parse(raw string) []event.ExecutionEvent {
	lines := strings.Split(raw, "\n")
	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	currentTest := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if ts, ok := extractTimestamp(trimmed); ok {
			_ = ts
		}

		isException := false
		for _, marker := range seleniumExceptionMarkers {
			if strings.Contains(trimmed, marker) {
				isException = true
				break
			}
		}

		switch {
		case strings.Contains(trimmed, "test_") || strings.HasPrefix(trimmed, "Test:") || strings.Contains(trimmed, "def test"):
			currentTest = trimmed

		case isException:
			trace, next := collectStacktrace(lines, i+1)
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         detectLevel(trimmed),
				Source:        "selenium",
				Message:       trimmed,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
				ExceptionType: extractExceptionType(trimmed),
				Stacktrace:    trace,
			})
			idx++
			i = next - 1

		default:
			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         detectLevel(trimmed),
				Source:        "selenium",
				Message:       trimmed,
				LogSourceType: event.SourceAutomation,
				TestName:      currentTest,
			})
			idx++
		}
	}
	return events
}
