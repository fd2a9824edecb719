package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// playwrightReport mirrors the @playwright/test JSON reporter: nested
// suites each containing specs, each spec carrying one or more tests,
// each test carrying result attempts with status/error.
type playwrightReport struct {
	Suites []playwrightSuite `json:"suites"`
}

type playwrightSuite struct {
	Title  string            `json:"title"`
	File   string            `json:"file"`
	Suites []playwrightSuite `json:"suites"`
	Specs  []playwrightSpec  `json:"specs"`
}

type playwrightSpec struct {
	Title string           `json:"title"`
	Tests []playwrightTest `json:"tests"`
}

type playwrightTest struct {
	Results []playwrightResult `json:"results"`
}

type playwrightResult struct {
	Status string           `json:"status"`
	Error  *playwrightError `json:"error"`
}

type playwrightError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

// PlaywrightAdapter parses the @playwright/test JSON reporter output.
type PlaywrightAdapter struct{}

func (PlaywrightAdapter) Name() string { return "playwright" }

func (PlaywrightAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "{") && strings.Contains(raw, "\"suites\"") &&
		(strings.Contains(raw, "\"specs\"") || strings.Contains(raw, "playwright"))
}

func (PlaywrightAdapter) Parse(raw string) []event.ExecutionEvent {
	var report playwrightReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil
	}

	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent

	var walk func(suites []playwrightSuite, prefix string)
	walk = func(suites []playwrightSuite, prefix string) {
		for _, suite := range suites {
			path := suite.Title
			if prefix != "" {
				path = prefix + " > " + suite.Title
			}
			for _, spec := range suite.Specs {
				testName := path + " > " + spec.Title
				status := event.StatusPass
				var failErr *playwrightError

				for _, t := range spec.Tests {
					for _, r := range t.Results {
						switch r.Status {
						case "failed", "timedOut":
							status = event.StatusFail
							if r.Error != nil {
								failErr = r.Error
							}
						case "skipped":
							if status == event.StatusPass {
								status = event.StatusSkip
							}
						}
					}
				}

				events = append(events, event.ExecutionEvent{
					Timestamp:     syntheticTimestamp(runStart, idx),
					Level:         event.LevelInfo,
					Source:        "playwright",
					Message:       fmt.Sprintf("test %s %s", testName, strings.ToLower(string(status))),
					LogSourceType: event.SourceAutomation,
					TestName:      testName,
					TestFile:      suite.File,
				})
				idx++

				if failErr != nil {
					events = append(events, event.ExecutionEvent{
						Timestamp:     syntheticTimestamp(runStart, idx),
						Level:         event.LevelError,
						Source:        "playwright",
						Message:       firstLine(failErr.Message),
						LogSourceType: event.SourceAutomation,
						TestName:      testName,
						TestFile:      suite.File,
						ExceptionType: extractExceptionType(failErr.Message),
						Stacktrace:    failErr.Stack,
					})
					idx++
				}
			}
			walk(suite.Suites, path)
		}
	}
	walk(report.Suites, "")
	return events
}
