package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// cucumberFeature mirrors the Cucumber/Gherkin JSON formatter output:
// an array of features, each with elements (scenarios), each with
// steps carrying a result.status/error_message.
type cucumberFeature struct {
	Name     string             `json:"name"`
	URI      string             `json:"uri"`
	Elements []cucumberElement  `json:"elements"`
}

type cucumberElement struct {
	Name  string         `json:"name"`
	Type  string         `json:"type"`
	Steps []cucumberStep `json:"steps"`
}

type cucumberStep struct {
	Name   string         `json:"name"`
	Result cucumberResult `json:"result"`
}

type cucumberResult struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Duration     int64  `json:"duration"`
}

// CucumberAdapter parses the Cucumber JSON formatter output shared by
// the Ruby, JVM, and JS Cucumber implementations.
type CucumberAdapter struct{}

func (CucumberAdapter) Name() string { return "cucumber" }

func (CucumberAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return false
	}
	return strings.Contains(raw, "\"elements\"") && strings.Contains(raw, "\"steps\"")
}

func (CucumberAdapter) Parse(raw string) []event.ExecutionEvent {
	var features []cucumberFeature
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return nil
	}

	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	for _, feature := range features {
		for _, scenario := range feature.Elements {
			testName := feature.Name + "::" + scenario.Name
			status := event.StatusPass
			var failedStep *cucumberStep

			for i := range scenario.Steps {
				step := &scenario.Steps[i]
				switch step.Result.Status {
				case "failed":
					status = event.StatusFail
					failedStep = step
				case "undefined", "pending":
					if status == event.StatusPass {
						status = event.StatusSkip
					}
				}
			}

			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelInfo,
				Source:        "cucumber",
				Message:       fmt.Sprintf("scenario %s %s", testName, strings.ToLower(string(status))),
				LogSourceType: event.SourceAutomation,
				TestName:      testName,
				TestFile:      feature.URI,
			})
			idx++

			if failedStep != nil {
				msg := strings.TrimSpace(failedStep.Result.ErrorMessage)
				events = append(events, event.ExecutionEvent{
					Timestamp:     syntheticTimestamp(runStart, idx),
					Level:         event.LevelError,
					Source:        "cucumber",
					Message:       fmt.Sprintf("step %q failed: %s", failedStep.Name, firstLine(msg)),
					LogSourceType: event.SourceAutomation,
					TestName:      testName,
					TestFile:      feature.URI,
					ExceptionType: extractExceptionType(msg),
					Stacktrace:    msg,
				})
				idx++
			}
		}
	}
	return events
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
