package adapters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// behaveFeature mirrors Behave's `--format json` output: close to
// Cucumber's shape but error_message is an array of lines rather than
// a single string. Step status is read from result.status only.
type behaveFeature struct {
	Name     string           `json:"name"`
	Location string           `json:"location"`
	Elements []behaveElement  `json:"elements"`
}

type behaveElement struct {
	Name  string        `json:"name"`
	Steps []behaveStep  `json:"steps"`
}

type behaveStep struct {
	Name   string        `json:"name"`
	Result behaveResult  `json:"result"`
}

type behaveResult struct {
	Status       string          `json:"status"`
	ErrorMessage json.RawMessage `json:"error_message"`
}

func (r behaveResult) errorText() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var lines []string
	if err := json.Unmarshal(r.ErrorMessage, &lines); err == nil {
		return strings.Join(lines, "\n")
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	return ""
}

// BehaveAdapter parses Behave's `--format json` output.
type BehaveAdapter struct{}

func (BehaveAdapter) Name() string { return "behave" }

func (BehaveAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "[") && strings.Contains(raw, "\"elements\"") && strings.Contains(raw, "\"location\"")
}

func (BehaveAdapter) Parse(raw string) []event.ExecutionEvent {
	var features []behaveFeature
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
			var failedStep *behaveStep

			for i := range scenario.Steps {
				step := &scenario.Steps[i]
				switch step.Result.Status {
				case "failed":
					status = event.StatusFail
					failedStep = step
				case "undefined", "skipped":
					if status == event.StatusPass {
						status = event.StatusSkip
					}
				}
			}

			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(runStart, idx),
				Level:         event.LevelInfo,
				Source:        "behave",
				Message:       fmt.Sprintf("scenario %s %s", testName, strings.ToLower(string(status))),
				LogSourceType: event.SourceAutomation,
				TestName:      testName,
				TestFile:      feature.Location,
			})
			idx++

			if failedStep != nil {
				msg := failedStep.Result.errorText()
				events = append(events, event.ExecutionEvent{
					Timestamp:     syntheticTimestamp(runStart, idx),
					Level:         event.LevelError,
					Source:        "behave",
					Message:       fmt.Sprintf("step %q failed: %s", failedStep.Name, firstLine(msg)),
					LogSourceType: event.SourceAutomation,
					TestName:      testName,
					TestFile:      feature.Location,
					ExceptionType: extractExceptionType(msg),
					Stacktrace:    msg,
				})
				idx++
			}
		}
	}
	return events
}
