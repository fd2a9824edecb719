package adapters

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// nunitTestRun mirrors NUnit 3's <test-run><test-suite>* nested report,
// where failures live one level deeper as <test-case result="Failed">.
type nunitTestRun struct {
	XMLName xml.Name        `xml:"test-run"`
	Suites  []nunitTestSuite `xml:"test-suite"`
}

type nunitTestSuite struct {
	Name      string           `xml:"name,attr"`
	Type      string           `xml:"type,attr"`
	Suites    []nunitTestSuite `xml:"test-suite"`
	TestCases []nunitTestCase  `xml:"test-case"`
}

type nunitTestCase struct {
	Name     string        `xml:"name,attr"`
	FullName string        `xml:"fullname,attr"`
	Result   string        `xml:"result,attr"`
	Failure  *nunitFailure `xml:"failure"`
}

type nunitFailure struct {
	Message    string `xml:"message"`
	StackTrace string `xml:"stack-trace"`
}

// NUnitAdapter parses NUnit 3's <test-run> XML report.
type NUnitAdapter struct{}

func (NUnitAdapter) Name() string { return "nunit" }

func (NUnitAdapter) CanHandle(raw string) bool {
	return strings.Contains(raw, "<test-run")
}

func (NUnitAdapter) Parse(raw string) []event.ExecutionEvent {
	var run nunitTestRun
	if err := xml.Unmarshal([]byte(raw), &run); err != nil {
		return nil
	}

	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	var walk func(suites []nunitTestSuite)
	walk = func(suites []nunitTestSuite) {
		for _, suite := range suites {
			for _, tc := range suite.TestCases {
				name := tc.FullName
				if name == "" {
					name = tc.Name
				}
				status := nunitStatus(tc.Result)

				events = append(events, event.ExecutionEvent{
					Timestamp:     syntheticTimestamp(runStart, idx),
					Level:         event.LevelInfo,
					Source:        "nunit",
					Message:       fmt.Sprintf("test %s %s", name, strings.ToLower(string(status))),
					LogSourceType: event.SourceAutomation,
					TestName:      name,
				})
				idx++

				if tc.Failure != nil && (status == event.StatusFail || status == event.StatusError) {
					events = append(events, event.ExecutionEvent{
						Timestamp:     syntheticTimestamp(runStart, idx),
						Level:         event.LevelError,
						Source:        "nunit",
						Message:       strings.TrimSpace(tc.Failure.Message),
						LogSourceType: event.SourceAutomation,
						TestName:      name,
						ExceptionType: extractExceptionType(tc.Failure.Message),
						Stacktrace:    strings.TrimSpace(tc.Failure.StackTrace),
					})
					idx++
				}
			}
			walk(suite.Suites)
		}
	}
	walk(run.Suites)
	return events
}

func nunitStatus(raw string) event.Status {
	switch strings.ToLower(raw) {
	case "passed":
		return event.StatusPass
	case "failed":
		return event.StatusFail
	case "skipped":
		return event.StatusSkip
	default:
		return event.StatusError
	}
}
