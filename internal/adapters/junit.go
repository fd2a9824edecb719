package adapters

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// junitTestSuites/junitTestSuite/junitTestCase mirror the structural
// shape of a JUnit XML report: one event per <testcase>, plus a
// FAILURE event per <failure>/<error> child carrying exception details
// (spec §4.1).
type junitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string           `xml:"name,attr"`
	Timestamp string           `xml:"timestamp,attr"`
	TestCases []junitTestCase  `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitOutcome `xml:"failure"`
	Error     *junitOutcome `xml:"error"`
	Skipped   *junitSkipped `xml:"skipped"`
}

type junitOutcome struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

// JUnitAdapter parses JUnit-style XML test reports (also used natively
// by many Java, Python, and JS test runners).
type JUnitAdapter struct{}

func (JUnitAdapter) Name() string { return "junit" }

func (JUnitAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "<?xml") &&
		(strings.Contains(raw, "<testsuites") || strings.Contains(raw, "<testsuite")) &&
		strings.Contains(raw, "<testcase")
}

func (JUnitAdapter) Parse(raw string) []event.ExecutionEvent {
	data := []byte(raw)

	var suites junitTestSuites
	if err := xml.Unmarshal(data, &suites); err == nil && len(suites.TestSuites) > 0 {
		return junitEventsFromSuites(suites.TestSuites)
	}

	var suite junitTestSuite
	if err := xml.Unmarshal(data, &suite); err == nil {
		return junitEventsFromSuites([]junitTestSuite{suite})
	}

	return nil
}

func junitEventsFromSuites(suites []junitTestSuite) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	runStart := time.Unix(0, 0).UTC()

	idx := 0
	for _, suite := range suites {
		suiteStart := runStart
		if ts, err := time.Parse(time.RFC3339, suite.Timestamp); err == nil {
			suiteStart = ts
		}
		for _, tc := range suite.TestCases {
			status := event.StatusPass
			switch {
			case tc.Failure != nil:
				status = event.StatusFail
			case tc.Error != nil:
				status = event.StatusError
			case tc.Skipped != nil:
				status = event.StatusSkip
			}

			events = append(events, event.ExecutionEvent{
				Timestamp:     syntheticTimestamp(suiteStart, idx),
				Level:         event.LevelInfo,
				Source:        "junit",
				Message:       fmt.Sprintf("test %s.%s %s", tc.ClassName, tc.Name, strings.ToLower(string(status))),
				LogSourceType: event.SourceAutomation,
				TestName:      junitTestName(tc),
				TestFile:      tc.ClassName,
			})
			idx++

			if outcome := tc.Failure; outcome != nil {
				events = append(events, junitFailureEvent(tc, outcome, "failure", suiteStart, idx))
				idx++
			}
			if outcome := tc.Error; outcome != nil {
				events = append(events, junitFailureEvent(tc, outcome, "error", suiteStart, idx))
				idx++
			}
		}
	}
	return events
}

func junitTestName(tc junitTestCase) string {
	if tc.ClassName != "" {
		return tc.ClassName + "::" + tc.Name
	}
	return tc.Name
}

func junitFailureEvent(tc junitTestCase, outcome *junitOutcome, kind string, suiteStart time.Time, idx int) event.ExecutionEvent {
	message := outcome.Message
	if message == "" {
		message = strings.TrimSpace(outcome.Content)
	}
	excType := outcome.Type
	if excType == "" {
		excType = extractExceptionType(outcome.Content)
	}
	return event.ExecutionEvent{
		Timestamp:     syntheticTimestamp(suiteStart, idx),
		Level:         event.LevelError,
		Source:        "junit",
		Message:       fmt.Sprintf("[%s] %s", kind, message),
		LogSourceType: event.SourceAutomation,
		TestName:      junitTestName(tc),
		TestFile:      tc.ClassName,
		ExceptionType: excType,
		Stacktrace:    strings.TrimSpace(outcome.Content),
	}
}
