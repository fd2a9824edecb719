package adapters

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// testngResults mirrors the <testng-results><suite><test><class><test-method>
// nesting TestNG emits, distinct from JUnit's flatter <testsuite><testcase>.
type testngResults struct {
	XMLName xml.Name     `xml:"testng-results"`
	Suites  []testngSuite `xml:"suite"`
}

type testngSuite struct {
	Name  string       `xml:"name,attr"`
	Tests []testngTest `xml:"test"`
}

type testngTest struct {
	Name    string         `xml:"name,attr"`
	Classes []testngClass  `xml:"class"`
}

type testngClass struct {
	Name    string          `xml:"name,attr"`
	Methods []testngMethod  `xml:"test-method"`
}

type testngMethod struct {
	Name        string          `xml:"name,attr"`
	Status      string          `xml:"status,attr"`
	Description string          `xml:"description,attr"`
	Exception   *testngException `xml:"exception"`
}

type testngException struct {
	Class      string `xml:"class,attr"`
	Message    string `xml:"message"`
	StackTrace string `xml:"full-stacktrace"`
}

// TestNGAdapter parses TestNG's native <testng-results> XML report.
type TestNGAdapter struct{}

func (TestNGAdapter) Name() string { return "testng" }

func (TestNGAdapter) CanHandle(raw string) bool {
	return strings.Contains(raw, "<testng-results")
}

func (TestNGAdapter) Parse(raw string) []event.ExecutionEvent {
	var results testngResults
	if err := xml.Unmarshal([]byte(raw), &results); err != nil {
		return nil
	}

	var events []event.ExecutionEvent
	runStart := time.Unix(0, 0).UTC()
	idx := 0

	for _, suite := range results.Suites {
		for _, test := range suite.Tests {
			for _, class := range test.Classes {
				for _, method := range class.Methods {
					testName := class.Name + "::" + method.Name
					status := testngStatus(method.Status)

					events = append(events, event.ExecutionEvent{
						Timestamp:     syntheticTimestamp(runStart, idx),
						Level:         event.LevelInfo,
						Source:        "testng",
						Message:       fmt.Sprintf("test %s %s", testName, strings.ToLower(string(status))),
						LogSourceType: event.SourceAutomation,
						TestName:      testName,
						TestFile:      class.Name,
					})
					idx++

					if method.Exception != nil && (status == event.StatusFail || status == event.StatusError) {
						exc := method.Exception
						events = append(events, event.ExecutionEvent{
							Timestamp:     syntheticTimestamp(runStart, idx),
							Level:         event.LevelError,
							Source:        "testng",
							Message:       fmt.Sprintf("[%s] %s", exc.Class, strings.TrimSpace(exc.Message)),
							LogSourceType: event.SourceAutomation,
							TestName:      testName,
							TestFile:      class.Name,
							ExceptionType: exc.Class,
							Stacktrace:    strings.TrimSpace(exc.StackTrace),
						})
						idx++
					}
				}
			}
		}
	}
	return events
}

func testngStatus(raw string) event.Status {
	switch strings.ToUpper(raw) {
	case "PASS":
		return event.StatusPass
	case "FAIL":
		return event.StatusFail
	case "SKIP":
		return event.StatusSkip
	default:
		return event.StatusError
	}
}
