package adapters

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"execintel/internal/event"
)

// robotOutput mirrors Robot Framework's output.xml: <robot><suite><test>
// with status/message children, possibly with nested suites.
type robotOutput struct {
	XMLName xml.Name     `xml:"robot"`
	Suites  []robotSuite `xml:"suite"`
}

type robotSuite struct {
	Name   string       `xml:"name,attr"`
	Suites []robotSuite `xml:"suite"`
	Tests  []robotTest  `xml:"test"`
}

type robotTest struct {
	Name   string       `xml:"name,attr"`
	Status robotStatus  `xml:"status"`
}

type robotStatus struct {
	Status  string `xml:"status,attr"`
	Starttime string `xml:"starttime,attr"`
	Message string `xml:",chardata"`
}

// RobotAdapter parses Robot Framework's output.xml report.
type RobotAdapter struct{}

func (RobotAdapter) Name() string { return "robot" }

func (RobotAdapter) CanHandle(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return strings.HasPrefix(trimmed, "<?xml") && strings.Contains(raw, "<robot ") && strings.Contains(raw, "<suite")
}

func (RobotAdapter) Parse(raw string) []event.ExecutionEvent {
	var output robotOutput
	if err := xml.Unmarshal([]byte(raw), &output); err != nil {
		return nil
	}

	runStart := time.Unix(0, 0).UTC()
	idx := 0
	var events []event.ExecutionEvent
	var walk func(suites []robotSuite, prefix string)
	walk = func(suites []robotSuite, prefix string) {
		for _, suite := range suites {
			path := suite.Name
			if prefix != "" {
				path = prefix + "." + suite.Name
			}
			for _, tc := range suite.Tests {
				name := path + "." + tc.Name
				status := robotStatusOf(tc.Status.Status)

				events = append(events, event.ExecutionEvent{
					Timestamp:     syntheticTimestamp(runStart, idx),
					Level:         event.LevelInfo,
					Source:        "robot",
					Message:       fmt.Sprintf("test %s %s", name, strings.ToLower(string(status))),
					LogSourceType: event.SourceAutomation,
					TestName:      name,
				})
				idx++

				if status == event.StatusFail && strings.TrimSpace(tc.Status.Message) != "" {
					msg := strings.TrimSpace(tc.Status.Message)
					events = append(events, event.ExecutionEvent{
						Timestamp:     syntheticTimestamp(runStart, idx),
						Level:         event.LevelError,
						Source:        "robot",
						Message:       msg,
						LogSourceType: event.SourceAutomation,
						TestName:      name,
						ExceptionType: extractExceptionType(msg),
					})
					idx++
				}
			}
			walk(suite.Suites, path)
		}
	}
	walk(output.Suites, "")
	return events
}

func robotStatusOf(raw string) event.Status {
	switch strings.ToUpper(raw) {
	case "PASS":
		return event.StatusPass
	case "SKIP":
		return event.StatusSkip
	case "FAIL":
		return event.StatusFail
	default:
		return event.StatusError
	}
}
