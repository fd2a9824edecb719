// Package correlate implements the application-log correlation half
// of C6 (spec §4.7): given an automation failure and application
// events inside a time window, decide whether they describe the same
// incident, driving a bounded confidence boost for PRODUCT_DEFECT
// classifications.
package correlate

import (
	"strconv"
	"strings"
	"time"

	"execintel/internal/applog"
	"execintel/internal/event"
)

// Window configures the correlation window and token-overlap threshold.
type Window struct {
	Seconds         int64
	MinSharedTokens int
}

// DefaultWindow matches the spec's default correlation window (test
// duration ± 30s) and shared-token threshold (K=3).
var DefaultWindow = Window{Seconds: 30, MinSharedTokens: 3}

// Result is the outcome of correlating one automation failure against
// a set of application events.
type Result struct {
	Correlated    bool
	MatchedEvent  *event.ExecutionEvent
	MatchedReason string
}

// Correlate checks whether any application event inside the window
// around failureTime corroborates the automation failure, per the
// three match strategies in spec §4.7 (shared exception_type, shared
// HTTP status code, or >= K shared distinctive tokens).
func Correlate(failureEvent event.ExecutionEvent, failureTime time.Time, signals []event.FailureSignal, appEvents []event.ExecutionEvent, w Window) Result {
	if w.Seconds <= 0 {
		w = DefaultWindow
	}
	if w.MinSharedTokens <= 0 {
		w.MinSharedTokens = DefaultWindow.MinSharedTokens
	}

	lo := failureTime.Add(-time.Duration(w.Seconds) * time.Second)
	hi := failureTime.Add(time.Duration(w.Seconds) * time.Second)

	httpStatuses := httpStatusesFromSignals(signals)
	failureTokens := distinctiveTokens(failureEvent.Message)

	for i := range appEvents {
		ae := &appEvents[i]
		if !atLeastWarn(ae.Level) {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, ae.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(lo) || ts.After(hi) {
			continue
		}

		if failureEvent.ExceptionType != "" && ae.ExceptionType == failureEvent.ExceptionType {
			return Result{Correlated: true, MatchedEvent: ae, MatchedReason: "shared exception_type"}
		}

		if status := applog.ExtractHTTPStatus(ae.Message); status != "" && httpStatuses[status] {
			return Result{Correlated: true, MatchedEvent: ae, MatchedReason: "shared HTTP status code"}
		}

		if shared := sharedTokenCount(failureTokens, distinctiveTokens(ae.Message)); shared >= w.MinSharedTokens {
			return Result{Correlated: true, MatchedEvent: ae, MatchedReason: "shared distinctive tokens"}
		}
	}
	return Result{Correlated: false}
}

func atLeastWarn(level event.LogLevel) bool {
	switch level {
	case event.LevelWarn, event.LevelError, event.LevelFatal:
		return true
	default:
		return false
	}
}

func httpStatusesFromSignals(signals []event.FailureSignal) map[string]bool {
	statuses := make(map[string]bool)
	for _, s := range signals {
		if s.SignalType != event.SignalHTTPError {
			continue
		}
		if code, ok := s.Metadata["status_code"]; ok {
			statuses[code] = true
		}
	}
	return statuses
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "was": true, "to": true,
	"of": true, "in": true, "on": true, "at": true, "for": true, "and": true,
	"or": true, "but": true, "with": true, "from": true, "by": true, "it": true,
}

func distinctiveTokens(msg string) map[string]bool {
	tokens := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(strings.ToLower(msg), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_'
	}) {
		if len(raw) < 3 || stopWords[raw] || isPureNumber(raw) {
			continue
		}
		tokens[raw] = true
	}
	return tokens
}

func isPureNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func sharedTokenCount(a, b map[string]bool) int {
	count := 0
	for tok := range a {
		if b[tok] {
			count++
		}
	}
	return count
}
