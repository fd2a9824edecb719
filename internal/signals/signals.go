// Package signals extracts FailureSignals from one test's event
// stream. Each extractor is a stateless function run independently of
// the others; results are concatenated in the fixed order below so
// identical input always yields identical signal ordering (spec §4.4).
package signals

import (
	"regexp"
	"strconv"
	"strings"

	"execintel/internal/event"
)

// Extractor is a stateless signal-detection function.
type Extractor func(events []event.ExecutionEvent) []event.FailureSignal

// extractors runs in this fixed declared order; never reorder without
// also updating any snapshot tests that depend on signal ordering.
var extractors = []Extractor{
	extractTimeout,
	extractAssertion,
	extractLocator,
	extractHTTPError,
	extractConnectionError,
	extractDNSError,
	extractInfra,
	extractNullPointer,
	extractImport,
	extractSyntax,
	extractDatabase,
	extractPerformance,
}

// Extract runs every extractor over events and concatenates their
// signals in declaration order.
func Extract(events []event.ExecutionEvent) []event.FailureSignal {
	var signals []event.FailureSignal
	for _, extract := range extractors {
		signals = append(signals, extract(events)...)
	}
	return signals
}

func containsAny(haystack string, needles ...string) (string, bool) {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}

func firstEventMatching(events []event.ExecutionEvent, needles ...string) *event.ExecutionEvent {
	for i := range events {
		text := events[i].Message + " " + events[i].Stacktrace
		if _, ok := containsAny(text, needles...); ok {
			return &events[i]
		}
	}
	return nil
}

var timeoutKeywords = []string{"timeout", "timed out", "TimeoutError", "WebDriverTimeout", "deadline exceeded"}

func extractTimeout(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, timeoutKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, timeoutKeywords...)
	sig := event.NewFailureSignal(event.SignalTimeout, e.Message, 0.8)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"timeout.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var assertionKeywords = []string{"AssertionError", "assert failed", "assertEqual", "should equal", "expected"}
var expectedActualPattern = regexp.MustCompile(`(?i)expected[:\s]+(.+?)\s*,?\s*(?:but )?(?:got|actual)[:\s]+(.+)`)

func extractAssertion(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, assertionKeywords...)
	if e == nil {
		return nil
	}
	text := e.Message + " " + e.Stacktrace
	kw, _ := containsAny(text, assertionKeywords...)
	sig := event.NewFailureSignal(event.SignalAssertion, e.Message, 0.75)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"assertion.keyword"}
	sig.Stacktrace = e.Stacktrace
	if m := expectedActualPattern.FindStringSubmatch(text); m != nil {
		sig.Metadata = map[string]string{"expected": strings.TrimSpace(m[1]), "actual": strings.TrimSpace(m[2])}
	}
	return []event.FailureSignal{sig}
}

var locatorKeywords = []string{"NoSuchElement", "ElementNotInteractable", "StaleElement", "locator not found", "element not found"}
var selectorPattern = regexp.MustCompile(`(?:selector|locator|by\.\w+)[=:\s(]+["']?([^"'\)]+)["']?`)

func extractLocator(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, locatorKeywords...)
	if e == nil {
		return nil
	}
	text := e.Message + " " + e.Stacktrace
	kw, _ := containsAny(text, locatorKeywords...)
	sig := event.NewFailureSignal(event.SignalLocator, e.Message, 0.8)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"locator.keyword"}
	sig.Stacktrace = e.Stacktrace
	if m := selectorPattern.FindStringSubmatch(text); m != nil {
		sig.Metadata = map[string]string{"selector": strings.TrimSpace(m[1])}
	}
	return []event.FailureSignal{sig}
}

var httpStatusPattern = regexp.MustCompile(`\b([45]\d{2})\b`)
var httpMethodURLPattern = regexp.MustCompile(`(?i)\b(GET|POST|PUT|DELETE|PATCH|HEAD)\s+(\S+)`)

func extractHTTPError(events []event.ExecutionEvent) []event.FailureSignal {
	for i := range events {
		e := &events[i]
		text := e.Message + " " + e.Stacktrace
		m := httpStatusPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		status := m[1]
		sig := event.NewFailureSignal(event.SignalHTTPError, e.Message, 0.7)
		sig.Patterns = []string{"http.status"}
		sig.Stacktrace = e.Stacktrace
		meta := map[string]string{"status_code": status}
		if mm := httpMethodURLPattern.FindStringSubmatch(text); mm != nil {
			meta["method"] = strings.ToUpper(mm[1])
			meta["url"] = mm[2]
		}
		sig.Metadata = meta
		return []event.FailureSignal{sig}
	}
	return nil
}

var connectionKeywords = []string{"connection refused", "connection reset", "ECONNREFUSED", "socket closed", "connection aborted"}

func extractConnectionError(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, connectionKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, connectionKeywords...)
	sig := event.NewFailureSignal(event.SignalConnectionError, e.Message, 0.85)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"connection.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var dnsKeywords = []string{"name resolution", "getaddrinfo", "unknown host", "nodename nor servname", "NXDOMAIN"}

func extractDNSError(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, dnsKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, dnsKeywords...)
	sig := event.NewFailureSignal(event.SignalDNSError, e.Message, 0.85)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"dns.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var infraKeywords = []string{"out of memory", "OOM", "disk full", "no space left", "permission denied", "service unavailable"}

func extractInfra(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, infraKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, infraKeywords...)
	sig := event.NewFailureSignal(event.SignalInfra, e.Message, 0.8)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"infra.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var nullPointerKeywords = []string{"NullPointerException", "NullReferenceException", "AttributeError: 'NoneType'", "TypeError: Cannot read propert", "nil pointer dereference"}

func extractNullPointer(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, nullPointerKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, nullPointerKeywords...)
	sig := event.NewFailureSignal(event.SignalNullPointer, e.Message, 0.75)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"nullpointer.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var importKeywords = []string{"ImportError", "ModuleNotFoundError", "ClassNotFoundException", "NoClassDefFoundError", "cannot find module"}

func extractImport(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, importKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, importKeywords...)
	sig := event.NewFailureSignal(event.SignalImport, e.Message, 0.75)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"import.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var syntaxKeywords = []string{"SyntaxError", "IndentationError", "compile error", "cannot find symbol", "unexpected token"}

func extractSyntax(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, syntaxKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, syntaxKeywords...)
	sig := event.NewFailureSignal(event.SignalSyntax, e.Message, 0.8)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"syntax.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

var databaseKeywords = []string{"SQLException", "deadlock", "duplicate key", "constraint violation", "connection pool exhausted", "query timeout"}

func extractDatabase(events []event.ExecutionEvent) []event.FailureSignal {
	e := firstEventMatching(events, databaseKeywords...)
	if e == nil {
		return nil
	}
	kw, _ := containsAny(e.Message+" "+e.Stacktrace, databaseKeywords...)
	sig := event.NewFailureSignal(event.SignalDatabase, e.Message, 0.8)
	sig.Keywords = []string{kw}
	sig.Patterns = []string{"database.keyword"}
	sig.Stacktrace = e.Stacktrace
	return []event.FailureSignal{sig}
}

// PerformanceThresholds configures the duration/resource thresholds
// used by extractPerformance, overridable per test type (spec §4.4).
type PerformanceThresholds struct {
	SlowTestMS    int64
	MemoryLeakMB  int64
	HighCPUPercent float64
}

var defaultPerformanceThresholds = PerformanceThresholds{SlowTestMS: 30_000, MemoryLeakMB: 500, HighCPUPercent: 90}

var durationMSPattern = regexp.MustCompile(`(?i)(?:duration|elapsed|took)[:\s]+(\d+)\s*ms`)
var memoryMBPattern = regexp.MustCompile(`(?i)(?:memory|heap)[:\s]+(\d+)\s*mb`)
var cpuPercentPattern = regexp.MustCompile(`(?i)cpu[:\s]+(\d+(?:\.\d+)?)\s*%`)

func extractPerformance(events []event.ExecutionEvent) []event.FailureSignal {
	return extractPerformanceWithThresholds(events, defaultPerformanceThresholds)
}

func extractPerformanceWithThresholds(events []event.ExecutionEvent, t PerformanceThresholds) []event.FailureSignal {
	var signals []event.FailureSignal
	for i := range events {
		e := &events[i]
		text := e.Message + " " + e.Stacktrace

		if m := durationMSPattern.FindStringSubmatch(text); m != nil {
			if ms, err := strconv.ParseInt(m[1], 10, 64); err == nil && ms > t.SlowTestMS {
				sig := event.NewFailureSignal(event.SignalSlowTest, e.Message, 0.6)
				sig.Patterns = []string{"performance.slow_test"}
				sig.Metadata = map[string]string{"duration_ms": m[1]}
				signals = append(signals, sig)
			}
		}
		if m := memoryMBPattern.FindStringSubmatch(text); m != nil {
			if mb, err := strconv.ParseInt(m[1], 10, 64); err == nil && mb > t.MemoryLeakMB {
				sig := event.NewFailureSignal(event.SignalMemoryLeak, e.Message, 0.6)
				sig.Patterns = []string{"performance.memory_leak"}
				sig.Metadata = map[string]string{"memory_mb": m[1]}
				signals = append(signals, sig)
			}
		}
		if m := cpuPercentPattern.FindStringSubmatch(text); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil && pct > t.HighCPUPercent {
				sig := event.NewFailureSignal(event.SignalHighCPU, e.Message, 0.6)
				sig.Patterns = []string{"performance.high_cpu"}
				sig.Metadata = map[string]string{"cpu_percent": m[1]}
				signals = append(signals, sig)
			}
		}
	}
	return signals
}
