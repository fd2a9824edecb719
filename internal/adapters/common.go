package adapters

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"execintel/internal/event"
)

var isoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)

// extractTimestamp returns the first ISO-8601 timestamp in line, or
// ok=false if none is present (the caller should synthesize a
// monotonic offset from run start, per spec §4.1).
func extractTimestamp(line string) (string, bool) {
	ts := isoTimestampPattern.FindString(line)
	return ts, ts != ""
}

// syntheticTimestamp returns a monotonic offset timestamp for line
// index i relative to a run start, used when no timestamp can be
// parsed from the raw line.
func syntheticTimestamp(runStart time.Time, i int) string {
	return runStart.Add(time.Duration(i) * time.Millisecond).UTC().Format(time.RFC3339Nano)
}

var levelAliases = map[string]event.LogLevel{
	"TRACE":    event.LevelDebug,
	"DEBUG":    event.LevelDebug,
	"INFO":     event.LevelInfo,
	"NOTICE":   event.LevelInfo,
	"WARN":     event.LevelWarn,
	"WARNING":  event.LevelWarn,
	"ERROR":    event.LevelError,
	"ERR":      event.LevelError,
	"SEVERE":   event.LevelError,
	"FAIL":     event.LevelError,
	"FAILED":   event.LevelError,
	"FATAL":    event.LevelFatal,
	"CRITICAL": event.LevelFatal,
	"PANIC":    event.LevelFatal,
}

// mapLevel maps a framework-specific level token onto the canonical
// level set, defaulting to INFO.
func mapLevel(token string) event.LogLevel {
	if lvl, ok := levelAliases[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return lvl
	}
	return event.LevelInfo
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|NOTICE|WARN(?:ING)?|ERROR|ERR|SEVERE|FATAL|CRITICAL|PANIC)\b`)

// detectLevel scans a line for the first recognizable level token.
func detectLevel(line string) event.LogLevel {
	tok := levelTokenPattern.FindString(line)
	if tok == "" {
		return event.LevelInfo
	}
	return mapLevel(tok)
}

// exceptionTypePattern matches "SomeException: message" / "some.Error: message" style headers.
var exceptionTypePattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_.]*(?:Error|Exception|Failure))\b`)

func extractExceptionType(text string) string {
	return exceptionTypePattern.FindString(text)
}

// collectStacktrace takes the non-blank line at i, then the indented/"at "/
// "File "-prefixed continuation lines after it that make up a multi-line
// stack trace, returning the joined trace and the index of the first line
// not consumed.
func collectStacktrace(lines []string, i int) (string, int) {
	var trace []string
	j := i
	for j < len(lines) {
		l := lines[j]
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			break
		}
		isContinuation := strings.HasPrefix(l, "  ") || strings.HasPrefix(l, "\t") ||
			strings.HasPrefix(trimmed, "at ") || strings.HasPrefix(trimmed, "File \"") ||
			strings.HasPrefix(trimmed, "Caused by") || strings.HasPrefix(trimmed, "...")
		if j != i && !isContinuation {
			break
		}
		trace = append(trace, l)
		j++
	}
	return strings.Join(trace, "\n"), j
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
