// Package applog parses service (application) logs into the same
// ExecutionEvent shape the automation adapters produce, tagged
// APPLICATION instead of AUTOMATION (spec §4.2). A missing file is an
// empty result, never an error: the application-log path is purely
// additive to the analysis.
package applog

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"
	"time"

	"execintel/internal/event"
)

// Source describes one application log to parse.
type Source struct {
	Path        string
	ServiceName string
	Format      string // "log4j", "slf4j", "dotnet", "python", "json", "generic", or "" to auto-detect
}

var (
	log4jLine   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}[.,]\d+)\s+(\w+)\s+(?:\[[^\]]*\]\s+)?(\S+)\s*-\s*(.*)$`)
	dotnetLine  = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}[.,]\d+)\]\s*\[(\w+)\]\s*(.*)$`)
	pythonLine  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}[,.]\d+)\s*-\s*(\S+)\s*-\s*(\w+)\s*-\s*(.*)$`)
	jsonOpen    = regexp.MustCompile(`^\s*\{`)
	httpStatus  = regexp.MustCompile(`\b([1-5]\d{2})\b`)
)

// ParseFile loads and parses one application log source. Missing or
// unreadable files return an empty, error-free result per the
// "application logs are purely additive" policy.
func ParseFile(src Source) []event.ExecutionEvent {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil
	}
	return Parse(string(data), src)
}

// Parse parses raw application log content according to src.Format,
// auto-detecting the format when unset.
func Parse(raw string, src Source) []event.ExecutionEvent {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	format := src.Format
	if format == "" {
		format = detectFormat(raw)
	}

	lines := strings.Split(raw, "\n")
	var events []event.ExecutionEvent
	runStart := time.Unix(0, 0).UTC()

	switch format {
	case "json":
		events = parseJSONLines(lines, src)
	case "log4j", "slf4j":
		events = parseLog4j(lines, src)
	case "dotnet":
		events = parseDotnet(lines, src)
	case "python":
		events = parsePython(lines, src)
	default:
		events = parseGeneric(lines, src, runStart)
	}
	return events
}

func detectFormat(raw string) string {
	sample := raw
	if idx := strings.IndexByte(raw, '\n'); idx > 0 {
		sample = raw[:idx]
	}
	switch {
	case jsonOpen.MatchString(sample):
		return "json"
	case dotnetLine.MatchString(sample):
		return "dotnet"
	case pythonLine.MatchString(sample):
		return "python"
	case log4jLine.MatchString(sample):
		return "log4j"
	default:
		return "generic"
	}
}

func parseLog4j(lines []string, src Source) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	for _, line := range lines {
		m := log4jLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		events = append(events, event.ExecutionEvent{
			Timestamp:     normalizeTimestamp(m[1]),
			Level:         mapAppLevel(m[2]),
			Source:        src.ServiceName,
			Message:       strings.TrimSpace(m[4]),
			LogSourceType: event.SourceApplication,
			ServiceName:   src.ServiceName,
			ExceptionType: extractExceptionTypeFromMessage(m[4]),
		})
	}
	return events
}

func parseDotnet(lines []string, src Source) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	for _, line := range lines {
		m := dotnetLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		events = append(events, event.ExecutionEvent{
			Timestamp:     normalizeTimestamp(m[1]),
			Level:         mapAppLevel(m[2]),
			Source:        src.ServiceName,
			Message:       strings.TrimSpace(m[3]),
			LogSourceType: event.SourceApplication,
			ServiceName:   src.ServiceName,
			ExceptionType: extractExceptionTypeFromMessage(m[3]),
		})
	}
	return events
}

func parsePython(lines []string, src Source) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	for _, line := range lines {
		m := pythonLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		events = append(events, event.ExecutionEvent{
			Timestamp:     normalizeTimestamp(m[1]),
			Level:         mapAppLevel(m[3]),
			Source:        m[2],
			Message:       strings.TrimSpace(m[4]),
			LogSourceType: event.SourceApplication,
			ServiceName:   src.ServiceName,
			ExceptionType: extractExceptionTypeFromMessage(m[4]),
		})
	}
	return events
}

type appJSONLine struct {
	Timestamp string `json:"timestamp"`
	Time      string `json:"time"`
	Ts        string `json:"@timestamp"`
	Level     string `json:"level"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Msg       string `json:"msg"`
	Logger    string `json:"logger"`
	Exception string `json:"exception"`
}

func parseJSONLines(lines []string, src Source) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var j appJSONLine
		if err := json.Unmarshal([]byte(trimmed), &j); err != nil {
			continue
		}
		ts := firstNonEmpty(j.Timestamp, j.Time, j.Ts)
		level := firstNonEmpty(j.Level, j.Severity)
		msg := firstNonEmpty(j.Message, j.Msg)
		events = append(events, event.ExecutionEvent{
			Timestamp:     normalizeTimestamp(ts),
			Level:         mapAppLevel(level),
			Source:        firstNonEmpty(j.Logger, src.ServiceName),
			Message:       msg,
			LogSourceType: event.SourceApplication,
			ServiceName:   src.ServiceName,
			ExceptionType: firstNonEmpty(j.Exception, extractExceptionTypeFromMessage(msg)),
		})
	}
	return events
}

func parseGeneric(lines []string, src Source, runStart time.Time) []event.ExecutionEvent {
	var events []event.ExecutionEvent
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		ts := runStart.Add(time.Duration(i) * time.Millisecond).UTC().Format(time.RFC3339Nano)
		events = append(events, event.ExecutionEvent{
			Timestamp:     ts,
			Level:         genericLevel(trimmed),
			Source:        src.ServiceName,
			Message:       trimmed,
			LogSourceType: event.SourceApplication,
			ServiceName:   src.ServiceName,
			ExceptionType: extractExceptionTypeFromMessage(trimmed),
		})
	}
	return events
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeTimestamp(raw string) string {
	raw = strings.ReplaceAll(raw, ",", ".")
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02 15:04:05.000", "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339Nano)
		}
	}
	return raw
}

var appLevelAliases = map[string]event.LogLevel{
	"TRACE": event.LevelDebug, "DEBUG": event.LevelDebug,
	"INFO": event.LevelInfo, "NOTICE": event.LevelInfo,
	"WARN": event.LevelWarn, "WARNING": event.LevelWarn,
	"ERROR": event.LevelError, "SEVERE": event.LevelError,
	"FATAL": event.LevelFatal, "CRITICAL": event.LevelFatal, "PANIC": event.LevelFatal,
}

func mapAppLevel(raw string) event.LogLevel {
	if lvl, ok := appLevelAliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return lvl
	}
	return event.LevelInfo
}

func genericLevel(line string) event.LogLevel {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "FATAL") || strings.Contains(upper, "CRITICAL"):
		return event.LevelFatal
	case strings.Contains(upper, "ERROR") || strings.Contains(upper, "SEVERE"):
		return event.LevelError
	case strings.Contains(upper, "WARN"):
		return event.LevelWarn
	case strings.Contains(upper, "DEBUG") || strings.Contains(upper, "TRACE"):
		return event.LevelDebug
	default:
		return event.LevelInfo
	}
}

var exceptionPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_.]*(?:Error|Exception|Failure))\b`)

func extractExceptionTypeFromMessage(msg string) string {
	return exceptionPattern.FindString(msg)
}

// ExtractHTTPStatus returns the first HTTP-status-shaped token found
// in msg, or "" if none is present. Used by the correlator (§4.7) to
// match an automation HTTP_ERROR signal's status code against
// application events.
func ExtractHTTPStatus(msg string) string {
	return httpStatus.FindString(msg)
}
