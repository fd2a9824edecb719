// Package logger provides the leveled logging interface used throughout
// the engine. Kept deliberately small, in the teacher's style: a plain
// interface plus a couple of fmt-based implementations, no structured
// logging framework.
package logger

import (
	"fmt"
	"os"
	"strings"
)

// Logger is the logging interface consumed by every component.
// Different implementations suit different contexts (CLI, batch
// worker, silent/testing).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// With returns a Logger that prefixes every message with the given
	// key/value context, e.g. With("test_name", tn).Warn("parse error").
	With(kv ...string) Logger
}

// ConsoleLogger writes human-readable logs to stdout/stderr.
type ConsoleLogger struct {
	prefix string
}

// NewConsoleLogger creates a ConsoleLogger.
func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{}
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	fmt.Printf("[DEBUG]%s "+msg+"\n", append([]interface{}{c.prefix}, args...)...)
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Printf("[INFO]%s "+msg+"\n", append([]interface{}{c.prefix}, args...)...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[WARN]%s "+msg+"\n", append([]interface{}{c.prefix}, args...)...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR]%s "+msg+"\n", append([]interface{}{c.prefix}, args...)...)
}

func (c *ConsoleLogger) With(kv ...string) Logger {
	return &ConsoleLogger{prefix: c.prefix + formatKV(kv)}
}

// SilentLogger discards all log messages. Used when a foreground UI
// or a test owns the output stream.
type SilentLogger struct{}

// NewSilentLogger creates a SilentLogger.
func NewSilentLogger() *SilentLogger { return &SilentLogger{} }

func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) With(kv ...string) Logger              { return s }

func formatKV(kv []string) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %s=%s", kv[i], kv[i+1])
	}
	return b.String()
}
