// Package sanitize cleans raw log text before it reaches evidence
// strings or code snippets in the output document: stripping ANSI
// escape codes and CI-specific markers so the §6 JSON contract never
// carries terminal control sequences.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// ansiPattern matches SGR escape sequences: \x1b[...m
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// ciTimestampMarker matches Buildkite-style inline timestamp markers: \x1b_bk;t=...\x07
	ciTimestampMarker = regexp.MustCompile(`\x1b_bk;t=[0-9]+\x07`)
)

// StripANSI removes ANSI escape codes and CI timestamp markers.
func StripANSI(s string) string {
	s = ciTimestampMarker.ReplaceAllString(s, "")
	s = ansiPattern.ReplaceAllString(s, "")
	return s
}

// Clean strips ANSI/CI markers, normalizes line endings to "\n", and
// trims surrounding whitespace. Used on evidence strings and code
// snippets before they are attached to an AnalysisResult.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
