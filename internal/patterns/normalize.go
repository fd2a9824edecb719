// Package patterns normalizes failure messages into a stable form for
// deduplication (§4.8) and hashes the result into a pattern_hash used
// as the Pattern Tracker's dedup key.
package patterns

import (
	"regexp"
	"strings"
)

var (
	// timestampPattern matches ISO8601 and common log timestamps. It is
	// case-insensitive because Normalize lowercases before masking.
	timestampPattern = regexp.MustCompile(`(?i)\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}([.,]\d+)?(Z|[+-]\d{2}:?\d{2})?`)

	// uuidPattern matches standard UUIDs.
	uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

	// hexAddressPattern matches 0x-prefixed hex addresses / memory pointers.
	hexAddressPattern = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`)

	// numberPattern matches standalone numbers.
	numberPattern = regexp.MustCompile(`\b\d+\b`)

	// pathPattern matches absolute paths with 2+ directories (unix or windows style).
	pathPattern = regexp.MustCompile(`(?:/[^/\s:]+){2,}(?::\d+)?|[A-Za-z]:\\(?:[^\\\s]+\\)+[^\\\s]+`)

	// urlPattern matches http(s) URLs.
	urlPattern = regexp.MustCompile(`https?://[^\s"']+`)

	// quotedStringPattern matches single- or double-quoted string literals.
	quotedStringPattern = regexp.MustCompile(`"[^"]*"|'[^']*'`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize applies the §4.8 normalization pipeline to a single
// message: lowercase, replace numeric/hex/UUID/path/timestamp/
// address/URL/quoted-string literals with canonical placeholders,
// then collapse whitespace.
func Normalize(message string) string {
	m := strings.ToLower(message)
	m = timestampPattern.ReplaceAllString(m, "<TS>")
	m = uuidPattern.ReplaceAllString(m, "<UUID>")
	m = urlPattern.ReplaceAllString(m, "<URL>")
	m = pathPattern.ReplaceAllString(m, "<PATH>")
	m = hexAddressPattern.ReplaceAllString(m, "<ADDR>")
	m = quotedStringPattern.ReplaceAllString(m, "<STR>")
	m = numberPattern.ReplaceAllString(m, "<NUM>")
	m = stripNoisePrefixes(m)
	m = whitespacePattern.ReplaceAllString(m, " ")
	return strings.TrimSpace(m)
}

// noisePrefixes are framework-specific boilerplate prefixes stripped
// before deduplication so the same underlying failure from different
// adapters normalizes to the same string.
var noisePrefixes = []string{
	"e   ",
	"failure\n",
	"error\n",
}

func stripNoisePrefixes(m string) string {
	for _, p := range noisePrefixes {
		if strings.HasPrefix(m, p) {
			m = strings.TrimPrefix(m, p)
		}
	}
	return m
}
