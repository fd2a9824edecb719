// Package coderef resolves the user-code site most likely responsible
// for a failure by walking a stack trace top-down, skipping known
// framework frames, and reading a bounded source snippet around the
// first remaining frame (spec §4.6).
package coderef

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"execintel/internal/event"
)

// defaultFramePrefixes are skipped when walking a stack trace for the
// first "user" frame. Configurable via Resolver.FramePrefixes.
var defaultFramePrefixes = []string{
	"site-packages/pytest", "site-packages/_pytest", "site-packages/unittest",
	"/unittest/", "site-packages/selenium", "site-packages/robot",
	"node_modules/", "/usr/lib/python", "/usr/local/lib/python",
	"org.junit.", "org.testng.", "sun.reflect.", "java.lang.reflect.",
	"jdk.internal.reflect.",
}

// Resolver resolves CodeReferences against a workspace root.
type Resolver struct {
	WorkspaceRoot string
	ContextLines  int // ±N lines around the resolved line, default 5
	FramePrefixes []string
}

// NewResolver builds a Resolver with spec-default settings.
func NewResolver(workspaceRoot string) *Resolver {
	return &Resolver{
		WorkspaceRoot: workspaceRoot,
		ContextLines:  5,
		FramePrefixes: defaultFramePrefixes,
	}
}

// frame is one parsed stack-trace line.
type frame struct {
	File     string
	Line     int
	Function string
}

var (
	pythonFrame = regexp.MustCompile(`File "([^"]+)", line (\d+), in (\S+)`)
	javaFrame   = regexp.MustCompile(`at\s+([\w.$]+)\.(\w+)\(([\w.]+):(\d+)\)`)
	jsFrame     = regexp.MustCompile(`at\s+(?:(\S+)\s+)?\(?([^():\s]+):(\d+):(\d+)\)?`)
)

// Resolve walks stacktrace top-down and returns the first "user" code
// site, or nil if no frame can be resolved or the format is
// unrecognized — an unresolved CodeReference is never an error.
func (r *Resolver) Resolve(stacktrace string) *event.CodeReference {
	if strings.TrimSpace(stacktrace) == "" {
		return nil
	}

	frames, lang := parseFrames(stacktrace)
	for _, f := range frames {
		if r.isFrameworkFrame(f.File) {
			continue
		}
		return r.buildReference(f, lang)
	}
	return nil
}

func parseFrames(stacktrace string) ([]frame, string) {
	if m := pythonFrame.FindAllStringSubmatch(stacktrace, -1); len(m) > 0 {
		var frames []frame
		for _, g := range m {
			line, _ := strconv.Atoi(g[2])
			frames = append(frames, frame{File: g[1], Line: line, Function: g[3]})
		}
		return frames, "python"
	}
	if m := javaFrame.FindAllStringSubmatch(stacktrace, -1); len(m) > 0 {
		var frames []frame
		for _, g := range m {
			line, _ := strconv.Atoi(g[4])
			frames = append(frames, frame{File: g[1] + "." + g[2], Line: line, Function: g[2]})
		}
		return frames, "java"
	}
	if m := jsFrame.FindAllStringSubmatch(stacktrace, -1); len(m) > 0 {
		var frames []frame
		for _, g := range m {
			line, _ := strconv.Atoi(g[3])
			frames = append(frames, frame{File: g[2], Line: line, Function: g[1]})
		}
		return frames, "javascript"
	}
	return nil, ""
}

func (r *Resolver) isFrameworkFrame(file string) bool {
	for _, prefix := range r.FramePrefixes {
		if strings.Contains(file, prefix) {
			return true
		}
	}
	return false
}

func (r *Resolver) buildReference(f frame, lang string) *event.CodeReference {
	ref := &event.CodeReference{
		File:         f.File,
		Line:         f.Line,
		Function:     f.Function,
		LanguageHint: lang,
	}

	path := f.File
	if r.WorkspaceRoot != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.WorkspaceRoot, path)
	}
	if lang == "java" {
		// java frames encode Class.method as the function; the file is
		// not directly resolvable from the class name alone.
		ref.ClassName = strings.TrimSuffix(f.File, "."+f.Function)
	}

	snippet, className := readSnippet(path, f.Line, r.contextLines())
	ref.Snippet = snippet
	if className != "" {
		ref.ClassName = className
	}
	return ref
}

func (r *Resolver) contextLines() int {
	if r.ContextLines <= 0 {
		return 5
	}
	return r.ContextLines
}

var classDeclPattern = regexp.MustCompile(`^\s*(?:public\s+|private\s+)?(?:class|def|function)\s+(\w+)`)

// readSnippet reads ±n lines around line from path, returning the
// snippet and the nearest enclosing class/def found by back-scanning.
// Returns ("", "") if the file cannot be read — unresolved source
// never fails the caller.
func readSnippet(path string, line, n int) (string, string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if line <= 0 || line > len(lines) {
		return "", ""
	}

	start := line - n - 1
	if start < 0 {
		start = 0
	}
	end := line + n
	if end > len(lines) {
		end = len(lines)
	}
	snippet := strings.Join(lines[start:end], "\n")

	className := ""
	for i := line - 1; i >= 0; i-- {
		if m := classDeclPattern.FindStringSubmatch(lines[i]); m != nil && strings.Contains(lines[i], "class") {
			className = m[1]
			break
		}
	}
	return snippet, className
}
