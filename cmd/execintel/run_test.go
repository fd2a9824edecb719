package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"execintel/internal/apperr"
	"execintel/internal/event"
	"execintel/internal/ingest"
)

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[event.FailureType]bool
	}{
		{
			name: "empty string falls back to default gate",
			raw:  "",
			want: map[event.FailureType]bool{event.ProductDefect: true},
		},
		{
			name: "single failure type",
			raw:  "PRODUCT_DEFECT",
			want: map[event.FailureType]bool{event.ProductDefect: true},
		},
		{
			name: "multiple comma-separated failure types",
			raw:  "PRODUCT_DEFECT,ENVIRONMENT_ISSUE",
			want: map[event.FailureType]bool{event.ProductDefect: true, event.EnvironmentIssue: true},
		},
		{
			name: "tolerates surrounding whitespace",
			raw:  " PRODUCT_DEFECT , ENVIRONMENT_ISSUE ",
			want: map[event.FailureType]bool{event.ProductDefect: true, event.EnvironmentIssue: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFailOn(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFailOn(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for ft := range tt.want {
				if !got[ft] {
					t.Errorf("parseFailOn(%q) missing %s", tt.raw, ft)
				}
			}
		})
	}
}

func TestReadAutomationSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	if err := os.WriteFile(path, []byte("FAIL test_login\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sources, err := readAutomationSource(path, "pytest")
	if err != nil {
		t.Fatalf("readAutomationSource() unexpected error: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("readAutomationSource() returned %d sources, want 1 (content is under the chunk threshold)", len(sources))
	}
	src := sources[0]
	if src.Path != path {
		t.Errorf("readAutomationSource() Path = %s, want %s", src.Path, path)
	}
	if src.Content != "FAIL test_login\n" {
		t.Errorf("readAutomationSource() Content = %q", src.Content)
	}
	if src.Framework != "pytest" {
		t.Errorf("readAutomationSource() Framework = %s, want pytest", src.Framework)
	}
}

func TestReadAutomationSource_ChunksOversizedPlainTextLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.log")

	line := "FAIL test_case_example: AssertionError: expected 1 to equal 2\n"
	var b strings.Builder
	for b.Len() <= 2*ingest.TargetChunkSize {
		b.WriteString(line)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sources, err := readAutomationSource(path, "pytest")
	if err != nil {
		t.Fatalf("readAutomationSource() unexpected error: %v", err)
	}
	if len(sources) < 2 {
		t.Fatalf("readAutomationSource() returned %d sources for an oversized log, want > 1", len(sources))
	}
	for _, s := range sources {
		if len(s.Content) > ingest.TargetChunkSize+len(line) {
			t.Errorf("chunk content length %d exceeds target chunk size", len(s.Content))
		}
		if s.Framework != "pytest" {
			t.Errorf("chunk Framework = %s, want pytest", s.Framework)
		}
	}
}

func TestReadAutomationSource_NeverChunksStructuredLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "huge.xml")

	var b strings.Builder
	b.WriteString("<testsuite>\n")
	for b.Len() <= 2*ingest.TargetChunkSize {
		b.WriteString("  <testcase name=\"test_case_example\"><failure>assert 1 == 2</failure></testcase>\n")
	}
	b.WriteString("</testsuite>\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sources, err := readAutomationSource(path, "junit")
	if err != nil {
		t.Fatalf("readAutomationSource() unexpected error: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("readAutomationSource() chunked a structured (XML) log into %d sources, want 1", len(sources))
	}
}

func TestReadAutomationSource_MissingFileReturnsConfigError(t *testing.T) {
	_, err := readAutomationSource(filepath.Join(t.TempDir(), "missing.log"), "pytest")
	if err == nil {
		t.Fatal("readAutomationSource() expected error for missing file, got nil")
	}
	if code := apperr.ExitCode(err); code != 2 {
		t.Errorf("readAutomationSource() error exit code = %d, want 2 (config error)", code)
	}
}

func TestReadAutomationDir_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.log"), []byte("a"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.log"), []byte("b"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	sources, err := readAutomationDir(dir, "auto")
	if err != nil {
		t.Fatalf("readAutomationDir() unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("readAutomationDir() returned %d sources, want 2", len(sources))
	}
}

func TestExpandAutomationPath_FileVsDirectory(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "single.log")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	fileSources, err := expandAutomationPath(filePath, "auto")
	if err != nil {
		t.Fatalf("expandAutomationPath(file) unexpected error: %v", err)
	}
	if len(fileSources) != 1 {
		t.Errorf("expandAutomationPath(file) returned %d sources, want 1", len(fileSources))
	}

	dirSources, err := expandAutomationPath(dir, "auto")
	if err != nil {
		t.Fatalf("expandAutomationPath(dir) unexpected error: %v", err)
	}
	if len(dirSources) != 1 {
		t.Errorf("expandAutomationPath(dir) returned %d sources, want 1", len(dirSources))
	}
}
