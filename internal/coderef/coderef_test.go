package coderef

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_SkipsFrameworkFramesPython(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "test_checkout.py")
	src := "def test_checkout():\n    result = checkout()\n    assert result.status == 200\n"
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		t.Fatalf("write test file: %v", err)
	}

	trace := `Traceback (most recent call last):
  File "/usr/local/lib/python3.11/site-packages/_pytest/runner.py", line 90, in pytest_runtest_call
    item.runtest()
  File "` + srcPath + `", line 3, in test_checkout
    assert result.status == 200
AssertionError`

	r := NewResolver(dir)
	ref := r.Resolve(trace)
	if ref == nil {
		t.Fatalf("expected a resolved code reference")
	}
	if ref.Line != 3 {
		t.Errorf("expected line 3, got %d", ref.Line)
	}
	if ref.Snippet == "" {
		t.Errorf("expected a non-empty snippet")
	}
}

func TestResolve_UnresolvableFormatReturnsNil(t *testing.T) {
	r := NewResolver("")
	if ref := r.Resolve("some completely unstructured text with no frames"); ref != nil {
		t.Errorf("expected nil CodeReference for unrecognized format, got %+v", ref)
	}
}

func TestResolve_EmptyStacktraceReturnsNil(t *testing.T) {
	r := NewResolver("")
	if ref := r.Resolve(""); ref != nil {
		t.Errorf("expected nil CodeReference for empty stacktrace")
	}
}

func TestResolve_MissingSourceFileStillReturnsFrameInfo(t *testing.T) {
	r := NewResolver("/nonexistent")
	trace := `File "/nonexistent/missing.py", line 10, in test_x`
	ref := r.Resolve(trace)
	if ref == nil {
		t.Fatalf("expected frame metadata even when source file is unreadable")
	}
	if ref.Snippet != "" {
		t.Errorf("expected empty snippet when source file cannot be read")
	}
}
