package rules

import (
	"os"
	"path/filepath"
	"testing"

	"execintel/internal/event"
)

const (
	genericEqualPriorityYAML = `
rules:
  - id: generic.timeout
    failure_type: ENVIRONMENT_ISSUE
    confidence: 0.7
    priority: 50
    description: generic timeout rule
    match_any: ["timeout"]
`
	overrideEqualPriorityYAML = `
rules:
  - id: override.timeout
    failure_type: PRODUCT_DEFECT
    confidence: 0.7
    priority: 50
    description: override timeout rule
    match_any: ["timeout"]
`
)

// TestLoadDir_OverrideWinsTieOverGeneric locks in spec.md:134's
// override > framework-specific > generic precedence for a real
// equal-priority tie assembled the way LoadDir merges files, not just
// NewRulePack's in-memory ordering.
func TestLoadDir_OverrideWinsTieOverGeneric(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "generic.yaml"), []byte(genericEqualPriorityYAML), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	overridesDir := filepath.Join(dir, "overrides")
	if err := os.Mkdir(overridesDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(filepath.Join(overridesDir, "team.yaml"), []byte(overrideEqualPriorityYAML), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pack, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	c := NewClassifier(pack)
	sigs := []event.FailureSignal{event.NewFailureSignal(event.SignalTimeout, "timeout", 0.8)}

	result := c.Evaluate("", sigs)
	if result.RulesApplied[0] != "override.timeout" {
		t.Fatalf("expected override rule to win the equal-priority tie, got %v (%s)", result.RulesApplied, result.FailureType)
	}
	if result.FailureType != event.ProductDefect {
		t.Errorf("expected PRODUCT_DEFECT from the override rule, got %s", result.FailureType)
	}
}

// TestLoadDir_FrameworkWinsTieOverGeneric covers the middle rung of the
// same precedence order: a per-framework file beats generic.yaml.
func TestLoadDir_FrameworkWinsTieOverGeneric(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "generic.yaml"), []byte(genericEqualPriorityYAML), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	frameworkYAML := `
rules:
  - id: pytest.timeout
    failure_type: AUTOMATION_DEFECT
    confidence: 0.7
    priority: 50
    description: pytest-specific timeout rule
    match_any: ["timeout"]
`
	if err := os.WriteFile(filepath.Join(dir, "pytest.yaml"), []byte(frameworkYAML), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	pack, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	c := NewClassifier(pack)
	sigs := []event.FailureSignal{event.NewFailureSignal(event.SignalTimeout, "timeout", 0.8)}

	result := c.Evaluate("", sigs)
	if result.RulesApplied[0] != "pytest.timeout" {
		t.Fatalf("expected framework-specific rule to win the equal-priority tie over generic, got %v", result.RulesApplied)
	}
}
