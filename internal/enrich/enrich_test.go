package enrich

import (
	"context"
	"testing"

	"execintel/internal/event"
)

func TestNoopEnricher_AlwaysReturnsNil(t *testing.T) {
	var e NoopEnricher
	insights, err := e.Enrich(context.Background(), event.AnalysisResult{
		TestName: "test_a",
		FailureClassification: &event.FailureClassification{
			FailureType: event.ProductDefect,
			Confidence:  0.8,
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if insights != nil {
		t.Errorf("expected nil insights from NoopEnricher, got %+v", insights)
	}
}

func TestClampDelta_BoundsToPointOne(t *testing.T) {
	if d := clampDelta(0.5); d != 0.1 {
		t.Errorf("expected clamp to 0.1, got %v", d)
	}
	if d := clampDelta(-0.5); d != -0.1 {
		t.Errorf("expected clamp to -0.1, got %v", d)
	}
	if d := clampDelta(0.05); d != 0.05 {
		t.Errorf("expected 0.05 unchanged, got %v", d)
	}
}

func TestBuildPrompt_IncludesTestNameAndFailureType(t *testing.T) {
	result := event.AnalysisResult{
		TestName: "test_checkout_flow",
		FailureClassification: &event.FailureClassification{
			FailureType: event.ProductDefect,
			Confidence:  0.92,
			Reason:      "HTTP 500 with assertion failure",
		},
	}
	prompt := buildPrompt(result)
	if !containsAll(prompt, "test_checkout_flow", "PRODUCT_DEFECT", "0.92") {
		t.Errorf("expected prompt to reference test name, failure type and confidence, got %q", prompt)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
