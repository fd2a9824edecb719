package analyzer

import (
	"context"
	"testing"
	"time"

	"execintel/internal/enrich"
	"execintel/internal/event"
	"execintel/internal/rules"
	"execintel/internal/store"
)

func testClassifier(t *testing.T) *rules.Classifier {
	t.Helper()
	pack, err := rules.NewRulePack([]rules.Rule{
		{
			ID:          "test.locator-failure",
			FailureType: event.AutomationDefect,
			Confidence:  0.75,
			Priority:    60,
			Description: "a missing locator is a test-automation defect",
			MatchAny:    []string{"locator"},
		},
		{
			ID:          "test.connection-refused",
			FailureType: event.EnvironmentIssue,
			Confidence:  0.8,
			Priority:    70,
			Description: "connection refused points to an unreachable dependency",
			MatchAny:    []string{"connection_error"},
		},
		{
			ID:          "test.http-500",
			FailureType: event.ProductDefect,
			Confidence:  0.85,
			Priority:    80,
			Description: "a 5xx confirmed by an assertion is a product defect",
			RequiresAll: []string{"http_error", "assertion"},
		},
	})
	if err != nil {
		t.Fatalf("NewRulePack failed: %v", err)
	}
	return rules.NewClassifier(pack)
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(testClassifier(t), nil, store.NewInMemoryStore(), nil, nil)
}

func TestAnalyze_LocatorFailureClassifiesAsAutomationDefect(t *testing.T) {
	a := newTestAnalyzer(t)
	tc := testCase{
		name:      "test_checkout_button",
		framework: "selenium",
		events: []event.ExecutionEvent{
			{
				Timestamp: "2026-01-01T00:00:00Z",
				Level:     event.LevelError,
				Message:   "NoSuchElementException: unable to locate element",
				Stacktrace: "selenium.common.exceptions.NoSuchElementException\n  at test_checkout.py:42",
			},
		},
	}

	result := a.Analyze(context.Background(), tc, nil)

	if result.Status != event.StatusFail {
		t.Fatalf("expected StatusFail, got %v", result.Status)
	}
	if result.FailureClassification == nil {
		t.Fatal("expected a non-nil classification")
	}
	if result.FailureClassification.FailureType != event.AutomationDefect {
		t.Errorf("expected AutomationDefect, got %v", result.FailureClassification.FailureType)
	}
	if len(result.FailureClassification.RulesApplied) != 1 || result.FailureClassification.RulesApplied[0] != "test.locator-failure" {
		t.Errorf("expected test.locator-failure to fire, got %v", result.FailureClassification.RulesApplied)
	}
}

func TestAnalyze_PassingTestSkipsClassification(t *testing.T) {
	a := newTestAnalyzer(t)
	tc := testCase{
		name:      "test_ok",
		framework: "junit",
		events: []event.ExecutionEvent{
			{Timestamp: "2026-01-01T00:00:00Z", Level: event.LevelInfo, Message: "test ok.test_ok passed"},
		},
	}

	result := a.Analyze(context.Background(), tc, nil)

	if result.Status != event.StatusPass {
		t.Fatalf("expected StatusPass, got %v", result.Status)
	}
	if result.FailureClassification != nil {
		t.Error("passing test should not be classified")
	}
}

func TestAnalyze_ConnectionRefusedConfirmedByAppLogs(t *testing.T) {
	a := newTestAnalyzer(t)
	failureTime := "2026-01-01T00:00:05Z"
	tc := testCase{
		name:      "test_fetch_profile",
		framework: "pytest",
		events: []event.ExecutionEvent{
			{Timestamp: failureTime, Level: event.LevelError, Message: "ConnectionRefusedError: connection refused to upstream-api"},
		},
	}
	appEvents := []event.ExecutionEvent{
		{Timestamp: "2026-01-01T00:00:03Z", Level: event.LevelError, Message: "upstream-api connection refused on port 8443", LogSourceType: event.SourceApplication, ServiceName: "upstream-api"},
	}

	result := a.Analyze(context.Background(), tc, appEvents)

	if result.FailureClassification == nil {
		t.Fatal("expected a classification")
	}
	if result.FailureClassification.FailureType != event.EnvironmentIssue {
		t.Errorf("expected EnvironmentIssue, got %v", result.FailureClassification.FailureType)
	}
}

func TestAnalyze_RecoversFromPanic(t *testing.T) {
	a := newTestAnalyzer(t)
	a.Classifier = nil // forces a nil-pointer panic inside Evaluate

	tc := testCase{
		name:      "test_will_panic",
		framework: "junit",
		events: []event.ExecutionEvent{
			{Timestamp: "2026-01-01T00:00:00Z", Level: event.LevelError, Message: "AssertionError: expected 1, got 2"},
		},
	}

	result := a.Analyze(context.Background(), tc, nil)

	if result.Status != event.StatusError {
		t.Fatalf("expected StatusError after recovered panic, got %v", result.Status)
	}
	if result.Error == "" {
		t.Error("expected a non-empty Error message describing the panic")
	}
}

func TestAnalyzeBatch_EmptyAutomationSourcesFails(t *testing.T) {
	a := newTestAnalyzer(t)
	_, err := a.AnalyzeBatch(context.Background(), LogSourceCollection{})
	if err == nil {
		t.Fatal("expected an error for an empty automation source collection")
	}
}

func TestAnalyzeBatch_EmptyContentSourceReportsErrorInsteadOfVanishing(t *testing.T) {
	a := newTestAnalyzer(t)
	results, err := a.AnalyzeBatch(context.Background(), LogSourceCollection{
		Automation: []AutomationSource{{Path: "empty.log", Content: "", Framework: "auto"}},
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch() unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result for the empty-content source, got %d", len(results))
	}
	r := results[0]
	if r.Status != event.StatusError {
		t.Errorf("expected StatusError for an empty automation source, got %v", r.Status)
	}
	if r.FailureClassification == nil || r.FailureClassification.FailureType != event.Unknown {
		t.Fatalf("expected an UNKNOWN classification, got %+v", r.FailureClassification)
	}
	if r.FailureClassification.Confidence != 0 {
		t.Errorf("expected confidence 0 for an empty source, got %v", r.FailureClassification.Confidence)
	}
}

func TestAnalyzeBatch_TimeoutProducesAnalysisTimeoutResult(t *testing.T) {
	a := newTestAnalyzer(t)
	a.TestTimeout = 10 * time.Millisecond
	a.Workers = 1
	a.Enricher = slowEnricher{delay: 200 * time.Millisecond}
	a.AIEnabled = true

	results := a.analyzeTestCases(context.Background(), []testCase{
		{
			name:      "test_hangs",
			framework: "junit",
			events: []event.ExecutionEvent{
				{Timestamp: "2026-01-01T00:00:00Z", Level: event.LevelError, Message: "blocked on a slow enricher"},
			},
		},
	}, nil)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Status != event.StatusError || results[0].Error != "ANALYSIS_TIMEOUT" {
		t.Errorf("expected an ANALYSIS_TIMEOUT result, got status=%v error=%q", results[0].Status, results[0].Error)
	}
}

type slowEnricher struct{ delay time.Duration }

func (s slowEnricher) Enrich(ctx context.Context, result event.AnalysisResult) (*enrich.Insights, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSummarize_AggregatesByTypeAndBucketOrderIndependently(t *testing.T) {
	results := []event.AnalysisResult{
		{FailureClassification: &event.FailureClassification{FailureType: event.ProductDefect, Confidence: 0.95}},
		{FailureClassification: &event.FailureClassification{FailureType: event.AutomationDefect, Confidence: 0.6}},
		{FailureClassification: &event.FailureClassification{FailureType: event.ProductDefect, Confidence: 0.92}},
		{Status: event.StatusPass},
	}

	s1 := Summarize(results, 5)

	reversed := make([]event.AnalysisResult, len(results))
	for i, r := range results {
		reversed[len(results)-1-i] = r
	}
	s2 := Summarize(reversed, 5)

	if s1.Total != 4 || s2.Total != 4 {
		t.Fatalf("expected Total=4, got %d and %d", s1.Total, s2.Total)
	}
	if s1.ByFailureType[event.ProductDefect] != 2 || s2.ByFailureType[event.ProductDefect] != 2 {
		t.Errorf("expected 2 ProductDefect results regardless of order, got %d and %d", s1.ByFailureType[event.ProductDefect], s2.ByFailureType[event.ProductDefect])
	}
	if s1.ByConfidenceBucket[event.BucketHigh] != 2 {
		t.Errorf("expected 2 High-bucket results, got %d", s1.ByConfidenceBucket[event.BucketHigh])
	}
}

func TestShouldFailCI_DefaultFailsOnlyOnProductDefect(t *testing.T) {
	productDefect := []event.AnalysisResult{
		{FailureClassification: &event.FailureClassification{FailureType: event.ProductDefect, Confidence: 0.9}},
	}
	if !ShouldFailCI(productDefect, nil) {
		t.Error("expected ShouldFailCI to be true for a PRODUCT_DEFECT result under the default gate")
	}

	automationOnly := []event.AnalysisResult{
		{FailureClassification: &event.FailureClassification{FailureType: event.AutomationDefect, Confidence: 0.9}},
	}
	if ShouldFailCI(automationOnly, nil) {
		t.Error("expected ShouldFailCI to be false when only AUTOMATION_DEFECT results are present")
	}
}

func TestShouldFailCI_OrderIndependent(t *testing.T) {
	results := []event.AnalysisResult{
		{FailureClassification: &event.FailureClassification{FailureType: event.AutomationDefect, Confidence: 0.9}},
		{FailureClassification: &event.FailureClassification{FailureType: event.EnvironmentIssue, Confidence: 0.9}},
		{FailureClassification: &event.FailureClassification{FailureType: event.ProductDefect, Confidence: 0.9}},
	}
	reversed := []event.AnalysisResult{results[2], results[1], results[0]}

	if !ShouldFailCI(results, nil) || !ShouldFailCI(reversed, nil) {
		t.Error("expected ShouldFailCI to agree regardless of result order")
	}
}

func TestDeriveStatus_FatalOverridesErrorAndSkip(t *testing.T) {
	events := []event.ExecutionEvent{
		{Level: event.LevelError, Message: "assertion failed"},
		{Level: event.LevelFatal, Message: "worker crashed"},
	}
	if got := deriveStatus(events); got != event.StatusError {
		t.Errorf("expected StatusError on a fatal event, got %v", got)
	}
}

func TestDeriveStatus_SkipOnlyWhenNoFailureSeen(t *testing.T) {
	events := []event.ExecutionEvent{
		{Level: event.LevelInfo, Message: "test skipped: requires docker"},
	}
	if got := deriveStatus(events); got != event.StatusSkip {
		t.Errorf("expected StatusSkip, got %v", got)
	}
}

func TestDeriveStatus_PassWhenNoErrorOrSkipSeen(t *testing.T) {
	events := []event.ExecutionEvent{
		{Level: event.LevelInfo, Message: "test ok.test_ok passed"},
	}
	if got := deriveStatus(events); got != event.StatusPass {
		t.Errorf("expected StatusPass, got %v", got)
	}
}

func TestDeriveStatus_EmptyEventsIsErrorNotPass(t *testing.T) {
	if got := deriveStatus(nil); got != event.StatusError {
		t.Errorf("expected StatusError for an empty event stream, got %v", got)
	}
}

func TestAnalyzeRawLog_EmptyInputReportsErrorNotPass(t *testing.T) {
	a := newTestAnalyzer(t)
	result := a.AnalyzeRawLog(context.Background(), "", "", "auto", nil)

	if result.Status != event.StatusError {
		t.Errorf("expected StatusError for an empty raw log, got %v", result.Status)
	}
	if result.Error == "" {
		t.Error("expected a non-empty Error message explaining the empty/unparseable log")
	}
}

func TestAnalyzeRawLog_UsesFirstEventTestNameWhenUnspecified(t *testing.T) {
	a := newTestAnalyzer(t)
	raw := `<testsuite><testcase name="test_login" classname="LoginSuite"><failure message="AssertionError: expected true, got false"/></testcase></testsuite>`

	result := a.AnalyzeRawLog(context.Background(), raw, "", "junit", nil)

	if result.TestName == "" {
		t.Error("expected AnalyzeRawLog to infer a test name from the parsed events")
	}
}
