// Package analyzer is the orchestrator (C10, spec §4.11): it runs
// §4.1-4.9 in order for one test, fans that out across a batch with a
// bounded worker pool, and produces the summary and CI-gating
// decision over a completed batch.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"execintel/internal/adapters"
	"execintel/internal/applog"
	"execintel/internal/coderef"
	"execintel/internal/confidence"
	"execintel/internal/correlate"
	"execintel/internal/enrich"
	"execintel/internal/event"
	"execintel/internal/grouping"
	"execintel/internal/logger"
	"execintel/internal/patterns"
	"execintel/internal/rules"
	"execintel/internal/sanitize"
	"execintel/internal/signals"
	"execintel/internal/store"
)

// DefaultTestTimeout is the per-test wall-clock budget (spec §5).
const DefaultTestTimeout = 10 * time.Second

// DefaultWorkerCount bounds AnalyzeBatch's worker pool when the caller
// does not specify one.
const DefaultWorkerCount = 8

// AutomationSource is one raw automation log to parse, identified by
// path for error messages and evidence.
type AutomationSource struct {
	Path      string
	Content   string
	Framework string // "" or "auto" to auto-detect per source
}

// LogSourceCollection is the input contract for one analysis
// invocation (spec §3): at least one automation source is required,
// application sources are optional and purely additive.
type LogSourceCollection struct {
	Automation  []AutomationSource
	Application []applog.Source
}

// Validate enforces the §3 invariant: no automation source is a
// configuration error, not a per-test failure.
func (c LogSourceCollection) Validate() error {
	if len(c.Automation) == 0 {
		return fmt.Errorf("log source collection: at least one automation log source is required")
	}
	return nil
}

// Analyzer wires together the deterministic pipeline components and
// the optional AI enrichment capability.
type Analyzer struct {
	Classifier  *rules.Classifier
	Resolver    *coderef.Resolver
	Patterns    store.Store
	Enricher    enrich.Enricher
	Log         logger.Logger
	Correlation correlate.Window
	Grouping    grouping.Options
	PatternNCap int64

	AIEnabled       bool
	AIMinConfidence float64

	TestTimeout time.Duration
	Workers     int
}

// New builds an Analyzer with spec defaults filled in for any zero fields.
func New(classifier *rules.Classifier, resolver *coderef.Resolver, patternStore store.Store, enricher enrich.Enricher, log logger.Logger) *Analyzer {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if enricher == nil {
		enricher = enrich.NoopEnricher{}
	}
	return &Analyzer{
		Classifier:  classifier,
		Resolver:    resolver,
		Patterns:    patternStore,
		Enricher:    enricher,
		Log:         log,
		Correlation: correlate.DefaultWindow,
		Grouping:    grouping.DefaultOptions,
		PatternNCap: 20,
		TestTimeout: DefaultTestTimeout,
		Workers:     DefaultWorkerCount,
	}
}

// testCase is one test's merged automation event stream plus its framework.
type testCase struct {
	name      string
	framework string
	events    []event.ExecutionEvent
}

// AnalyzeBatch runs per-test analyses over every test found in coll
// independently, using a bounded worker pool (spec §4.11). It fails
// fast on coll's configuration error (no automation source); once
// past validation, a per-test failure is captured as an ERROR-status
// result and never aborts the batch.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, coll LogSourceCollection) ([]event.AnalysisResult, error) {
	if err := coll.Validate(); err != nil {
		return nil, err
	}

	cases := a.collectTestCases(coll.Automation)
	appEvents := a.collectApplicationEvents(coll.Application)
	return a.analyzeTestCases(ctx, cases, appEvents), nil
}

// AnalyzeCollection is AnalyzeBatch followed by correlation grouping
// over the resulting batch (spec §4.10), the shape cmd/execintel needs
// for one report.
func (a *Analyzer) AnalyzeCollection(ctx context.Context, coll LogSourceCollection) ([]event.AnalysisResult, []grouping.Group, error) {
	results, err := a.AnalyzeBatch(ctx, coll)
	if err != nil {
		return nil, nil, err
	}
	groups := grouping.Group(results, a.Grouping)
	return results, groups, nil
}

// AnalyzeRawLog is the single-test entry point (spec §4.11:
// "analyze(raw_log, test_name, framework, app_logs?)"). When testName
// is empty, the first parsed event's test name is used, however many
// tests the log covers.
func (a *Analyzer) AnalyzeRawLog(ctx context.Context, rawLog, testName, framework string, appSources []applog.Source) event.AnalysisResult {
	events, usedFramework := adapters.Parse(rawLog, framework)
	if testName != "" {
		events = filterByTestName(events, testName)
	}
	name := testName
	if name == "" && len(events) > 0 {
		name = events[0].TestName
	}

	tc := testCase{name: name, framework: usedFramework, events: events}
	appEvents := a.collectApplicationEvents(appSources)
	return a.Analyze(ctx, tc, appEvents)
}

func filterByTestName(events []event.ExecutionEvent, testName string) []event.ExecutionEvent {
	var out []event.ExecutionEvent
	for _, e := range events {
		if e.TestName == testName {
			out = append(out, e)
		}
	}
	return out
}

// collectTestCases parses every automation source and groups the
// resulting events by test_name, merging events from multiple sources
// that happen to share a test name in chronological order. A source
// that parses to zero events (empty or unrecognized content) still
// gets its own testCase, keyed by path, so it surfaces as an
// ERROR/UNKNOWN result instead of silently vanishing from the batch
// (spec §8: an unparseable log is a reported failure, not a no-op).
func (a *Analyzer) collectTestCases(sources []AutomationSource) []testCase {
	byTest := make(map[string]*testCase)
	var order []string

	for _, src := range sources {
		events, framework := adapters.Parse(src.Content, src.Framework)
		if len(events) == 0 {
			name := src.Path
			if name == "" {
				name = "unknown"
			}
			if _, ok := byTest[name]; !ok {
				byTest[name] = &testCase{name: name, framework: framework}
				order = append(order, name)
			}
			continue
		}
		for _, e := range events {
			name := e.TestName
			if name == "" {
				name = src.Path
			}
			tc, ok := byTest[name]
			if !ok {
				tc = &testCase{name: name, framework: framework}
				byTest[name] = tc
				order = append(order, name)
			}
			tc.events = append(tc.events, e)
		}
	}

	cases := make([]testCase, 0, len(order))
	for _, name := range order {
		tc := byTest[name]
		sort.SliceStable(tc.events, func(i, j int) bool { return tc.events[i].Timestamp < tc.events[j].Timestamp })
		cases = append(cases, *tc)
	}
	return cases
}

// collectApplicationEvents reads every application source. Per spec
// §4.2, a missing file is an empty result, never an error.
func (a *Analyzer) collectApplicationEvents(sources []applog.Source) []event.ExecutionEvent {
	var all []event.ExecutionEvent
	for _, src := range sources {
		events := applog.ParseFile(src)
		if events == nil {
			a.Log.Warn("analyzer: no application events read from %s", src.Path)
		}
		all = append(all, events...)
	}
	return all
}

// Analyze executes §4.1-4.9 in order for one test. It never returns an
// error: any internal failure is captured as an ERROR-status result
// with an embedded cause (spec §8 invariant 1).
func (a *Analyzer) Analyze(ctx context.Context, tc testCase, appEvents []event.ExecutionEvent) (result event.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			result = event.AnalysisResult{
				TestName:  tc.name,
				Framework: tc.framework,
				Status:    event.StatusError,
				Timestamp: nowOrFirst(tc.events),
				Error:     fmt.Sprintf("analysis panicked: %v", r),
			}
		}
	}()

	status := deriveStatus(tc.events)
	result = event.AnalysisResult{
		TestName:  tc.name,
		Framework: tc.framework,
		Status:    status,
		Events:    tc.events,
		Timestamp: nowOrFirst(tc.events),
	}
	if len(tc.events) == 0 {
		result.Error = "no events parsed from automation source: empty or unrecognized log"
	}

	if status == event.StatusPass || status == event.StatusSkip {
		return result
	}

	sigs := extractSignals(tc.events)
	result.Signals = sigs

	classification := a.Classifier.Evaluate(tc.framework, sigs)
	result.CodeReference = a.resolveCodeRef(sigs)
	classification.CodeReference = result.CodeReference

	failureTime, _ := time.Parse(time.RFC3339Nano, result.Timestamp)
	correlated := false
	if len(appEvents) > 0 && len(tc.events) > 0 {
		corrResult := correlate.Correlate(tc.events[len(tc.events)-1], failureTime, sigs, appEvents, a.Correlation)
		correlated = corrResult.Correlated
	}
	result.HasApplicationLogs = correlated
	classification.HasApplicationLogs = correlated

	historyBoost := a.recordPattern(ctx, sigs)

	aiDelta, aiInsights := a.enrich(ctx, result, classification)

	classification.Confidence = confidence.Calibrate(confidence.Inputs{
		RuleFired:         len(classification.RulesApplied) > 0,
		RuleConfidence:    classification.Confidence,
		SignalConfidences: signalConfidences(sigs),
		HistoryBoost:      historyBoost,
		AppLogBoost:       confidence.AppLogBoostFor(classification.FailureType, correlated),
		AIAdjustment:      aiDelta,
	})
	classification.AIInsights = aiInsights
	classification.Evidence = sanitizeEvidence(classification.Evidence)

	result.FailureClassification = &classification
	return result
}

// resolveCodeRef tries each signal's stacktrace in order until one resolves.
func (a *Analyzer) resolveCodeRef(sigs []event.FailureSignal) *event.CodeReference {
	if a.Resolver == nil {
		return nil
	}
	for _, s := range sigs {
		if s.Stacktrace == "" {
			continue
		}
		if ref := a.Resolver.Resolve(s.Stacktrace); ref != nil {
			return ref
		}
	}
	return nil
}

// recordPattern upserts the pattern tracker and returns its frequency
// boost (spec §4.8/§4.9). Storage failures degrade to zero boost,
// logged at WARN, never surfaced to the caller.
func (a *Analyzer) recordPattern(ctx context.Context, sigs []event.FailureSignal) float64 {
	if a.Patterns == nil || len(sigs) == 0 {
		return 0
	}
	top := sigs[0]
	normalized := patterns.Normalize(top.Message)
	hash := patterns.Hash(top.SignalType, normalized)

	p, err := a.Patterns.RecordSighting(ctx, patterns.Pattern{
		PatternHash:       hash,
		NormalizedMessage: normalized,
		SignalType:        top.SignalType,
		LastSeen:          time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.Log.Warn("analyzer: pattern tracker update failed for %s: %v", hash, err)
		return 0
	}
	return patterns.FrequencyBoost(p.OccurrenceCount, a.PatternNCap)
}

// enrich calls the configured enrichment capability, bounded and
// gated per §4.9/§5. Its delta is always pre-clamped to [-0.1, 0.1]
// and zeroed unless the model's own confidence clears the threshold.
func (a *Analyzer) enrich(ctx context.Context, result event.AnalysisResult, classification event.FailureClassification) (float64, *event.AIInsights) {
	if !a.AIEnabled {
		return 0, nil
	}
	result.FailureClassification = &classification

	insights, err := a.Enricher.Enrich(ctx, result)
	if err != nil || insights == nil {
		return 0, nil
	}

	delta := confidence.AIAdjustmentFor(insights.ConfidenceDelta, insights.ModelConfidence, a.AIMinConfidence, a.AIEnabled)
	return delta, &event.AIInsights{
		Suggestion:      insights.Suggestion,
		ConfidenceDelta: delta,
		ModelConfidence: insights.ModelConfidence,
	}
}

// analyzeTestCases runs Analyze for every test case independently over
// a bounded worker pool. A per-test panic or timeout never aborts the
// batch (spec §4.11, §5).
func (a *Analyzer) analyzeTestCases(ctx context.Context, cases []testCase, appEvents []event.ExecutionEvent) []event.AnalysisResult {
	results := make([]event.AnalysisResult, len(cases))

	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	timeout := a.TestTimeout
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			testCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			done := make(chan event.AnalysisResult, 1)
			go func() {
				done <- a.Analyze(testCtx, tc, appEvents)
			}()

			select {
			case r := <-done:
				results[i] = r
			case <-testCtx.Done():
				results[i] = event.AnalysisResult{
					TestName:  tc.name,
					Framework: tc.framework,
					Status:    event.StatusError,
					Timestamp: nowOrFirst(tc.events),
					Error:     "ANALYSIS_TIMEOUT",
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Summary totals a batch of AnalysisResults for reporting and the CI
// gate (spec §4.11 "summarize").
type Summary struct {
	Total              int
	ByFailureType      map[event.FailureType]int
	ByConfidenceBucket map[event.ConfidenceBucket]int
	TopPatterns        []PatternCount
}

// PatternCount is one entry in Summarize's top-K patterns list.
type PatternCount struct {
	PatternHash string
	Count       int
}

// Summarize returns totals by failure_type, a confidence histogram,
// and the top-K patterns by affected-test count. Order-independent in
// results (spec §4.11, §8 invariant 10).
func Summarize(results []event.AnalysisResult, topK int) Summary {
	s := Summary{
		Total:              len(results),
		ByFailureType:      map[event.FailureType]int{},
		ByConfidenceBucket: map[event.ConfidenceBucket]int{},
	}

	counts := map[string]int{}
	for _, r := range results {
		if r.FailureClassification == nil {
			continue
		}
		fc := r.FailureClassification
		s.ByFailureType[fc.FailureType]++
		s.ByConfidenceBucket[event.Bucket(fc.Confidence)]++

		if len(fc.Signals) > 0 {
			hash := patterns.Hash(fc.Signals[0].SignalType, patterns.Normalize(fc.Signals[0].Message))
			counts[hash]++
		}
	}

	for hash, n := range counts {
		s.TopPatterns = append(s.TopPatterns, PatternCount{PatternHash: hash, Count: n})
	}
	sort.Slice(s.TopPatterns, func(i, j int) bool {
		if s.TopPatterns[i].Count != s.TopPatterns[j].Count {
			return s.TopPatterns[i].Count > s.TopPatterns[j].Count
		}
		return s.TopPatterns[i].PatternHash < s.TopPatterns[j].PatternHash
	})
	if topK > 0 && len(s.TopPatterns) > topK {
		s.TopPatterns = s.TopPatterns[:topK]
	}

	return s
}

// DefaultFailOn is the default CI-gating failure-type set (spec §4.11).
func DefaultFailOn() map[event.FailureType]bool {
	return map[event.FailureType]bool{event.ProductDefect: true}
}

// ShouldFailCI reports whether results contain any failure of a type
// in failOn. Order-independent (spec §8 invariant 10).
func ShouldFailCI(results []event.AnalysisResult, failOn map[event.FailureType]bool) bool {
	if failOn == nil {
		failOn = DefaultFailOn()
	}
	for _, r := range results {
		if r.FailureClassification == nil {
			continue
		}
		if failOn[r.FailureClassification.FailureType] {
			return true
		}
	}
	return false
}

func extractSignals(events []event.ExecutionEvent) []event.FailureSignal {
	return signals.Extract(events)
}

func signalConfidences(sigs []event.FailureSignal) []float64 {
	out := make([]float64, len(sigs))
	for i, s := range sigs {
		out[i] = s.Confidence
	}
	return out
}

func sanitizeEvidence(evidence []string) []string {
	out := make([]string, len(evidence))
	for i, e := range evidence {
		out[i] = sanitize.Clean(e)
	}
	return out
}

// deriveStatus infers PASS/FAIL/ERROR/SKIP from one test's merged
// event stream. Adapters don't carry a structured status field
// (spec §4.1's events are log records, not verdicts); a fatal-level
// event always means the tooling itself broke (ERROR), any other
// error/exception-bearing event means the test failed (FAIL), a
// lone "skip" mention with no failure evidence means SKIP, and
// otherwise the test passed. An empty event stream means the source
// was empty or unparseable, never a silent PASS, so it is also ERROR.
func deriveStatus(events []event.ExecutionEvent) event.Status {
	if len(events) == 0 {
		return event.StatusError
	}

	sawError := false
	sawSkip := false
	for _, e := range events {
		switch e.Level {
		case event.LevelFatal:
			return event.StatusError
		case event.LevelError:
			sawError = true
		}
		if strings.Contains(strings.ToLower(e.Message), "skip") {
			sawSkip = true
		}
	}
	if sawError {
		return event.StatusFail
	}
	if sawSkip {
		return event.StatusSkip
	}
	return event.StatusPass
}

func nowOrFirst(events []event.ExecutionEvent) string {
	if len(events) > 0 {
		return events[len(events)-1].Timestamp
	}
	return time.Now().UTC().Format(time.RFC3339)
}
