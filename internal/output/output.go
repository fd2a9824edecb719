// Package output builds the engine's bit-stable JSON report (spec
// §6): a fixed-shape document with a run summary, one entry per test,
// and the correlation groups found across the batch.
package output

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"execintel/internal/event"
	"execintel/internal/grouping"
)

// Version is the output document's schema version.
const Version = "1"

// Document is the top-level JSON report.
type Document struct {
	Version string           `json:"version"`
	Summary Summary          `json:"summary"`
	Results []Result         `json:"results"`
	Groups  []grouping.Group `json:"groups"`
}

// Summary aggregates one batch's results for the CI gate and for
// humans scanning the report.
type Summary struct {
	Total             int            `json:"total"`
	ByType            map[string]int `json:"by_type"`
	ByConfidenceBucket map[string]int `json:"by_confidence_bucket"`
}

// Result is one test's reported outcome.
type Result struct {
	TestName       string          `json:"test_name"`
	Framework      string          `json:"framework"`
	Status         event.Status    `json:"status"`
	Classification *Classification `json:"classification,omitempty"`
}

// Classification is the reported verdict for one failed test.
type Classification struct {
	FailureType        event.FailureType     `json:"failure_type"`
	Confidence         confidence            `json:"confidence"`
	Reason             string                `json:"reason"`
	Evidence           []string              `json:"evidence"`
	RulesApplied       []string              `json:"rules_applied"`
	CodeReference      *event.CodeReference  `json:"code_reference,omitempty"`
	HasApplicationLogs bool                  `json:"has_application_logs"`
}

// Build assembles the report document from one batch's AnalysisResults
// and the CorrelationGroups computed over them.
func Build(results []event.AnalysisResult, groups []grouping.Group) Document {
	doc := Document{
		Version: Version,
		Results: make([]Result, 0, len(results)),
		Groups:  groups,
	}
	if doc.Groups == nil {
		doc.Groups = []grouping.Group{}
	}

	byType := map[string]int{}
	byBucket := map[string]int{}

	for _, r := range results {
		out := Result{
			TestName:  r.TestName,
			Framework: r.Framework,
			Status:    r.Status,
		}
		if r.FailureClassification != nil {
			fc := r.FailureClassification
			out.Classification = &Classification{
				FailureType:        fc.FailureType,
				Confidence:         confidence(round4(fc.Confidence)),
				Reason:             fc.Reason,
				Evidence:           nonNilStrings(fc.Evidence),
				RulesApplied:       nonNilStrings(fc.RulesApplied),
				CodeReference:      fc.CodeReference,
				HasApplicationLogs: fc.HasApplicationLogs,
			}
			byType[string(fc.FailureType)]++
			byBucket[string(event.Bucket(fc.Confidence))]++
		}
		doc.Results = append(doc.Results, out)
	}

	doc.Summary = Summary{
		Total:              len(results),
		ByType:             byType,
		ByConfidenceBucket: byBucket,
	}
	return doc
}

// Marshal renders doc as indented, bit-stable JSON: Go's encoding/json
// already emits struct fields in declaration order and map keys
// sorted lexically, which is all "bit-stable" requires here.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// confidence renders as a literal fixed-4-decimal JSON number (e.g.
// "0.8000", never "0.8"), so the report's bytes are stable regardless
// of how Go's shortest-round-trip float formatter would otherwise
// render the same value (spec §6's bit-stable-output contract).
type confidence float64

func (c confidence) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(c), 'f', 4, 64)), nil
}

func (c *confidence) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	*c = confidence(f)
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
