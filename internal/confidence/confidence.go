// Package confidence implements the final [0,1] confidence
// calibration formula (spec §4.9), combining the rule's base
// confidence, the strongest contributing signal, pattern-frequency
// history, application-log correlation, and a bounded, optional AI
// adjustment.
package confidence

import "execintel/internal/event"

// Inputs bundles the calibrator's inputs for one test's classification.
type Inputs struct {
	// RuleFired is true when a classification rule actually matched;
	// when false, c_base is derived purely from signal confidence
	// (spec §4.5 rule 6 / §4.9).
	RuleFired bool
	// RuleConfidence is the matched rule's base confidence (c_rule).
	RuleConfidence float64
	// SignalConfidences are the contributing signals' confidences.
	SignalConfidences []float64
	// HistoryBoost is the pattern tracker's frequency boost (b_hist), [0, 0.15].
	HistoryBoost float64
	// AppLogBoost is 0.15 when application logs corroborate a
	// PRODUCT_DEFECT classification, else 0 (b_app).
	AppLogBoost float64
	// AIAdjustment is the enrichment layer's bounded delta (a_ai), [-0.1, 0.1],
	// already zeroed by the caller when enrichment is disabled or
	// below its confidence threshold.
	AIAdjustment float64
}

// Calibrate computes c_total per spec §4.9:
//
//	c_signal = max of contributing signal confidences, or 0 if none
//	c_base   = max(c_rule, c_signal) when a rule fired; else min(c_signal, 0.5)
//	c_total  = clamp(c_base + b_hist + b_app + a_ai, 0, 1)
//
// The AI term is never allowed to push c_total across a confidence
// bucket boundary: if adding it would cross into a different bucket
// than c_base+b_hist+b_app alone occupies, it is truncated to the
// boundary.
func Calibrate(in Inputs) float64 {
	cSignal := maxOf(in.SignalConfidences)

	var cBase float64
	if in.RuleFired {
		cBase = max2(in.RuleConfidence, cSignal)
	} else {
		cBase = min2(cSignal, 0.5)
	}

	withoutAI := clamp01(cBase + in.HistoryBoost + in.AppLogBoost)
	withAI := clamp01(withoutAI + in.AIAdjustment)

	if event.Bucket(withAI) != event.Bucket(withoutAI) {
		return boundaryTowards(withoutAI, in.AIAdjustment)
	}
	return withAI
}

// boundaryTowards returns the confidence value at the edge of
// withoutAI's bucket in the direction delta pushes, so the AI
// adjustment never silently reclassifies the bucket (spec §4.9).
func boundaryTowards(withoutAI, delta float64) float64 {
	const epsilon = 1e-9
	if delta >= 0 {
		switch event.Bucket(withoutAI) {
		case event.BucketVeryLow:
			return 0.5 - epsilon
		case event.BucketLow:
			return 0.7 - epsilon
		case event.BucketMedium:
			return 0.9 - epsilon
		default:
			return 1.0
		}
	}
	switch event.Bucket(withoutAI) {
	case event.BucketHigh:
		return 0.9
	case event.BucketMedium:
		return 0.7
	case event.BucketLow:
		return 0.5
	default:
		return 0.0
	}
}

func maxOf(vals []float64) float64 {
	var m float64
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AppLogBoostFor returns the application-log correlation boost for a
// classification: +0.15 only when correlated and the failure type is
// PRODUCT_DEFECT (spec §4.7 rule 4-5).
func AppLogBoostFor(failureType event.FailureType, correlated bool) float64 {
	if correlated && failureType == event.ProductDefect {
		return 0.15
	}
	return 0
}

// AIAdjustmentFor gates the enrichment delta by the configured model-
// confidence threshold (spec §4.9: "permitted only when ... its own
// confidence >= a configured threshold").
func AIAdjustmentFor(delta, modelConfidence, threshold float64, enabled bool) float64 {
	if !enabled || modelConfidence < threshold {
		return 0
	}
	if delta > 0.1 {
		delta = 0.1
	}
	if delta < -0.1 {
		delta = -0.1
	}
	return delta
}
