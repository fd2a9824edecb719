// Package grouping implements the Correlation Grouper (C9, spec
// §4.10): clusters AnalysisResults from one batch by message
// similarity, category, temporal proximity, and stack-trace shape,
// then merges overlapping memberships so each test joins exactly its
// highest-confidence qualifying group.
package grouping

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"execintel/internal/event"
	"execintel/internal/patterns"
)

// Options configures the grouper's thresholds, all spec-defaulted.
type Options struct {
	MessageSimilarityThreshold float64       // default 0.8
	MinGroupSize               int           // default 2
	TemporalWindow             time.Duration // default 5 minutes
	StackShapeTopK             int           // default 3
}

// DefaultOptions matches spec §4.10's defaults.
var DefaultOptions = Options{
	MessageSimilarityThreshold: 0.8,
	MinGroupSize:               2,
	TemporalWindow:             5 * time.Minute,
	StackShapeTopK:             3,
}

// Group is one CorrelationGroup, the grouper's output unit.
type Group struct {
	GroupID        string   `json:"group_id"`
	Pattern        string   `json:"pattern"`
	AffectedTests  int      `json:"affected_tests"`
	FailureType    event.FailureType `json:"failure_type"`
	SignalType     event.SignalType  `json:"signal_type"`
	Confidence     float64  `json:"confidence"`
	RootCause      string   `json:"root_cause"`
	Recommendation string   `json:"recommendation"`
	Members        []Member `json:"members"`
}

// Member is one test's participation in a Group.
type Member struct {
	TestName   string  `json:"test_name"`
	Similarity float64 `json:"similarity"`
}

// candidate is an internal scored grouping, one per strategy match,
// before the "join highest-confidence group" merge.
type candidate struct {
	key         string
	failureType event.FailureType
	signalType  event.SignalType
	members     []scoredMember
	confidence  float64
}

type scoredMember struct {
	index      int
	similarity float64
}

// Group clusters results into CorrelationGroups, applying the four
// strategies from spec §4.10 and merging so each test joins the
// highest-confidence group it qualifies for. Residual singletons are
// not emitted.
func Group(results []event.AnalysisResult, opts Options) []Group {
	if opts.MessageSimilarityThreshold <= 0 {
		opts = DefaultOptions
	}

	candidates := []candidate{}
	candidates = append(candidates, messageSimilarityCandidates(results, opts)...)
	candidates = append(candidates, categoryCandidates(results, opts)...)
	candidates = append(candidates, temporalCandidates(results, opts)...)
	candidates = append(candidates, stackShapeCandidates(results, opts)...)

	assigned := make(map[int]*candidate)
	for i := range candidates {
		c := &candidates[i]
		if len(c.members) < opts.MinGroupSize {
			continue
		}
		for _, m := range c.members {
			if existing, ok := assigned[m.index]; !ok || c.confidence > existing.confidence {
				assigned[m.index] = c
			}
		}
	}

	byGroup := make(map[*candidate][]scoredMember)
	for idx, c := range assigned {
		var sim float64
		for _, m := range c.members {
			if m.index == idx {
				sim = m.similarity
				break
			}
		}
		byGroup[c] = append(byGroup[c], scoredMember{index: idx, similarity: sim})
	}

	var groups []Group
	groupNum := 0
	for c, members := range byGroup {
		if len(members) < opts.MinGroupSize {
			continue
		}
		groupNum++
		groups = append(groups, buildGroup(groupNum, *c, members, results))
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].GroupID < groups[j].GroupID })
	return groups
}

func buildGroup(num int, c candidate, members []scoredMember, results []event.AnalysisResult) Group {
	sort.Slice(members, func(i, j int) bool { return results[members[i].index].TestName < results[members[j].index].TestName })

	var groupMembers []Member
	var maxConf float64
	for _, m := range members {
		r := results[m.index]
		groupMembers = append(groupMembers, Member{TestName: r.TestName, Similarity: round4(m.similarity)})
		if r.FailureClassification != nil && r.FailureClassification.Confidence > maxConf {
			maxConf = r.FailureClassification.Confidence
		}
	}

	rootCause, recommendation := templateFor(c.failureType, c.signalType, len(groupMembers))

	return Group{
		GroupID:        fmt.Sprintf("group-%03d", num),
		Pattern:        c.key,
		AffectedTests:  len(groupMembers),
		FailureType:    c.failureType,
		SignalType:     c.signalType,
		Confidence:     round4(maxConf),
		RootCause:      rootCause,
		Recommendation: recommendation,
		Members:        groupMembers,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// messageSimilarityCandidates clusters by TF-cosine similarity over
// normalized-message token vectors, stop-words removed.
func messageSimilarityCandidates(results []event.AnalysisResult, opts Options) []candidate {
	vectors := make([]map[string]float64, len(results))
	for i, r := range results {
		vectors[i] = tfVector(primaryMessage(r))
	}

	used := make([]bool, len(results))
	var out []candidate
	for i := range results {
		if used[i] || len(vectors[i]) == 0 {
			continue
		}
		var members []scoredMember
		members = append(members, scoredMember{index: i, similarity: 1.0})
		for j := i + 1; j < len(results); j++ {
			if used[j] || len(vectors[j]) == 0 {
				continue
			}
			sim := cosineSimilarity(vectors[i], vectors[j])
			if sim >= opts.MessageSimilarityThreshold {
				members = append(members, scoredMember{index: j, similarity: sim})
				used[j] = true
			}
		}
		if len(members) >= opts.MinGroupSize {
			used[i] = true
			out = append(out, candidate{
				key:         "message-similarity:" + primaryMessage(results[i]),
				failureType: failureTypeOf(results[i]),
				signalType:  signalTypeOf(results[i]),
				members:     members,
				confidence:  0.9,
			})
		}
	}
	return out
}

func categoryCandidates(results []event.AnalysisResult, opts Options) []candidate {
	groupsBy := make(map[string][]scoredMember)
	for i, r := range results {
		key := string(failureTypeOf(r)) + "|" + string(signalTypeOf(r))
		groupsBy[key] = append(groupsBy[key], scoredMember{index: i, similarity: 1.0})
	}
	var out []candidate
	for key, members := range groupsBy {
		if len(members) < opts.MinGroupSize {
			continue
		}
		parts := strings.SplitN(key, "|", 2)
		out = append(out, candidate{
			key:         "category:" + key,
			failureType: event.FailureType(parts[0]),
			signalType:  event.SignalType(parts[1]),
			members:     members,
			confidence:  0.6,
		})
	}
	return out
}

func temporalCandidates(results []event.AnalysisResult, opts Options) []candidate {
	type withTime struct {
		index int
		ts    time.Time
	}
	byCategory := make(map[string][]withTime)
	for i, r := range results {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			continue
		}
		key := string(failureTypeOf(r)) + "|" + string(signalTypeOf(r))
		byCategory[key] = append(byCategory[key], withTime{index: i, ts: ts})
	}

	var out []candidate
	for key, items := range byCategory {
		sort.Slice(items, func(i, j int) bool { return items[i].ts.Before(items[j].ts) })
		used := make([]bool, len(items))
		for i := range items {
			if used[i] {
				continue
			}
			var members []scoredMember
			members = append(members, scoredMember{index: items[i].index, similarity: 1.0})
			for j := i + 1; j < len(items); j++ {
				if used[j] {
					continue
				}
				if items[j].ts.Sub(items[i].ts) <= opts.TemporalWindow {
					members = append(members, scoredMember{index: items[j].index, similarity: 0.7})
					used[j] = true
				}
			}
			if len(members) >= opts.MinGroupSize {
				used[i] = true
				parts := strings.SplitN(key, "|", 2)
				out = append(out, candidate{
					key:         "temporal:" + key,
					failureType: event.FailureType(parts[0]),
					signalType:  event.SignalType(parts[1]),
					members:     members,
					confidence:  0.7,
				})
			}
		}
	}
	return out
}

func stackShapeCandidates(results []event.AnalysisResult, opts Options) []candidate {
	shapes := make(map[string][]scoredMember)
	for i, r := range results {
		shape := stackShape(r, opts.StackShapeTopK)
		if shape == "" {
			continue
		}
		shapes[shape] = append(shapes[shape], scoredMember{index: i, similarity: 1.0})
	}
	var out []candidate
	for shape, members := range shapes {
		if len(members) < opts.MinGroupSize {
			continue
		}
		idx := members[0].index
		out = append(out, candidate{
			key:         "stack-shape:" + shape,
			failureType: failureTypeOf(results[idx]),
			signalType:  signalTypeOf(results[idx]),
			members:     members,
			confidence:  0.65,
		})
	}
	return out
}

func stackShape(r event.AnalysisResult, topK int) string {
	if r.CodeReference == nil {
		return ""
	}
	frames := []string{r.CodeReference.File, r.CodeReference.Function}
	if len(frames) > topK {
		frames = frames[:topK]
	}
	return strings.Join(frames, ">")
}

func primaryMessage(r event.AnalysisResult) string {
	if r.FailureClassification != nil && len(r.FailureClassification.Signals) > 0 {
		return r.FailureClassification.Signals[0].Message
	}
	if r.Error != "" {
		return r.Error
	}
	return ""
}

func failureTypeOf(r event.AnalysisResult) event.FailureType {
	if r.FailureClassification == nil {
		return event.Unknown
	}
	return r.FailureClassification.FailureType
}

func signalTypeOf(r event.AnalysisResult) event.SignalType {
	if r.FailureClassification == nil || len(r.FailureClassification.Signals) == 0 {
		return event.SignalOther
	}
	return r.FailureClassification.Signals[0].SignalType
}

func tfVector(msg string) map[string]float64 {
	normalized := patterns.Normalize(msg)
	fields := strings.Fields(normalized)
	vec := make(map[string]float64)
	for _, f := range fields {
		if stopWord(f) {
			continue
		}
		vec[f]++
	}
	return vec
}

var stopWordSet = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "was": true, "to": true,
	"of": true, "in": true, "on": true, "at": true, "for": true, "and": true,
}

func stopWord(tok string) bool { return stopWordSet[tok] }

func cosineSimilarity(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for k, v := range a {
		dot += v * b[k]
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var templates = map[event.SignalType][2]string{
	event.SignalDatabase:        {"DB connection pool saturation", "Scale pool / add retries"},
	event.SignalConnectionError: {"Downstream service connectivity failure", "Check network policy and service health"},
	event.SignalDNSError:        {"DNS resolution instability", "Verify DNS configuration and upstream resolver health"},
	event.SignalTimeout:         {"Systemic latency or resource contention", "Profile the slow path and raise timeouts only after root-causing"},
	event.SignalLocator:         {"Brittle UI locators across the suite", "Introduce stable test IDs and a shared page-object layer"},
	event.SignalHTTPError:       {"Backend endpoint returning errors under load", "Investigate the failing endpoint and recent deploys"},
}

func templateFor(ft event.FailureType, st event.SignalType, affected int) (rootCause, recommendation string) {
	if t, ok := templates[st]; ok {
		return fmt.Sprintf("%s (%d tests affected)", t[0], affected), t[1]
	}
	return fmt.Sprintf("Recurring %s failures across %d tests", strings.ToLower(string(ft)), affected),
		"Review the shared evidence across affected tests for a common cause"
}
