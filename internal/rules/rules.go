// Package rules implements the declarative classification rule engine
// (spec §4.5): YAML rule packs scoped by framework, loaded in
// override > framework-specific > generic precedence, evaluated in
// descending priority order with ties broken toward the later-loaded
// (more specific) rule.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"execintel/internal/event"
	"execintel/internal/signals"
)

// Rule is one declarative classification rule.
type Rule struct {
	ID          string             `yaml:"id"`
	Framework   string             `yaml:"framework,omitempty"`
	FailureType event.FailureType  `yaml:"failure_type"`
	Confidence  float64            `yaml:"confidence"`
	Priority    int                `yaml:"priority"`
	Description string             `yaml:"description"`
	MatchAny    []string           `yaml:"match_any,omitempty"`
	RequiresAll []string           `yaml:"requires_all,omitempty"`
	Excludes    []string           `yaml:"excludes,omitempty"`

	declarationOrder int
	compiledAny      []*regexp.Regexp
	compiledAll      []*regexp.Regexp
	compiledExcludes []*regexp.Regexp
}

// compile precompiles this rule's patterns for repeated evaluation.
func (r *Rule) compile() error {
	var err error
	if r.compiledAny, err = compileAll(r.MatchAny); err != nil {
		return fmt.Errorf("rule %s: match_any: %w", r.ID, err)
	}
	if r.compiledAll, err = compileAll(r.RequiresAll); err != nil {
		return fmt.Errorf("rule %s: requires_all: %w", r.ID, err)
	}
	if r.compiledExcludes, err = compileAll(r.Excludes); err != nil {
		return fmt.Errorf("rule %s: excludes: %w", r.ID, err)
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// matches evaluates the rule's match_any/requires_all/excludes clauses
// against corpus, returning the matched pattern strings on success.
func (r *Rule) matches(corpus string) (matched []string, ok bool) {
	if len(r.compiledAny) > 0 {
		found := false
		for i, re := range r.compiledAny {
			if re.MatchString(corpus) {
				matched = append(matched, r.MatchAny[i])
				found = true
			}
		}
		if !found {
			return nil, false
		}
	}

	for i, re := range r.compiledAll {
		if !re.MatchString(corpus) {
			return nil, false
		}
		matched = append(matched, r.RequiresAll[i])
	}

	for _, re := range r.compiledExcludes {
		if re.MatchString(corpus) {
			return nil, false
		}
	}

	return matched, true
}

// RulePack is a loaded, compiled, framework-scoped collection of rules.
type RulePack struct {
	rules []*Rule
}

// NewRulePack compiles rules (already merged in override > framework >
// generic precedence) into priority-then-declaration-order.
func NewRulePack(loaded []Rule) (*RulePack, error) {
	pack := &RulePack{}
	for i := range loaded {
		r := loaded[i]
		r.declarationOrder = i
		if err := r.compile(); err != nil {
			return nil, err
		}
		pack.rules = append(pack.rules, &r)
	}
	sort.SliceStable(pack.rules, func(i, j int) bool {
		if pack.rules[i].Priority != pack.rules[j].Priority {
			return pack.rules[i].Priority > pack.rules[j].Priority
		}
		// loaded is generic -> framework -> overrides (LoadDir), so the
		// later-loaded (more specific) rule must win an equal-priority
		// tie: spec.md:134's override > framework-specific > generic.
		return pack.rules[i].declarationOrder > pack.rules[j].declarationOrder
	})
	return pack, nil
}

// Classifier evaluates a compiled RulePack against signal evidence for
// one test.
type Classifier struct {
	pack *RulePack
}

// NewClassifier builds a Classifier from a compiled RulePack.
func NewClassifier(pack *RulePack) *Classifier {
	return &Classifier{pack: pack}
}

// Evaluate runs the rule engine over sigs per spec §4.5: build the
// normalized corpus, try rules in descending priority/declaration
// order, first full match wins; otherwise emit UNKNOWN bounded by the
// strongest contributing signal's confidence, clamped to <= 0.5.
func (c *Classifier) Evaluate(framework string, sigs []event.FailureSignal) event.FailureClassification {
	corpus := buildCorpus(sigs)

	for _, r := range c.pack.rules {
		if r.Framework != "" && !strings.EqualFold(r.Framework, framework) {
			continue
		}
		matched, ok := r.matches(corpus)
		if !ok {
			continue
		}
		evidence := append([]string{}, matched...)
		for _, s := range sigs {
			evidence = append(evidence, string(s.SignalType))
		}
		return event.FailureClassification{
			FailureType:  r.FailureType,
			Confidence:   clamp01(r.Confidence),
			Reason:       r.Description,
			Evidence:     evidence,
			Signals:      sigs,
			RulesApplied: []string{r.ID},
		}
	}

	return unknownClassification(sigs)
}

func unknownClassification(sigs []event.FailureSignal) event.FailureClassification {
	var strongest float64
	var evidence []string
	for _, s := range sigs {
		if s.Confidence > strongest {
			strongest = s.Confidence
		}
		evidence = append(evidence, string(s.SignalType)+": "+s.Message)
	}
	if strongest > 0.5 {
		strongest = 0.5
	}
	return event.FailureClassification{
		FailureType:  event.Unknown,
		Confidence:   strongest,
		Reason:       "no classification rule matched the observed signals",
		Evidence:     evidence,
		Signals:      sigs,
		RulesApplied: nil,
	}
}

func buildCorpus(sigs []event.FailureSignal) string {
	var b strings.Builder
	for _, s := range sigs {
		b.WriteString(string(s.SignalType))
		b.WriteString(" ")
		b.WriteString(s.Message)
		b.WriteString(" ")
		for _, k := range s.Keywords {
			b.WriteString(k)
			b.WriteString(" ")
		}
	}
	return b.String()
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

// ExtractAndClassify is a convenience wrapper composing signals.Extract
// with Classifier.Evaluate for one test's events.
func ExtractAndClassify(c *Classifier, framework string, events []event.ExecutionEvent) event.FailureClassification {
	sigs := signals.Extract(events)
	return c.Evaluate(framework, sigs)
}
