// Package adapters parses raw test-framework output into a
// chronological sequence of ExecutionEvents tagged AUTOMATION (spec
// §4.1). Each adapter is a cheap signature check plus a best-effort
// parser; adapters never panic and never abort on a single malformed
// fragment.
package adapters

import "execintel/internal/event"

// Adapter transforms one framework's raw log/report text into events.
type Adapter interface {
	// Name is the framework name used as ExecutionEvent.Source and in
	// FailureClassification/rule framework scoping.
	Name() string

	// CanHandle is a cheap signature check (distinctive keywords, XML
	// root element, line format). Must not panic.
	CanHandle(raw string) bool

	// Parse extracts events from raw. Invalid fragments are skipped;
	// zero events is a valid outcome.
	Parse(raw string) []event.ExecutionEvent
}

// orderedAdapters is the fixed, deterministic auto-detection order:
// most specific signature first, Generic last. This ordering is part
// of the contract — identical inputs always produce identical events
// (spec §4.1 "Auto-detection").
func orderedAdapters() []Adapter {
	return []Adapter{
		&JUnitAdapter{},
		&TestNGAdapter{},
		&NUnitAdapter{},
		&RobotAdapter{},
		&CucumberAdapter{},
		&SpecFlowAdapter{},
		&PlaywrightAdapter{},
		&CypressAdapter{},
		&RestAssuredAdapter{},
		&SeleniumAdapter{},
		&BehaveAdapter{},
		&PytestAdapter{},
		&GenericAdapter{},
	}
}

// Detect returns the first adapter (in fixed order) whose CanHandle
// reports true for raw. Always succeeds: GenericAdapter accepts
// anything.
func Detect(raw string) Adapter {
	for _, a := range orderedAdapters() {
		if safeCanHandle(a, raw) {
			return a
		}
	}
	return &GenericAdapter{}
}

// ByName returns the adapter registered under name, or nil.
func ByName(name string) Adapter {
	for _, a := range orderedAdapters() {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// safeCanHandle guards against an adapter's CanHandle panicking on
// unexpected input — "must not raise" per spec §4.1.
func safeCanHandle(a Adapter, raw string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return a.CanHandle(raw)
}

// Parse auto-detects the framework (if framework == "" or "auto") and
// parses raw, guarding against the underlying adapter panicking on a
// malformed fragment — "an adapter never throws" per spec §4.1.
func Parse(raw, framework string) (events []event.ExecutionEvent, usedFramework string) {
	var a Adapter
	if framework == "" || framework == "auto" {
		a = Detect(raw)
	} else if a = ByName(framework); a == nil {
		a = &GenericAdapter{}
	}

	events = safeParse(a, raw)
	return events, a.Name()
}

func safeParse(a Adapter, raw string) (events []event.ExecutionEvent) {
	defer func() {
		if recover() != nil {
			events = nil
		}
	}()
	return a.Parse(raw)
}
