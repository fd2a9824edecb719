// Package store persists the Pattern Tracker's deduplicated failure
// signatures (spec §4.8) across runs: an upsert-increment on every
// sighting of a pattern_hash, and a read-by-hash for the confidence
// calibrator's frequency boost lookup.
package store

import (
	"context"

	"execintel/internal/patterns"
)

// Store is the Pattern Tracker's persistence contract, narrowed from
// a general CRUD store to exactly the two operations the tracker
// needs: record a sighting, and read current state.
type Store interface {
	// RecordSighting upserts pattern (by PatternHash), incrementing
	// OccurrenceCount and advancing LastSeen. FirstSeen is set only on
	// first insert. Returns the pattern's state after the update.
	RecordSighting(ctx context.Context, p patterns.Pattern) (patterns.Pattern, error)

	// GetByHash returns the current state of a tracked pattern, or
	// ErrNotFound if it has never been seen.
	GetByHash(ctx context.Context, patternHash string) (patterns.Pattern, error)

	// Close releases any underlying connection.
	Close() error
}

// ErrNotFound is returned by GetByHash when patternHash has no
// recorded sighting.
type ErrNotFound struct {
	PatternHash string
}

func (e ErrNotFound) Error() string {
	return "pattern not found: " + e.PatternHash
}
