package store

import (
	"context"
	"sync"

	"execintel/internal/patterns"
)

// InMemoryStore is a thread-safe in-memory Store. Used for local CLI
// runs and in tests, where pattern history resets between processes.
type InMemoryStore struct {
	mu       sync.RWMutex
	byHash   map[string]patterns.Pattern
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byHash: make(map[string]patterns.Pattern)}
}

func (s *InMemoryStore) RecordSighting(ctx context.Context, p patterns.Pattern) (patterns.Pattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byHash[p.PatternHash]
	if !ok {
		p.OccurrenceCount = 1
		p.FirstSeen = p.LastSeen
		if p.Status == "" {
			p.Status = patterns.StatusOpen
		}
		s.byHash[p.PatternHash] = p
		return p, nil
	}

	existing.OccurrenceCount++
	existing.LastSeen = p.LastSeen
	if existing.NormalizedMessage == "" {
		existing.NormalizedMessage = p.NormalizedMessage
	}
	s.byHash[p.PatternHash] = existing
	return existing, nil
}

func (s *InMemoryStore) GetByHash(ctx context.Context, patternHash string) (patterns.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byHash[patternHash]
	if !ok {
		return patterns.Pattern{}, ErrNotFound{PatternHash: patternHash}
	}
	return p, nil
}

func (s *InMemoryStore) Close() error { return nil }
