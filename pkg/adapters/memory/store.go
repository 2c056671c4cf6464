package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

type entry struct {
	result    *domain.RunResult
	expiresAt time.Time
}

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data  map[string]entry
	mu    sync.RWMutex
	ttl   time.Duration
	clock func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires runs ttl after they were saved. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data:  make(map[string]entry),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the run in memory.
func (s *Store) Save(ctx context.Context, result *domain.RunResult) error {
	e := entry{result: cloneResult(result)}
	if s.ttl > 0 {
		e.expiresAt = s.clock().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[result.RunID] = e
	return nil
}

// Load retrieves the run from memory.
func (s *Store) Load(ctx context.Context, runID string) (*domain.RunResult, error) {
	s.mu.RLock()
	e, ok := s.data[runID]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrRunNotFound
	}

	// Copy on read so the caller can't mutate the stored run through the pointer
	return cloneResult(e.result), nil
}

// Delete removes the run.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns live runs and drops expired ones.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]string, 0, len(s.data))
	for id, e := range s.data {
		if s.expired(e) {
			delete(s.data, id)
			continue
		}
		runs = append(runs, id)
	}
	slices.Sort(runs)
	return runs, nil
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.clock().Before(e.expiresAt)
}

func cloneResult(r *domain.RunResult) *domain.RunResult {
	out := *r
	if r.ExecutionSummary != nil {
		sum := *r.ExecutionSummary
		sum.Allocation = maps.Clone(sum.Allocation)
		sum.InitialAllocation = maps.Clone(sum.InitialAllocation)
		sum.Spent = maps.Clone(sum.Spent)
		sum.ExecutionOrder = slices.Clone(sum.ExecutionOrder)
		sum.CompletedTools = slices.Clone(sum.CompletedTools)
		sum.Errors = slices.Clone(sum.Errors)
		sum.Warnings = slices.Clone(sum.Warnings)
		out.ExecutionSummary = &sum
	}
	return &out
}
