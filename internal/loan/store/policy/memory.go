package policy

import (
	"context"
	"sync"

	"libris/internal/loan/models"
)

// InMemory holds the active loan policy behind a mutex. Replace swaps the
// whole value at once; readers either see the old policy or the new one,
// never a partially updated table.
type InMemory struct {
	mu     sync.RWMutex
	active models.LoanPolicy
}

// NewInMemory seeds the store with the given policy, usually DefaultPolicy.
func NewInMemory(initial models.LoanPolicy) *InMemory {
	return &InMemory{active: initial.Clone()}
}

// Get returns a copy of the active policy.
func (s *InMemory) Get(_ context.Context) (models.LoanPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Clone(), nil
}

// Replace swaps in a new policy wholesale. Validation is the caller's
// responsibility; the store never holds an unvalidated value because the
// service validates before calling.
func (s *InMemory) Replace(_ context.Context, next models.LoanPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = next.Clone()
	return nil
}
