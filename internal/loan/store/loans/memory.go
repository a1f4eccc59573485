package loans

import (
	"context"
	"sync"

	"libris/internal/loan/models"
	"libris/pkg/domain"
	"libris/pkg/platform/sentinel"
)

// InMemory is the default loan store: a map guarded by an RWMutex. All
// reads return deep copies so callers can never mutate store memory.
type InMemory struct {
	mu    sync.RWMutex
	loans map[domain.LoanID]*models.Loan
}

func NewInMemory() *InMemory {
	return &InMemory{loans: make(map[domain.LoanID]*models.Loan)}
}

// Create inserts a new loan. Returns ErrConflict if the ID is taken.
func (s *InMemory) Create(_ context.Context, loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[loan.ID]; exists {
		return sentinel.ErrConflict
	}
	s.loans[loan.ID] = loan.Clone()
	return nil
}

// FindByID returns a copy of the loan or ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, loanID domain.LoanID) (*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return loan.Clone(), nil
}

// Execute runs an atomic validate-then-mutate on one loan while holding
// the write lock. If validate fails nothing is written. Returns a copy of
// the loan as mutated.
func (s *InMemory) Execute(_ context.Context, loanID domain.LoanID, validate func(*models.Loan) error, mutate func(*models.Loan)) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(loan); err != nil {
		return nil, err
	}
	mutate(loan)
	return loan.Clone(), nil
}

// Snapshot returns a point-in-time copy of every loan. The caller owns the
// returned slice; later writes to the store are not reflected in it.
func (s *InMemory) Snapshot(_ context.Context) ([]*models.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		out = append(out, loan.Clone())
	}
	return out, nil
}

// Count returns the number of stored loans.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loans), nil
}
