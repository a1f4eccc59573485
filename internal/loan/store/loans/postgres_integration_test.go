//go:build integration

package loans_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"libris/internal/loan/models"
	"libris/internal/loan/store/loans"
	"libris/pkg/domain"
	"libris/pkg/platform/sentinel"
	"libris/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *loans.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = loans.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "loans"))
}

func newTestLoan() *models.Loan {
	loanedAt := time.Now().UTC().Truncate(time.Microsecond)
	loan, _ := models.NewLoan(
		domain.LoanID(uuid.New()),
		domain.BookID(uuid.New()),
		domain.UserID(uuid.New()),
		loanedAt,
		loanedAt.AddDate(0, 0, 14),
	)
	return loan
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	loan := newTestLoan()
	s.Require().NoError(s.store.Create(ctx, loan))

	found, err := s.store.FindByID(ctx, loan.ID)
	s.Require().NoError(err)
	s.Equal(loan.BookID, found.BookID)
	s.Equal(models.LoanStatusCheckedOut, found.Status)
	s.Nil(found.Penalty)
	s.True(loan.DueAt.Equal(found.DueAt))
}

func (s *PostgresStoreSuite) TestDuplicateCreate() {
	ctx := context.Background()
	loan := newTestLoan()
	s.Require().NoError(s.store.Create(ctx, loan))
	s.ErrorIs(s.store.Create(ctx, loan), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, domain.LoanID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(ctx, domain.LoanID(uuid.New()),
		func(l *models.Loan) error { return nil },
		func(l *models.Loan) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecutePersistsPenalty() {
	ctx := context.Background()
	loan := newTestLoan()
	s.Require().NoError(s.store.Create(ctx, loan))

	appliedAt := time.Now().UTC().Truncate(time.Microsecond)
	penalty, err := models.NewPenalty(5, "libro dañado", appliedAt)
	s.Require().NoError(err)

	updated, err := s.store.Execute(ctx, loan.ID,
		func(l *models.Loan) error { return nil },
		func(l *models.Loan) { l.ApplyPenalty(penalty) },
	)
	s.Require().NoError(err)
	s.Require().NotNil(updated.Penalty)

	found, err := s.store.FindByID(ctx, loan.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.Penalty)
	s.Equal(5, found.Penalty.Days)
	s.Equal("libro dañado", found.Penalty.Reason)
	s.True(appliedAt.Equal(found.Penalty.AppliedAt))
}

// TestConcurrentReturns verifies the row lock serializes concurrent
// mutations so the return transition is applied exactly once.
func (s *PostgresStoreSuite) TestConcurrentReturns() {
	ctx := context.Background()
	loan := newTestLoan()
	s.Require().NoError(s.store.Create(ctx, loan))

	const goroutines = 20
	var wg sync.WaitGroup
	var applied atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, loan.ID,
				func(l *models.Loan) error { return nil },
				func(l *models.Loan) {
					if !l.IsReturned() {
						applied.Add(1)
					}
					l.ApplyReturn()
				},
			)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), applied.Load(), "exactly one goroutine should observe the checked-out state")

	found, err := s.store.FindByID(ctx, loan.ID)
	s.Require().NoError(err)
	s.Equal(models.LoanStatusReturned, found.Status)
}

func (s *PostgresStoreSuite) TestSnapshotAndCount() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Create(ctx, newTestLoan()))
	}

	snap, err := s.store.Snapshot(ctx)
	s.Require().NoError(err)
	s.Len(snap, 3)

	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}
