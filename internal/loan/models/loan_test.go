package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/pkg/domain"
)

func newCheckedOutLoan(t *testing.T, loanedAt, dueAt time.Time) *Loan {
	t.Helper()
	loan, err := NewLoan(
		domain.LoanID(uuid.New()),
		domain.BookID(uuid.New()),
		domain.UserID(uuid.New()),
		loanedAt,
		dueAt,
	)
	require.NoError(t, err)
	return loan
}

func TestIsOverdueAt(t *testing.T) {
	loanedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dueAt := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("past due while checked out is overdue", func(t *testing.T) {
		loan := newCheckedOutLoan(t, loanedAt, dueAt)
		assert.True(t, loan.IsOverdueAt(dueAt.AddDate(0, 0, 1)))
	})

	t.Run("equality with due date is not overdue", func(t *testing.T) {
		loan := newCheckedOutLoan(t, loanedAt, dueAt)
		assert.False(t, loan.IsOverdueAt(dueAt))
	})

	t.Run("before due date is not overdue", func(t *testing.T) {
		loan := newCheckedOutLoan(t, loanedAt, dueAt)
		assert.False(t, loan.IsOverdueAt(dueAt.AddDate(0, 0, -1)))
	})

	t.Run("returned loan is never overdue regardless of dates", func(t *testing.T) {
		loan := newCheckedOutLoan(t, loanedAt, dueAt)
		loan.ApplyReturn()
		assert.False(t, loan.IsOverdueAt(dueAt.AddDate(1, 0, 0)))
	})

	t.Run("stored late status is not derived overdue", func(t *testing.T) {
		// The filter layer treats retrasado as equivalent to vencido;
		// the classifier itself only looks at checked-out loans.
		loan := newCheckedOutLoan(t, loanedAt, dueAt)
		require.NoError(t, loan.CanMarkLate())
		loan.ApplyLate()
		assert.False(t, loan.IsOverdueAt(dueAt.AddDate(0, 0, 10)))
	})
}

func TestStatusTransitions(t *testing.T) {
	t.Run("checked out can be returned or marked late", func(t *testing.T) {
		assert.True(t, LoanStatusCheckedOut.CanTransitionTo(LoanStatusReturned))
		assert.True(t, LoanStatusCheckedOut.CanTransitionTo(LoanStatusLate))
	})

	t.Run("late can only be returned", func(t *testing.T) {
		assert.True(t, LoanStatusLate.CanTransitionTo(LoanStatusReturned))
		assert.False(t, LoanStatusLate.CanTransitionTo(LoanStatusCheckedOut))
	})

	t.Run("returned is terminal", func(t *testing.T) {
		assert.False(t, LoanStatusReturned.CanTransitionTo(LoanStatusCheckedOut))
		assert.False(t, LoanStatusReturned.CanTransitionTo(LoanStatusLate))
		assert.False(t, LoanStatusReturned.CanTransitionTo(LoanStatusReturned))
	})

	t.Run("return is idempotent", func(t *testing.T) {
		loan := newCheckedOutLoan(t,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		)
		loan.ApplyReturn()
		loan.ApplyReturn()
		assert.Equal(t, LoanStatusReturned, loan.Status)
	})

	t.Run("late cannot be stamped on a returned loan", func(t *testing.T) {
		loan := newCheckedOutLoan(t,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		)
		loan.ApplyReturn()
		require.Error(t, loan.CanMarkLate())
	})
}

func TestNewPenalty(t *testing.T) {
	now := time.Now()

	t.Run("rejects zero days", func(t *testing.T) {
		_, err := NewPenalty(0, "libro dañado", now)
		require.Error(t, err)
	})

	t.Run("rejects negative days", func(t *testing.T) {
		_, err := NewPenalty(-1, "libro dañado", now)
		require.Error(t, err)
	})

	t.Run("rejects empty reason", func(t *testing.T) {
		_, err := NewPenalty(5, "", now)
		require.Error(t, err)
	})

	t.Run("accepts valid penalty", func(t *testing.T) {
		p, err := NewPenalty(5, "libro dañado", now)
		require.NoError(t, err)
		assert.Equal(t, 5, p.Days)
		assert.Equal(t, "libro dañado", p.Reason)
		assert.Equal(t, now, p.AppliedAt)
	})
}

func TestApplyPenaltyReplaces(t *testing.T) {
	loan := newCheckedOutLoan(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	)
	now := time.Now()

	first, err := NewPenalty(5, "libro dañado", now)
	require.NoError(t, err)
	loan.ApplyPenalty(first)

	second, err := NewPenalty(2, "retraso adicional", now.Add(time.Hour))
	require.NoError(t, err)
	loan.ApplyPenalty(second)

	require.NotNil(t, loan.Penalty)
	assert.Equal(t, 2, loan.Penalty.Days)
	assert.Equal(t, "retraso adicional", loan.Penalty.Reason)
}

func TestClone(t *testing.T) {
	loan := newCheckedOutLoan(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	)
	p, err := NewPenalty(3, "retraso", time.Now())
	require.NoError(t, err)
	loan.ApplyPenalty(p)

	cp := loan.Clone()
	cp.ApplyReturn()
	cp.Penalty.Days = 99

	assert.Equal(t, LoanStatusCheckedOut, loan.Status, "clone must not alias the original")
	assert.Equal(t, 3, loan.Penalty.Days, "clone must deep-copy the penalty")
}
