package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris/pkg/domain"
)

func newView(t *testing.T, status LoanStatus, dueAt, now time.Time) LoanView {
	t.Helper()
	loan, err := NewLoan(
		domain.LoanID(uuid.New()),
		domain.BookID(uuid.New()),
		domain.UserID(uuid.New()),
		dueAt.AddDate(0, 0, -14),
		dueAt,
	)
	require.NoError(t, err)
	loan.Status = status
	return NewLoanView(loan, "Cien años de soledad", "María García", "maria@biblioteca.edu", "estudiante", now)
}

func TestNewLoanViewFallbacks(t *testing.T) {
	loan, err := NewLoan(
		domain.LoanID(uuid.New()),
		domain.BookID(uuid.New()),
		domain.UserID(uuid.New()),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	v := NewLoanView(loan, "", "", "", "", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, UnknownBookTitle, v.BookTitle)
	assert.Equal(t, UnknownUserName, v.UserName)
	assert.Empty(t, v.UserEmail)
}

func TestMatchesEstado(t *testing.T) {
	dueAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	before := dueAt.AddDate(0, 0, -1)
	after := dueAt.AddDate(0, 0, 1)

	t.Run("empty and all match everything", func(t *testing.T) {
		v := newView(t, LoanStatusReturned, dueAt, after)
		assert.True(t, v.MatchesEstado(""))
		assert.True(t, v.MatchesEstado(FilterEstadoAll))
	})

	t.Run("vencido matches derived overdue", func(t *testing.T) {
		v := newView(t, LoanStatusCheckedOut, dueAt, after)
		assert.True(t, v.MatchesEstado(FilterEstadoVencido))
	})

	t.Run("vencido matches stored late even before due date", func(t *testing.T) {
		v := newView(t, LoanStatusLate, dueAt, before)
		assert.True(t, v.MatchesEstado(FilterEstadoVencido))
	})

	t.Run("vencido never matches returned loans", func(t *testing.T) {
		v := newView(t, LoanStatusReturned, dueAt, after)
		assert.False(t, v.MatchesEstado(FilterEstadoVencido))
	})

	t.Run("vencido does not match current checked-out loans", func(t *testing.T) {
		v := newView(t, LoanStatusCheckedOut, dueAt, before)
		assert.False(t, v.MatchesEstado(FilterEstadoVencido))
	})

	t.Run("stored estado is matched exactly", func(t *testing.T) {
		v := newView(t, LoanStatusCheckedOut, dueAt, before)
		assert.True(t, v.MatchesEstado("prestado"))
		assert.False(t, v.MatchesEstado("devuelto"))
	})
}

func TestMatchesQuery(t *testing.T) {
	dueAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	v := newView(t, LoanStatusCheckedOut, dueAt, dueAt)

	t.Run("empty query matches all", func(t *testing.T) {
		assert.True(t, v.MatchesQuery(""))
	})

	t.Run("matches book title case-insensitively", func(t *testing.T) {
		assert.True(t, v.MatchesQuery("CIEN AÑOS"))
	})

	t.Run("matches user name substring", func(t *testing.T) {
		assert.True(t, v.MatchesQuery("garcía"))
	})

	t.Run("matches email substring", func(t *testing.T) {
		assert.True(t, v.MatchesQuery("@biblioteca"))
	})

	t.Run("no field matches", func(t *testing.T) {
		assert.False(t, v.MatchesQuery("quijote"))
	})
}
