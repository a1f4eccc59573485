package models

import (
	"strings"
	"time"
)

// Fallback display values used when a joined reference no longer resolves.
const (
	UnknownBookTitle = "Libro desconocido"
	UnknownUserName  = "Usuario desconocido"
)

// LoanView is a Loan enriched at read time with joined display data and the
// derived vencido flag. Views are never stored or cached: "now" changes, so
// every read recomputes them against the request clock.
type LoanView struct {
	Loan
	BookTitle string `json:"libroTitulo"`
	UserName  string `json:"usuario"`
	UserEmail string `json:"userEmail"`
	UserRole  string `json:"userRole"`
	Overdue   bool   `json:"vencido"`
}

// NewLoanView derives the display view of a loan at the given instant.
func NewLoanView(loan *Loan, bookTitle, userName, userEmail, userRole string, now time.Time) LoanView {
	if bookTitle == "" {
		bookTitle = UnknownBookTitle
	}
	if userName == "" {
		userName = UnknownUserName
	}
	return LoanView{
		Loan:      *loan,
		BookTitle: bookTitle,
		UserName:  userName,
		UserEmail: userEmail,
		UserRole:  userRole,
		Overdue:   loan.IsOverdueAt(now),
	}
}

// MatchesEstado applies the status dimension of a ListFilter against the
// view. The synthetic "vencido" value matches the union of derived-overdue
// and stored-late loans; any other value is an exact match on stored estado.
func (v LoanView) MatchesEstado(estado string) bool {
	switch estado {
	case "", FilterEstadoAll:
		return true
	case FilterEstadoVencido:
		return v.Overdue || v.Status == LoanStatusLate
	default:
		return string(v.Status) == estado
	}
}

// MatchesQuery applies the free-text dimension: case-insensitive substring
// match against the joined book title, user name, or user email. An empty
// query matches everything.
func (v LoanView) MatchesQuery(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(v.BookTitle), q) ||
		strings.Contains(strings.ToLower(v.UserName), q) ||
		strings.Contains(strings.ToLower(v.UserEmail), q)
}
