package models

import (
	"time"

	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// LoanStatus is the stored status of a loan. The displayed "vencido"
// condition is derived at read time and never stored (see IsOverdueAt).
type LoanStatus string

const (
	// LoanStatusCheckedOut is the initial status, set at loan creation.
	LoanStatusCheckedOut LoanStatus = "prestado"
	// LoanStatusReturned is terminal. No transition leaves it.
	LoanStatusReturned LoanStatus = "devuelto"
	// LoanStatusLate is stamped by the overdue sweep on checked-out loans
	// past their due date. The only transition out is to returned.
	LoanStatusLate LoanStatus = "retrasado"
)

func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusCheckedOut, LoanStatusReturned, LoanStatusLate:
		return true
	}
	return false
}

// CanTransitionTo encodes the status state machine:
// prestado -> retrasado | devuelto, retrasado -> devuelto, devuelto terminal.
func (s LoanStatus) CanTransitionTo(target LoanStatus) bool {
	switch s {
	case LoanStatusCheckedOut:
		return target == LoanStatusReturned || target == LoanStatusLate
	case LoanStatusLate:
		return target == LoanStatusReturned
	default:
		return false
	}
}

// Penalty is a restriction-days annotation recorded against a loan. A loan
// holds at most one: reapplying replaces the previous record.
type Penalty struct {
	Days      int       `json:"dias"`
	Reason    string    `json:"razon"`
	AppliedAt time.Time `json:"fechaAplicacion"`
}

// NewPenalty validates and builds a penalty record.
func NewPenalty(days int, reason string, appliedAt time.Time) (*Penalty, error) {
	if days <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "penalty days must be a positive integer")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "penalty reason cannot be empty")
	}
	return &Penalty{Days: days, Reason: reason, AppliedAt: appliedAt}, nil
}

// Loan is the aggregate root for one physical-book checkout.
//
// Invariants:
//   - DueAt is fixed at creation from the active policy and never
//     recomputed; policy changes are prospective only
//   - Status follows the LoanStatus state machine; returned is terminal
//   - Penalty replacement is last-writer-wins; history is not kept
type Loan struct {
	ID       domain.LoanID `json:"id"`
	BookID   domain.BookID `json:"bookId"`
	UserID   domain.UserID `json:"userId"`
	LoanedAt time.Time     `json:"fechaPrestamo"`
	DueAt    time.Time     `json:"fechaDevolucion"`
	Status   LoanStatus    `json:"estado"`
	Penalty  *Penalty      `json:"penalizacion,omitempty"`
}

// NewLoan builds a checked-out loan with a due date already resolved from
// the policy by the caller.
func NewLoan(id domain.LoanID, bookID domain.BookID, userID domain.UserID, now, dueAt time.Time) (*Loan, error) {
	if bookID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "loan requires a book")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "loan requires a borrower")
	}
	if !dueAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "due date must be after the loan date")
	}
	return &Loan{
		ID:       id,
		BookID:   bookID,
		UserID:   userID,
		LoanedAt: now,
		DueAt:    dueAt,
		Status:   LoanStatusCheckedOut,
	}, nil
}

// IsOverdueAt reports whether the loan is overdue at the given instant:
// strictly past the due date while still checked out. A returned loan is
// never overdue regardless of dates; equality with the due date is not
// overdue. Pure function of its inputs, safe for concurrent use.
func (l *Loan) IsOverdueAt(now time.Time) bool {
	return l.Status == LoanStatusCheckedOut && now.After(l.DueAt)
}

// IsReturned reports whether the loan reached its terminal status.
func (l *Loan) IsReturned() bool {
	return l.Status == LoanStatusReturned
}

// ApplyReturn transitions the loan to returned. Idempotent: returning an
// already-returned loan is a no-op, not an error.
func (l *Loan) ApplyReturn() {
	if l.Status == LoanStatusReturned {
		return
	}
	l.Status = LoanStatusReturned
}

// CanMarkLate checks the prestado -> retrasado sweep transition.
func (l *Loan) CanMarkLate() error {
	if !l.Status.CanTransitionTo(LoanStatusLate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only checked-out loans can be marked late")
	}
	return nil
}

// ApplyLate stamps the stored late status. Call CanMarkLate first.
func (l *Loan) ApplyLate() {
	l.Status = LoanStatusLate
}

// ApplyPenalty replaces the loan's penalty record. Permitted regardless of
// status: a penalty may be recorded against an already-returned loan to
// reflect a late return.
func (l *Loan) ApplyPenalty(p *Penalty) {
	l.Penalty = p
}

// Clone returns a deep copy so snapshot reads never alias store memory.
func (l *Loan) Clone() *Loan {
	cp := *l
	if l.Penalty != nil {
		p := *l.Penalty
		cp.Penalty = &p
	}
	return &cp
}
