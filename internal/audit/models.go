package audit

import "time"

// Actions recorded against the loan ledger.
const (
	ActionLoanCreated   = "loan.created"
	ActionLoanReturned  = "loan.returned"
	ActionLoanLate      = "loan.marked_late"
	ActionLoanPenalized = "loan.penalized"
	ActionPolicyUpdated = "policy.updated"
	ActionLogin         = "auth.login"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	ActorID   string            `json:"actorId,omitempty"`
	Action    string            `json:"action"`
	LoanID    string            `json:"loanId,omitempty"`
	BookID    string            `json:"bookId,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}
