package models

import (
	"strings"

	dErrors "libris/pkg/domain-errors"
)

// ApplyPenaltyRequest is the body of the penalty endpoint.
type ApplyPenaltyRequest struct {
	Days   int    `json:"dias"`
	Reason string `json:"razon"`
}

func (r *ApplyPenaltyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

// Follows validation order: Size -> Required -> Semantic.
func (r *ApplyPenaltyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "razon must be 500 characters or less")
	}

	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "razon is required")
	}
	if r.Days <= 0 {
		return dErrors.New(dErrors.CodeValidation, "dias must be a positive integer")
	}

	return nil
}

// CreateLoanRequest is the body of the loan creation endpoint.
type CreateLoanRequest struct {
	BookID string `json:"bookId"`
	UserID string `json:"userId"`
}

func (r *CreateLoanRequest) Normalize() {
	if r == nil {
		return
	}
	r.BookID = strings.TrimSpace(r.BookID)
	r.UserID = strings.TrimSpace(r.UserID)
}

func (r *CreateLoanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.BookID == "" {
		return dErrors.New(dErrors.CodeValidation, "bookId is required")
	}
	if r.UserID == "" {
		return dErrors.New(dErrors.CodeValidation, "userId is required")
	}
	return nil
}

// FilterEstadoVencido is the synthetic status filter value: it matches loans
// that are derived-overdue or stored late, never returned ones.
const FilterEstadoVencido = "vencido"

// FilterEstadoAll disables status filtering.
const FilterEstadoAll = "all"

// ListFilter carries the listing query. Both dimensions are ANDed.
type ListFilter struct {
	Estado string
	Query  string
}

func (f *ListFilter) Normalize() {
	if f == nil {
		return
	}
	f.Estado = strings.TrimSpace(strings.ToLower(f.Estado))
	f.Query = strings.TrimSpace(f.Query)
}

func (f *ListFilter) Validate() error {
	if f == nil {
		return nil
	}
	switch f.Estado {
	case "", FilterEstadoAll, FilterEstadoVencido:
		return nil
	}
	if !LoanStatus(f.Estado).IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown estado filter %q", f.Estado)
	}
	return nil
}
