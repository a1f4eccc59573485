// Package domain holds the shared domain primitives: typed identifiers and
// the role vocabulary. Typed IDs prevent cross-type assignment at compile
// time (a LoanID can never be passed where a BookID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "libris/pkg/domain-errors"
)

type (
	// LoanID identifies a single checkout of a physical book.
	LoanID uuid.UUID

	// BookID identifies a catalog entry.
	BookID uuid.UUID

	// UserID identifies a directory entry.
	UserID uuid.UUID
)

func (id LoanID) String() string { return uuid.UUID(id).String() }
func (id BookID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string { return uuid.UUID(id).String() }

func (id LoanID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BookID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseLoanID validates and returns a LoanID.
// Rejects empty strings, malformed UUIDs and the nil UUID.
func ParseLoanID(s string) (LoanID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return LoanID{}, err
	}
	return LoanID(u), nil
}

// ParseBookID validates and returns a BookID.
func ParseBookID(s string) (BookID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return BookID{}, err
	}
	return BookID(u), nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
