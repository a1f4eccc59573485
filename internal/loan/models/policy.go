package models

import (
	"libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
)

// LoanPolicy is the loan-duration table keyed by borrower role, plus the
// named policy numerics. It is replaced wholesale by reconfiguration; there
// is no partial patching, so a policy value is always one that passed
// Validate together with the rest of its config.
type LoanPolicy struct {
	DaysByRole  map[domain.Role]int `json:"diasPorRol"`
	MaxRenewals int                 `json:"maxRenovaciones"`
	GraceDays   int                 `json:"diasGracia"`
}

// DefaultPolicy is the configuration active at process start.
func DefaultPolicy() LoanPolicy {
	return LoanPolicy{
		DaysByRole: map[domain.Role]int{
			domain.RoleEstudiante:    7,
			domain.RoleProfesor:      15,
			domain.RoleBibliotecario: 14,
			domain.RoleAdministrador: 30,
		},
		MaxRenewals: 2,
		GraceDays:   0,
	}
}

// Validate rejects configs that could never have been produced by the
// config dialog: empty tables, non-positive day counts, negative numerics.
func (p LoanPolicy) Validate() error {
	if len(p.DaysByRole) == 0 {
		return dErrors.New(dErrors.CodeValidation, "policy must define at least one role")
	}
	for role, days := range p.DaysByRole {
		if role == "" {
			return dErrors.New(dErrors.CodeValidation, "policy role cannot be empty")
		}
		if days <= 0 {
			return dErrors.Newf(dErrors.CodeValidation, "loan days for role %q must be a positive integer", role)
		}
	}
	if p.MaxRenewals < 0 {
		return dErrors.New(dErrors.CodeValidation, "max renewals cannot be negative")
	}
	if p.GraceDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "grace days cannot be negative")
	}
	return nil
}

// Days returns the allowed loan days for a role.
func (p LoanPolicy) Days(role domain.Role) (int, bool) {
	days, ok := p.DaysByRole[role]
	return days, ok
}

// Clone returns a deep copy so callers can never mutate the live config.
func (p LoanPolicy) Clone() LoanPolicy {
	cp := p
	cp.DaysByRole = make(map[domain.Role]int, len(p.DaysByRole))
	for role, days := range p.DaysByRole {
		cp.DaysByRole[role] = days
	}
	return cp
}
