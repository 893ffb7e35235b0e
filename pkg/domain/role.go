package domain

import dErrors "civreg/pkg/domain-errors"

// Role identifies the kind of account acting on the registry. Agent roles
// submit vital-event records on behalf of institutions; the manager role
// reviews them; registrants hold their own records.
type Role string

const (
	RoleRegistrar  Role = "registrar"
	RoleHospital   Role = "hospital"
	RoleChurch     Role = "church"
	RoleMosque     Role = "mosque"
	RoleRegistrant Role = "registrant"
	RoleManager    Role = "manager"
)

var validRoles = map[Role]bool{
	RoleRegistrar:  true,
	RoleHospital:   true,
	RoleChurch:     true,
	RoleMosque:     true,
	RoleRegistrant: true,
	RoleManager:    true,
}

// IsAgent reports whether the role submits records for third parties.
func (r Role) IsAgent() bool {
	switch r {
	case RoleRegistrar, RoleHospital, RoleChurch, RoleMosque:
		return true
	}
	return false
}

func (r Role) IsManager() bool { return r == RoleManager }

func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !validRoles[role] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+raw)
	}
	return role, nil
}
