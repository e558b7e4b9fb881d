package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.  Every authorization
// checkpoint switches over all values so that adding a role fails
// loudly wherever it is not handled.
type Role string

const (
	RoleUser     Role = "USER"
	RoleAdmin    Role = "ADMIN"
	RoleApprover Role = "APPROVER"
)

// Roles lists every known role in display order.
var Roles = []Role{RoleUser, RoleApprover, RoleAdmin}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleApprover:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether r may use the back-office.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser, RoleApprover:
		return false
	default:
		return false
	}
}

// CanScan reports whether r may resolve tickets and record check-ins.
func (r Role) CanScan() bool {
	switch r {
	case RoleAdmin, RoleApprover:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
