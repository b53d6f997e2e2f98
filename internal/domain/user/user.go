package user

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of organizational roles. The zero value is not a valid role.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdministrator
	RoleProjectManager
	RoleSeniorEngineer
	RoleLeadEngineer
	RoleProcessEngineer
	RoleDesignEngineer
	RoleQAQCEngineer
	RoleInstrumentEngineer
	RoleMechanicalEngineer
	RoleSafetyEngineer
)

var roleNames = [...]string{
	RoleUnknown:            "",
	RoleAdministrator:      "administrator",
	RoleProjectManager:     "project-manager",
	RoleSeniorEngineer:     "senior-engineer",
	RoleLeadEngineer:       "lead-engineer",
	RoleProcessEngineer:    "process-engineer",
	RoleDesignEngineer:     "design-engineer",
	RoleQAQCEngineer:       "qa-qc-engineer",
	RoleInstrumentEngineer: "instrument-engineer",
	RoleMechanicalEngineer: "mechanical-engineer",
	RoleSafetyEngineer:     "safety-engineer",
}

// Roles lists every valid role in declaration order.
func Roles() []Role {
	roles := make([]Role, 0, len(roleNames)-1)
	for r := RoleAdministrator; int(r) < len(roleNames); r++ {
		roles = append(roles, r)
	}
	return roles
}

func (r Role) String() string {
	if r.Valid() {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	return r > RoleUnknown && int(r) < len(roleNames)
}

func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, ok := ParseRole(string(text))
	if !ok {
		return fmt.Errorf("unknown role %q", string(text))
	}
	*r = parsed
	return nil
}

// ParseRole accepts the canonical hyphenated name. Underscores and case are tolerated
// so that values stored by older tooling ("process_engineer") still resolve.
func ParseRole(s string) (Role, bool) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if name == "" {
		return RoleUnknown, false
	}
	for i, n := range roleNames {
		if n == name {
			return Role(i), true
		}
	}
	return RoleUnknown, false
}

// User is the identity supplied by the auth subsystem.
type User struct {
	ID        int64
	Username  string
	Email     string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is the minimal identity an authorization decision needs.
type Principal struct {
	ID   int64
	Role Role
}

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}
