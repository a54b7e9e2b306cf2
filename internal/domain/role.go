package domain

import "fmt"

// Role identifies one of the two fixed Mefil participants.
type Role string

const (
	RoleBelal  Role = "belal"
	RoleRutbah Role = "rutbah"
)

// Roles lists every valid role in a stable order.
func Roles() []Role {
	return []Role{RoleBelal, RoleRutbah}
}

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleBelal:
		return RoleBelal, nil
	case RoleRutbah:
		return RoleRutbah, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (r Role) Valid() bool {
	return r == RoleBelal || r == RoleRutbah
}

// Partner returns the other participant.
func (r Role) Partner() Role {
	if r == RoleBelal {
		return RoleRutbah
	}
	return RoleBelal
}

func (r Role) Label() string {
	if r == RoleBelal {
		return "Belal"
	}
	return "Rutbah"
}

func (r Role) String() string { return string(r) }
