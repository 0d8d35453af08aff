package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of permission tags a principal can carry. The wire
// and storage representation is the lower-case string form.
type Role string

const (
	RoleTeacher     Role = "teacher"
	RoleAdmin       Role = "admin"
	RoleFieldWorker Role = "field_worker"
)

// ParseRole normalizes and validates a role tag coming from storage or a
// request body.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleFieldWorker:
		return RoleFieldWorker, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is a member of the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleTeacher, RoleAdmin, RoleFieldWorker:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
