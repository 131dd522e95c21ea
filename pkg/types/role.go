package types

import (
	"strings"
)

// Role is the closed set of practice roles a profile can hold.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// DefaultRole is applied when a profile is created without an explicit role.
const DefaultRole = RoleStaff

// ParseRole normalizes raw input into a Role. Unknown values return
// ErrInvalidRole so callers never carry free-form role strings.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Valid reports whether the role is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// Privileged reports whether the role may perform administrative actions.
func (r Role) Privileged() bool {
	switch r {
	case RoleManager, RoleAdmin:
		return true
	case RoleStaff:
		return false
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// RoleSet is an explicit list of roles permitted to proceed past the guard.
type RoleSet []Role

// PrivilegedRoles returns the roles allowed to invite and administer users.
func PrivilegedRoles() RoleSet {
	return RoleSet{RoleManager, RoleAdmin}
}

// AllRoles returns every role in declaration order.
func AllRoles() RoleSet {
	return RoleSet{RoleStaff, RoleManager, RoleAdmin}
}

// Contains reports whether role is part of the set.
func (s RoleSet) Contains(role Role) bool {
	for _, candidate := range s {
		if candidate == role {
			return true
		}
	}
	return false
}

// Strings returns the set as plain strings, mostly for logs.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, role := range s {
		out = append(out, string(role))
	}
	return out
}
