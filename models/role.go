package models

import "fmt"

// Role is the closed set of account roles. Dispatch on Role values, never on
// raw strings from the client.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleVendor  Role = "vendor"
)

// ParseRole validates a client-supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleAdmin, RoleVendor:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

func (r Role) String() string { return string(r) }
