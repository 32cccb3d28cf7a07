package models

import (
	"fmt"
	"strings"
)

// Role is the canonical user role. Raw strings from requests and tokens are
// normalized exactly once with ParseRole; everything past the trust boundary
// compares Role values, never free-form strings.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// roleAliases maps the spellings seen from older clients onto canonical
// roles.
var roleAliases = map[string]Role{
	"admin":            RoleAdmin,
	"administrator":    RoleAdmin,
	"owner":            RoleOwner,
	"restaurant_owner": RoleOwner,
	"restaurant-owner": RoleOwner,
	"staff":            RoleStaff,
	"waiter":           RoleStaff,
	"customer":         RoleCustomer,
	"user":             RoleCustomer,
}

// ParseRole normalizes raw into a canonical Role.
func ParseRole(raw string) (Role, error) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// CanManageRestaurant reports whether the role may mutate restaurant
// resources (tables, menus, reservations on behalf of guests).
func (r Role) CanManageRestaurant() bool {
	return r == RoleAdmin || r == RoleOwner || r == RoleStaff
}
