package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":            RoleAdmin,
		"Administrator":    RoleAdmin,
		"owner":            RoleOwner,
		"restaurant_owner": RoleOwner,
		"RESTAURANT-OWNER": RoleOwner,
		"staff":            RoleStaff,
		"waiter":           RoleStaff,
		"customer":         RoleCustomer,
		"user":             RoleCustomer,
		"  staff  ":        RoleStaff,
	}
	for raw, want := range cases {
		got, err := ParseRole(raw)
		assert.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestCanManageRestaurant(t *testing.T) {
	assert.True(t, RoleAdmin.CanManageRestaurant())
	assert.True(t, RoleOwner.CanManageRestaurant())
	assert.True(t, RoleStaff.CanManageRestaurant())
	assert.False(t, RoleCustomer.CanManageRestaurant())
}
