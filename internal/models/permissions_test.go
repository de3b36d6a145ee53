package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allPermissions = []Permission{PermManageTickets, PermManageUsers, PermManageSettings, PermManageAdmins}

func TestNoAccessFailsClosed(t *testing.T) {
	access := NoAccess()
	assert.False(t, access.IsAdmin())
	for _, p := range allPermissions {
		assert.False(t, access.Has(p))
	}
}

func TestSuperAccessHoldsEverything(t *testing.T) {
	access := SuperAccess()
	assert.True(t, access.IsAdmin())
	for _, p := range allPermissions {
		assert.True(t, access.Has(p))
	}
}

func TestScopedAccessMatchesGrantSet(t *testing.T) {
	access := ScopedAccess([]Permission{PermManageTickets, PermManageUsers})
	assert.True(t, access.IsAdmin())
	assert.True(t, access.Has(PermManageTickets))
	assert.True(t, access.Has(PermManageUsers))
	assert.False(t, access.Has(PermManageSettings))
	assert.False(t, access.Has(PermManageAdmins))
}

// A scoped admin whose grants are all revoked must not silently become a
// super admin at this layer; the tri-state keeps the tiers explicit.
func TestScopedAccessWithEmptyGrantsStaysPowerless(t *testing.T) {
	access := ScopedAccess(nil)
	assert.True(t, access.IsAdmin())
	for _, p := range allPermissions {
		assert.False(t, access.Has(p))
	}
}

func TestPermissionValid(t *testing.T) {
	for _, p := range allPermissions {
		assert.True(t, p.Valid())
	}
	// Tags that existed in an old schema but were never granted or read.
	assert.False(t, Permission("view_tickets").Valid())
	assert.False(t, Permission("delete_tickets").Valid())
}
