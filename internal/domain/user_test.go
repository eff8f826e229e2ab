package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPermissions(t *testing.T) {
	admin := DefaultPermissions(RoleAdmin)
	for _, cap := range []Capability{
		CapCreateUsers, CapDeactivateUsers, CapResetPasswords,
		CapManageTickets, CapViewAllTickets, CapDeleteTickets, CapExportData,
	} {
		assert.True(t, admin.Has(cap), "admin should have %s", cap)
	}

	manager := DefaultPermissions(RoleManager)
	assert.True(t, manager.Has(CapManageTickets))
	assert.True(t, manager.Has(CapViewAllTickets))
	assert.True(t, manager.Has(CapExportData))
	assert.False(t, manager.Has(CapCreateUsers))
	assert.False(t, manager.Has(CapDeleteTickets))

	agent := DefaultPermissions(RoleAgent)
	assert.True(t, agent.Has(CapManageTickets))
	assert.True(t, agent.Has(CapViewAllTickets))
	assert.False(t, agent.Has(CapExportData))

	user := DefaultPermissions(RoleUser)
	assert.Equal(t, PermissionSet{}, user)
}

func TestPermissionSetUnknownCapability(t *testing.T) {
	full := DefaultPermissions(RoleAdmin)
	assert.False(t, full.Has(Capability("frobnicate")))
}

func TestSessionCanNilFailsClosed(t *testing.T) {
	var session *Session
	assert.False(t, session.Can(CapManageTickets))
}

func TestFullName(t *testing.T) {
	u := User{FirstName: "Amy", LastName: "Chen"}
	assert.Equal(t, "Amy Chen", u.FullName())
}
