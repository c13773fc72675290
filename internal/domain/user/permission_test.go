package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		role    Role
		allowed []Permission
		denied  []Permission
	}{
		{
			role:    RoleEmployee,
			allowed: []Permission{PermissionLeaveCreate, PermissionLeaveViewOwn, PermissionLeaveCancelOwn},
			denied:  []Permission{PermissionLeaveApproveManager, PermissionLeaveApproveAdmin, PermissionLeaveReset},
		},
		{
			role:    RoleManager,
			allowed: []Permission{PermissionLeaveCreate, PermissionLeaveApproveManager, PermissionLeaveViewTeam, PermissionLeaveCancelTeam},
			denied:  []Permission{PermissionLeaveApproveAdmin, PermissionLeaveViewAll, PermissionLeaveManageTypes},
		},
		{
			role:    RoleAdmin,
			allowed: []Permission{PermissionLeaveCreate, PermissionLeaveApproveAdmin, PermissionLeaveViewAll, PermissionLeaveManageTypes, PermissionLeaveReset},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			set := PermissionsFor(tt.role)
			for _, p := range tt.allowed {
				assert.True(t, set.Has(p), "expected %s to have %s", tt.role, p)
			}
			for _, p := range tt.denied {
				assert.False(t, set.Has(p), "expected %s not to have %s", tt.role, p)
			}
		})
	}
}

func TestPermissionsFor_UnknownRole(t *testing.T) {
	set := PermissionsFor(Role("contractor"))
	assert.Empty(t, set)
	assert.False(t, HasPermission(Role("contractor"), PermissionLeaveCreate))
}

func TestPermissionsFor_ReturnsIndependentSets(t *testing.T) {
	a := PermissionsFor(RoleEmployee)
	a[PermissionLeaveReset] = struct{}{}

	b := PermissionsFor(RoleEmployee)
	assert.False(t, b.Has(PermissionLeaveReset))
}

func TestPrincipal_Can(t *testing.T) {
	p := Principal{UserID: "u-1", Role: RoleManager}
	assert.True(t, p.Can(PermissionLeaveApproveManager))
	assert.False(t, p.Can(PermissionLeaveApproveAdmin))
}

func TestUser_IsManagedBy(t *testing.T) {
	mgr := "m-1"
	u := User{ID: "e-1", ManagerID: &mgr}
	assert.True(t, u.IsManagedBy("m-1"))
	assert.False(t, u.IsManagedBy("m-2"))
	assert.False(t, (&User{ID: "e-2"}).IsManagedBy("m-1"))
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleEmployee.IsValid())
	assert.False(t, Role("owner").IsValid())
}
