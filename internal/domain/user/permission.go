package user

type Permission string

const (
	// Self service
	PermissionLeaveCreate    Permission = "leave.create"
	PermissionLeaveViewOwn   Permission = "leave.view_own"
	PermissionLeaveCancelOwn Permission = "leave.cancel_own"

	// Team
	PermissionLeaveApproveManager Permission = "leave.approve_manager"
	PermissionLeaveViewTeam       Permission = "leave.view_team"
	PermissionLeaveCancelTeam     Permission = "leave.cancel_team"

	// HR
	PermissionLeaveApproveAdmin Permission = "leave.approve_admin"
	PermissionLeaveViewAll      Permission = "leave.view_all"
	PermissionLeaveManageTypes  Permission = "leave.manage_types"
	PermissionLeaveReset        Permission = "leave.reset"
)

// PermissionSet is an immutable-by-convention set of permissions
type PermissionSet map[Permission]struct{}

// Has checks membership
func (s PermissionSet) Has(permission Permission) bool {
	_, ok := s[permission]
	return ok
}

var employeePermissions = []Permission{
	PermissionLeaveCreate,
	PermissionLeaveViewOwn,
	PermissionLeaveCancelOwn,
}

var managerPermissions = []Permission{
	PermissionLeaveApproveManager,
	PermissionLeaveViewTeam,
	PermissionLeaveCancelTeam,
}

var adminPermissions = []Permission{
	PermissionLeaveApproveAdmin,
	PermissionLeaveViewAll,
	PermissionLeaveManageTypes,
	PermissionLeaveReset,
}

// rolePermissions maps roles to their grants; each role inherits the one before it
var rolePermissions = map[Role][][]Permission{
	RoleEmployee: {employeePermissions},
	RoleManager:  {employeePermissions, managerPermissions},
	RoleAdmin:    {employeePermissions, managerPermissions, adminPermissions},
}

// PermissionsFor returns a fresh permission set for role. Unknown roles get an empty set.
func PermissionsFor(role Role) PermissionSet {
	set := make(PermissionSet)
	for _, group := range rolePermissions[role] {
		for _, p := range group {
			set[p] = struct{}{}
		}
	}
	return set
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	return PermissionsFor(role).Has(permission)
}
