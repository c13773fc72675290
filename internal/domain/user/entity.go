package user

type Role string

const (
	RoleEmployee Role = "employee" // Regular employee
	RoleManager  Role = "manager"  // Approves direct reports
	RoleAdmin    Role = "admin"    // HR, final approval authority
)

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is the read-only directory view of an account
type User struct {
	ID         string
	FullName   string
	Email      string
	Role       Role
	ManagerID  *string
	Department *string
	IsActive   bool
}

// IsAdmin checks if user is HR/admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsManager checks if user is a manager
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// IsManagedBy reports whether managerID is the direct manager of u
func (u *User) IsManagedBy(managerID string) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

// Principal is the acting identity supplied by the auth layer
type Principal struct {
	UserID    string
	Role      Role
	ManagerID *string
}

// Can checks the principal's role against a permission
func (p Principal) Can(permission Permission) bool {
	return HasPermission(p.Role, permission)
}
