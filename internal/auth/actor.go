package auth

import (
	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var (
	ErrForbidden   = apperror.Forbidden("permission denied")
	ErrInvalidRole = apperror.Validation("invalid role")
)

// Role is the single role an account holds.
type Role string

const (
	RoleSuperAdmin        Role = "superadmin"
	RoleManager           Role = "manager"
	RoleOperationsManager Role = "operations_manager"
	RoleFacilitiesManager Role = "facilities_manager"
	RoleMarketingManager  Role = "marketing_manager"
	RoleSecurity          Role = "security"
	RoleStaff             Role = "staff"
	RoleTenant            Role = "tenant"
)

var knownRoles = map[Role]struct{}{
	RoleSuperAdmin:        {},
	RoleManager:           {},
	RoleOperationsManager: {},
	RoleFacilitiesManager: {},
	RoleMarketingManager:  {},
	RoleSecurity:          {},
	RoleStaff:             {},
	RoleTenant:            {},
}

// ParseRole validates a raw role name.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if _, ok := knownRoles[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Actor is an authenticated caller. It is resolved once from the token and
// handed to services as-is.
type Actor struct {
	ID         string
	Role       Role
	Department string
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// IsManagement reports whether the actor sees across departments.
func (a Actor) IsManagement() bool {
	return a.HasRole(RoleSuperAdmin, RoleManager)
}

// InDepartment reports whether the actor may act on something owned by department.
func (a Actor) InDepartment(department string) bool {
	return a.IsManagement() || (a.Department != "" && a.Department == department)
}

// Permission names an operation gated by role.
type Permission string

const (
	PermManageShops        Permission = "shops:manage"
	PermManageContracts    Permission = "contracts:manage"
	PermReadContracts      Permission = "contracts:read"
	PermCreatePermit       Permission = "permits:create"
	PermSetPermitStatus    Permission = "permits:set_status"
	PermReadPermits        Permission = "permits:read"
	PermCreateTask         Permission = "tasks:create"
	PermCreateDeptTasks    Permission = "tasks:create_departments"
	PermUpdateTask         Permission = "tasks:update"
	PermReadWorkflowLedger Permission = "ledger:read"
	PermCreateMaintenance  Permission = "maintenance:create"
	PermHandleMaintenance  Permission = "maintenance:handle"
)

var permissions = map[Permission][]Role{
	PermManageShops:        {RoleSuperAdmin, RoleManager},
	PermManageContracts:    {RoleSuperAdmin, RoleManager},
	PermReadContracts:      {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleSecurity},
	PermCreatePermit:       {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleFacilitiesManager, RoleMarketingManager, RoleTenant, RoleStaff},
	PermSetPermitStatus:    {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleFacilitiesManager, RoleMarketingManager},
	PermReadPermits:        {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleFacilitiesManager, RoleMarketingManager, RoleSecurity},
	PermCreateTask:         {RoleSuperAdmin, RoleManager, RoleOperationsManager},
	PermCreateDeptTasks:    {RoleSuperAdmin, RoleManager},
	PermUpdateTask:         {RoleSuperAdmin, RoleManager, RoleOperationsManager},
	PermReadWorkflowLedger: {RoleSuperAdmin, RoleManager, RoleOperationsManager},
	PermCreateMaintenance:  {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleFacilitiesManager, RoleStaff, RoleTenant},
	PermHandleMaintenance:  {RoleSuperAdmin, RoleManager, RoleOperationsManager, RoleFacilitiesManager, RoleStaff},
}

// Can reports whether the actor's role grants p.
func (a Actor) Can(p Permission) bool {
	return a.HasRole(permissions[p]...)
}

// Authorize returns ErrForbidden unless the actor's role grants p.
func Authorize(a Actor, p Permission) error {
	if !a.Can(p) {
		return ErrForbidden
	}
	return nil
}
