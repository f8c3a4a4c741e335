package auth

// Permission codes known to the system.
const (
	PermEmployeeRead     = "EMPLOYEE_READ"
	PermEmployeeWrite    = "EMPLOYEE_WRITE"
	PermEmployeeDelete   = "EMPLOYEE_DELETE"
	PermDepartmentRead   = "DEPARTMENT_READ"
	PermDepartmentWrite  = "DEPARTMENT_WRITE"
	PermDepartmentDelete = "DEPARTMENT_DELETE"
	PermUserRead         = "USER_READ"
	PermUserWrite        = "USER_WRITE"
	PermUserDelete       = "USER_DELETE"
	PermSystemAdmin      = "SYSTEM_ADMIN"
	PermReportsRead      = "REPORTS_READ"
	PermAuditRead        = "AUDIT_READ"
)

// Built-in role codes, in ascending order of capability.
const (
	RoleGuest       = "GUEST"
	RoleEmployee    = "EMPLOYEE"
	RoleHRStaff     = "HR_STAFF"
	RoleDeptManager = "DEPARTMENT_MANAGER"
	RoleHRManager   = "HR_MANAGER"
	RoleSystemAdmin = "SYSTEM_ADMIN"
)

// DefaultRole is assigned at registration when none is requested.
const DefaultRole = RoleEmployee

// BuiltinPermissions is the permission catalog created at bootstrap.
var BuiltinPermissions = []Permission{
	{Code: PermEmployeeRead, Name: "Read Employees", Description: "View employee records", Category: CategoryEmployee},
	{Code: PermEmployeeWrite, Name: "Write Employees", Description: "Create and update employee records", Category: CategoryEmployee},
	{Code: PermEmployeeDelete, Name: "Delete Employees", Description: "Remove employee records", Category: CategoryEmployee},
	{Code: PermDepartmentRead, Name: "Read Departments", Description: "View departments", Category: CategoryDepartment},
	{Code: PermDepartmentWrite, Name: "Write Departments", Description: "Create and update departments", Category: CategoryDepartment},
	{Code: PermDepartmentDelete, Name: "Delete Departments", Description: "Remove departments", Category: CategoryDepartment},
	{Code: PermUserRead, Name: "Read Users", Description: "View user accounts", Category: CategoryUser},
	{Code: PermUserWrite, Name: "Write Users", Description: "Create and update user accounts", Category: CategoryUser},
	{Code: PermUserDelete, Name: "Delete Users", Description: "Remove user accounts", Category: CategoryUser},
	{Code: PermSystemAdmin, Name: "System Administration", Description: "Full administrative access", Category: CategorySystem},
	{Code: PermReportsRead, Name: "Read Reports", Description: "View reports", Category: CategoryReporting},
	{Code: PermAuditRead, Name: "Read Audit Log", Description: "View audit entries", Category: CategoryAudit},
}

// RoleDefinition pairs a built-in role with the permission codes it grants.
type RoleDefinition struct {
	Role        Role
	Permissions []string
}

// BuiltinRoles is the role catalog created at bootstrap.
var BuiltinRoles = []RoleDefinition{
	{
		Role:        Role{Code: RoleEmployee, Name: "Employee", Description: "Regular staff member"},
		Permissions: []string{PermEmployeeRead},
	},
	{
		Role:        Role{Code: RoleHRStaff, Name: "HR Staff", Description: "Maintains employee records"},
		Permissions: []string{PermEmployeeRead, PermEmployeeWrite, PermDepartmentRead, PermUserRead},
	},
	{
		Role: Role{Code: RoleHRManager, Name: "HR Manager", Description: "Manages people and departments"},
		Permissions: []string{
			PermEmployeeRead, PermEmployeeWrite, PermEmployeeDelete,
			PermDepartmentRead, PermDepartmentWrite,
			PermUserRead, PermUserWrite,
			PermReportsRead,
		},
	},
	{
		Role:        Role{Code: RoleDeptManager, Name: "Department Manager", Description: "Leads a department"},
		Permissions: []string{PermEmployeeRead, PermDepartmentRead, PermReportsRead},
	},
	{
		Role:        Role{Code: RoleSystemAdmin, Name: "System Administrator", Description: "Unrestricted access"},
		Permissions: allPermissionCodes(),
	},
	{
		Role:        Role{Code: RoleGuest, Name: "Guest", Description: "No granted capabilities"},
		Permissions: []string{},
	},
}

func allPermissionCodes() []string {
	codes := make([]string, 0, len(BuiltinPermissions))
	for _, p := range BuiltinPermissions {
		codes = append(codes, p.Code)
	}
	return codes
}
