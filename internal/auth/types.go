package auth

import "time"

// Status is the lifecycle state of an Identity.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusPending   Status = "PENDING_VERIFICATION"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusPending:
		return true
	}
	return false
}

// Category groups permissions by the area of the system they gate.
type Category string

const (
	CategoryEmployee   Category = "EMPLOYEE_MANAGEMENT"
	CategoryDepartment Category = "DEPARTMENT_MANAGEMENT"
	CategoryUser       Category = "USER_MANAGEMENT"
	CategorySystem     Category = "SYSTEM_ADMINISTRATION"
	CategoryReporting  Category = "REPORTING"
	CategoryAudit      Category = "AUDIT"
)

// Permission is an atomic, coded capability. Code is globally unique.
type Permission struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Role is a named bundle of permissions. Code is unique and never changes
// once the catalog created it.
type Role struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// PermissionCodes returns the set of permission codes granted by the role.
func (r *Role) PermissionCodes() map[string]struct{} {
	if r == nil {
		return nil
	}
	set := make(map[string]struct{}, len(r.Permissions))
	for _, p := range r.Permissions {
		set[p.Code] = struct{}{}
	}
	return set
}

// Identity is an authenticable account, optionally linked to an employee record.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	EmployeeRef  string
	Department   string
	Role         *Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// RoleCode returns the code of the assigned role or "" when none is loaded.
func (i *Identity) RoleCode() string {
	if i == nil || i.Role == nil {
		return ""
	}
	return i.Role.Code
}

// Principal is the result of resolving a bearer token for one request.
type Principal struct {
	Identity      *Identity
	Authenticated bool
}

// Username returns the subject of the principal, or "" when absent.
func (p *Principal) Username() string {
	if p == nil || p.Identity == nil {
		return ""
	}
	return p.Identity.Username
}
