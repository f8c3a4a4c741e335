package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Identities(ctx context.Context) IdentityStore
	Catalog(ctx context.Context) CatalogStore
}

// IdentityStore manages identity records. Lookups return ErrNotFound on a miss
// and always load the assigned role together with its permissions.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByUsername(ctx context.Context, username string) (*Identity, error)
	FindByEmployeeRef(ctx context.Context, ref string) (*Identity, error)
	// FindByIdentifier matches username, email or employee reference.
	FindByIdentifier(ctx context.Context, identifier string) (*Identity, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmployeeRef(ctx context.Context, ref string) (bool, error)
	// Create re-checks uniqueness and inserts in one atomic step. Duplicates
	// yield ErrConflict naming the offending field.
	Create(ctx context.Context, identity *Identity) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// CatalogStore manages roles and permissions.
type CatalogStore interface {
	PermissionByCode(ctx context.Context, code string) (*Permission, error)
	RoleByCode(ctx context.Context, code string) (*Role, error)
	// CreatePermission inserts p unless its code exists. The bool reports whether a row was written.
	CreatePermission(ctx context.Context, p *Permission) (bool, error)
	// CreateRole inserts role and binds permissionCodes unless the role code
	// exists. The bool reports whether a row was written.
	CreateRole(ctx context.Context, role *Role, permissionCodes []string) (bool, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListRoles(ctx context.Context) ([]Role, error)
}
