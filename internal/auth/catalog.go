package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"orgadmin.io/internal/obs"
)

// BootstrapResult counts catalog entries written by a bootstrap run.
type BootstrapResult struct {
	PermissionsCreated int
	RolesCreated       int
}

// Catalog owns the role/permission catalog lifecycle. Init must succeed
// before the process accepts traffic.
type Catalog struct {
	store  CatalogStore
	logger *zap.Logger

	mu    sync.Mutex
	ready bool
}

// NewCatalog returns an uninitialized Catalog backed by store.
func NewCatalog(store CatalogStore, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, logger: logger.Named("catalog")}
}

// Init bootstraps the built-in catalog once. Later calls return nil without
// touching the store; a failed run leaves the catalog not ready.
func (c *Catalog) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	res, err := Bootstrap(ctx, c.store, c.logger)
	if err != nil {
		return fmt.Errorf("catalog bootstrap: %w", err)
	}
	c.ready = true
	obs.SetCatalogReady(true)
	c.logger.Info("catalog ready",
		zap.Int("permissions_created", res.PermissionsCreated),
		zap.Int("roles_created", res.RolesCreated))
	return nil
}

// Ready reports whether Init has completed successfully.
func (c *Catalog) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Close marks the catalog as no longer serving.
func (c *Catalog) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	obs.SetCatalogReady(false)
}

// Role returns the role with code including its permissions.
func (c *Catalog) Role(ctx context.Context, code string) (*Role, error) {
	return c.store.RoleByCode(ctx, code)
}

// Roles lists every role with its permissions.
func (c *Catalog) Roles(ctx context.Context) ([]Role, error) {
	return c.store.ListRoles(ctx)
}

// Permissions lists every permission.
func (c *Catalog) Permissions(ctx context.Context) ([]Permission, error) {
	return c.store.ListPermissions(ctx)
}

// Bootstrap creates every built-in permission and role that is absent. It is
// keyed by code only, so existing rows are never overwritten. The existence
// lookup is a fast path; the store's uniqueness constraint decides races.
func Bootstrap(ctx context.Context, store CatalogStore, logger *zap.Logger) (BootstrapResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res BootstrapResult

	for _, def := range BuiltinPermissions {
		_, err := store.PermissionByCode(ctx, def.Code)
		if err == nil {
			logger.Debug("permission exists", zap.String("code", def.Code))
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("lookup permission %s: %w", def.Code, err)
		}
		p := def
		created, err := store.CreatePermission(ctx, &p)
		if err != nil {
			return res, fmt.Errorf("create permission %s: %w", def.Code, err)
		}
		if created {
			res.PermissionsCreated++
			obs.CatalogCreated.WithLabelValues("permission").Inc()
			logger.Info("permission created", zap.String("code", def.Code))
		}
	}

	for _, def := range BuiltinRoles {
		_, err := store.RoleByCode(ctx, def.Role.Code)
		if err == nil {
			logger.Debug("role exists", zap.String("code", def.Role.Code))
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return res, fmt.Errorf("lookup role %s: %w", def.Role.Code, err)
		}
		role := def.Role
		created, err := store.CreateRole(ctx, &role, def.Permissions)
		if err != nil {
			return res, fmt.Errorf("create role %s: %w", def.Role.Code, err)
		}
		if created {
			res.RolesCreated++
			obs.CatalogCreated.WithLabelValues("role").Inc()
			logger.Info("role created", zap.String("code", def.Role.Code), zap.Int("permissions", len(def.Permissions)))
		}
	}
	return res, nil
}
