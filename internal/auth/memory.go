package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orgadmin.io/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used for local development and tests.
// A single lock makes every check-then-write atomic.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	identities  map[string]*Identity
	permissions map[string]*Permission
	roles       map[string]*Role
	grants      map[string][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		identities:  make(map[string]*Identity),
		permissions: make(map[string]*Permission),
		roles:       make(map[string]*Role),
		grants:      make(map[string][]string),
	}
}

func (s *MemoryStore) Identities(context.Context) IdentityStore { return memIdentities{s} }
func (s *MemoryStore) Catalog(context.Context) CatalogStore     { return memCatalog{s} }

// Counts returns the number of identities, permissions and roles held.
func (s *MemoryStore) Counts() (identities, permissions, roles int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities), len(s.permissions), len(s.roles)
}

// roleLocked assembles a detached copy of the role with its permissions.
func (s *MemoryStore) roleLocked(code string) (*Role, bool) {
	r, ok := s.roles[code]
	if !ok {
		return nil, false
	}
	out := *r
	out.Permissions = make([]Permission, 0, len(s.grants[code]))
	for _, pc := range s.grants[code] {
		if p, ok := s.permissions[pc]; ok {
			out.Permissions = append(out.Permissions, *p)
		}
	}
	return &out, true
}

func (s *MemoryStore) identityLocked(match func(*Identity) bool) (*Identity, error) {
	for _, identity := range s.identities {
		if !match(identity) {
			continue
		}
		out := *identity
		if identity.Role != nil {
			role, ok := s.roleLocked(identity.Role.Code)
			if !ok {
				return nil, fmt.Errorf("%w: role %s", ErrNotFound, identity.Role.Code)
			}
			out.Role = role
		}
		if identity.LastLoginAt != nil {
			at := *identity.LastLoginAt
			out.LastLoginAt = &at
		}
		return &out, nil
	}
	return nil, ErrNotFound
}

type memIdentities struct{ s *MemoryStore }

func (m memIdentities) find(match func(*Identity) bool) (*Identity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.identityLocked(match)
}

func (m memIdentities) FindByID(_ context.Context, id string) (*Identity, error) {
	return m.find(func(i *Identity) bool { return i.ID == id })
}

func (m memIdentities) FindByUsername(_ context.Context, username string) (*Identity, error) {
	return m.find(func(i *Identity) bool { return i.Username == username })
}

func (m memIdentities) FindByEmployeeRef(_ context.Context, ref string) (*Identity, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	return m.find(func(i *Identity) bool { return i.EmployeeRef == ref })
}

func (m memIdentities) FindByIdentifier(_ context.Context, identifier string) (*Identity, error) {
	if identifier == "" {
		return nil, ErrNotFound
	}
	email := strings.ToLower(identifier)
	rank := func(i *Identity) int {
		switch {
		case i.Username == identifier:
			return 0
		case i.Email == email:
			return 1
		case i.EmployeeRef != "" && i.EmployeeRef == identifier:
			return 2
		}
		return -1
	}

	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var best *Identity
	bestRank := 3
	for _, i := range m.s.identities {
		if r := rank(i); r >= 0 && r < bestRank {
			best, bestRank = i, r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return m.s.identityLocked(func(i *Identity) bool { return i == best })
}

func (m memIdentities) exists(match func(*Identity) bool) bool {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, i := range m.s.identities {
		if match(i) {
			return true
		}
	}
	return false
}

func (m memIdentities) ExistsByUsername(_ context.Context, username string) (bool, error) {
	return m.exists(func(i *Identity) bool { return i.Username == username }), nil
}

func (m memIdentities) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return m.exists(func(i *Identity) bool { return i.Email == email }), nil
}

func (m memIdentities) ExistsByEmployeeRef(_ context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	return m.exists(func(i *Identity) bool { return i.EmployeeRef == ref }), nil
}

func (m memIdentities) Create(_ context.Context, identity *Identity) error {
	if identity == nil || identity.Role == nil {
		return fmt.Errorf("%w: identity requires a role", ErrInvalidInput)
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[identity.Role.Code]; !ok {
		return fmt.Errorf("%w: role %s", ErrNotFound, identity.Role.Code)
	}
	for _, existing := range m.s.identities {
		switch {
		case existing.Username == identity.Username:
			return conflict("username")
		case existing.Email == identity.Email:
			return conflict("email")
		case identity.EmployeeRef != "" && existing.EmployeeRef == identity.EmployeeRef:
			return conflict("employee reference")
		}
	}
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	now := m.s.now().UTC()
	identity.CreatedAt, identity.UpdatedAt = now, now
	stored := *identity
	stored.Role = &Role{Code: identity.Role.Code}
	m.s.identities[stored.ID] = &stored
	return nil
}

func (m memIdentities) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	identity, ok := m.s.identities[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	identity.LastLoginAt = &at
	identity.UpdatedAt = at
	return nil
}

func (m memIdentities) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.identities[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.identities, id)
	return nil
}

type memCatalog struct{ s *MemoryStore }

func (m memCatalog) PermissionByCode(_ context.Context, code string) (*Permission, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	p, ok := m.s.permissions[code]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m memCatalog) RoleByCode(_ context.Context, code string) (*Role, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	role, ok := m.s.roleLocked(code)
	if !ok {
		return nil, ErrNotFound
	}
	return role, nil
}

func (m memCatalog) CreatePermission(_ context.Context, p *Permission) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.permissions[p.Code]; ok {
		return false, nil
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := m.s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	m.s.permissions[p.Code] = &stored
	return true, nil
}

func (m memCatalog) CreateRole(_ context.Context, role *Role, permissionCodes []string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.roles[role.Code]; ok {
		return false, nil
	}
	for _, code := range permissionCodes {
		if _, ok := m.s.permissions[code]; !ok {
			return false, fmt.Errorf("%w: permission %s", ErrNotFound, code)
		}
	}
	if role.ID == "" {
		role.ID = ids.New()
	}
	now := m.s.now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	stored := *role
	stored.Permissions = nil
	m.s.roles[role.Code] = &stored
	m.s.grants[role.Code] = append([]string(nil), permissionCodes...)
	return true, nil
}

func (m memCatalog) ListPermissions(context.Context) ([]Permission, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]Permission, 0, len(m.s.permissions))
	for _, p := range m.s.permissions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m memCatalog) ListRoles(context.Context) ([]Role, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make([]Role, 0, len(m.s.roles))
	for code := range m.s.roles {
		role, _ := m.s.roleLocked(code)
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
