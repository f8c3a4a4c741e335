package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"orgadmin.io/internal/ids"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Identities(context.Context) IdentityStore { return &identityStore{db: s.db} }
func (s *PGStore) Catalog(context.Context) CatalogStore     { return &catalogStore{db: s.db} }

// Identity store -----------------------------------------------------------
type identityStore struct{ db *sql.DB }

const identitySelect = `
	select u.id, u.username, u.email, u.password_hash, u.employee_ref, u.department, u.status,
	       u.created_at, u.updated_at, u.last_login_at,
	       r.id, r.code, r.name, r.description, r.created_at, r.updated_at
	from users u
	join roles r on r.id = u.role_id
`

func (s *identityStore) findOne(ctx context.Context, where string, args ...any) (*Identity, error) {
	var (
		identity  Identity
		role      Role
		ref       sql.NullString
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, identitySelect+where+" limit 1", args...).Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash, &ref, &identity.Department, &identity.Status,
		&identity.CreatedAt, &identity.UpdatedAt, &lastLogin,
		&role.ID, &role.Code, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	identity.EmployeeRef = ref.String
	if lastLogin.Valid {
		at := lastLogin.Time
		identity.LastLoginAt = &at
	}
	perms, err := permissionsForRole(ctx, s.db, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	identity.Role = &role
	return &identity, nil
}

func (s *identityStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	return s.findOne(ctx, `where u.id = $1`, id)
}

func (s *identityStore) FindByUsername(ctx context.Context, username string) (*Identity, error) {
	return s.findOne(ctx, `where u.username = $1`, username)
}

func (s *identityStore) FindByEmployeeRef(ctx context.Context, ref string) (*Identity, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, `where u.employee_ref = $1`, ref)
}

func (s *identityStore) FindByIdentifier(ctx context.Context, identifier string) (*Identity, error) {
	if identifier == "" {
		return nil, ErrNotFound
	}
	// Fields can collide across identities; username wins over email over employee ref.
	return s.findOne(ctx, `
		where u.username = $1 or u.email = lower($1) or u.employee_ref = $1
		order by case when u.username = $1 then 0 when u.email = lower($1) then 1 else 2 end`, identifier)
}

func (s *identityStore) exists(ctx context.Context, column, value string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from users where `+column+` = $1)`, value).Scan(&ok)
	return ok, err
}

func (s *identityStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username", username)
}

func (s *identityStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email", email)
}

func (s *identityStore) ExistsByEmployeeRef(ctx context.Context, ref string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	return s.exists(ctx, "employee_ref", ref)
}

func (s *identityStore) Create(ctx context.Context, identity *Identity) error {
	if identity == nil || identity.Role == nil {
		return fmt.Errorf("%w: identity requires a role", ErrInvalidInput)
	}
	if identity.ID == "" {
		identity.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var dupUsername, dupEmail, dupRef bool
	if err := tx.QueryRowContext(ctx, `
		select exists(select 1 from users where username = $1),
		       exists(select 1 from users where email = $2),
		       exists(select 1 from users where employee_ref = $3)
	`, identity.Username, identity.Email, nullIfEmpty(identity.EmployeeRef)).Scan(&dupUsername, &dupEmail, &dupRef); err != nil {
		return err
	}
	switch {
	case dupUsername:
		return conflict("username")
	case dupEmail:
		return conflict("email")
	case dupRef:
		return conflict("employee reference")
	}

	err = tx.QueryRowContext(ctx, `
		insert into users (id, username, email, password_hash, employee_ref, department, status, role_id)
		select $1, $2, $3, $4, $5, $6, $7, r.id from roles r where r.code = $8
		returning created_at, updated_at
	`, identity.ID, identity.Username, identity.Email, identity.PasswordHash,
		nullIfEmpty(identity.EmployeeRef), identity.Department, string(identity.Status), identity.Role.Code,
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: role %s", ErrNotFound, identity.Role.Code)
	}
	if err != nil {
		return mapPgError(err)
	}
	return tx.Commit()
}

func (s *identityStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at = $2, updated_at = $2 where id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *identityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// Catalog store ------------------------------------------------------------
type catalogStore struct{ db *sql.DB }

func (s *catalogStore) PermissionByCode(ctx context.Context, code string) (*Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx, `
		select id, code, name, description, category, created_at, updated_at
		from permissions where code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogStore) RoleByCode(ctx context.Context, code string) (*Role, error) {
	var r Role
	err := s.db.QueryRowContext(ctx, `
		select id, code, name, description, created_at, updated_at
		from roles where code = $1
	`, code).Scan(&r.ID, &r.Code, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.Permissions, err = permissionsForRole(ctx, s.db, r.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *catalogStore) CreatePermission(ctx context.Context, p *Permission) (bool, error) {
	if p.ID == "" {
		p.ID = ids.New()
	}
	res, err := s.db.ExecContext(ctx, `
		insert into permissions (id, code, name, description, category)
		values ($1, $2, $3, $4, $5)
		on conflict (code) do nothing
	`, p.ID, p.Code, p.Name, p.Description, string(p.Category))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *catalogStore) CreateRole(ctx context.Context, role *Role, permissionCodes []string) (bool, error) {
	if role.ID == "" {
		role.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		insert into roles (id, code, name, description)
		values ($1, $2, $3, $4)
		on conflict (code) do nothing
	`, role.ID, role.Code, role.Name, role.Description)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, nil
	}

	for _, code := range permissionCodes {
		res, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			select $1, p.id from permissions p where p.code = $2
		`, role.ID, code)
		if err != nil {
			return false, mapPgError(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return false, err
		} else if n == 0 {
			return false, fmt.Errorf("%w: permission %s", ErrNotFound, code)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *catalogStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, code, name, description, category, created_at, updated_at
		from permissions order by code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func (s *catalogStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, code, name, description, created_at, updated_at
		from roles order by code
	`)
	if err != nil {
		return nil, err
	}
	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range roles {
		if roles[i].Permissions, err = permissionsForRole(ctx, s.db, roles[i].ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// helpers ------------------------------------------------------------------

func permissionsForRole(ctx context.Context, db *sql.DB, roleID string) ([]Permission, error) {
	rows, err := db.QueryContext(ctx, `
		select p.id, p.code, p.name, p.description, p.category, p.created_at, p.updated_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.code
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

func scanPermissions(rows *sql.Rows) ([]Permission, error) {
	perms := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapPgError translates constraint violations into package sentinels.
func mapPgError(err error) error {
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		switch {
		case strings.Contains(pgErr.ConstraintName, "username"):
			return conflict("username")
		case strings.Contains(pgErr.ConstraintName, "email"):
			return conflict("email")
		case strings.Contains(pgErr.ConstraintName, "employee_ref"):
			return conflict("employee reference")
		}
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
