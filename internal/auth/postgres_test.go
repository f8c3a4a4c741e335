package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

var permissionColumns = []string{"id", "code", "name", "description", "category", "created_at", "updated_at"}

func TestPGCreatePermissionOnConflictDoesNothing(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("insert into permissions .* on conflict \\(code\\) do nothing").
		WithArgs(sqlmock.AnyArg(), PermEmployeeRead, "Read Employees", "", string(CategoryEmployee)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := store.Catalog(ctx).CreatePermission(ctx, &Permission{Code: PermEmployeeRead, Name: "Read Employees", Category: CategoryEmployee})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}
	if created {
		t.Fatalf("expected existing permission to be skipped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateRoleBindsPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("insert into roles").WithArgs(sqlmock.AnyArg(), testRoleCode, "Manager", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), PermEmployeeRead).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), PermDepartmentRead).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := store.Catalog(ctx).CreateRole(ctx, &Role{Code: testRoleCode, Name: "Manager"}, []string{PermEmployeeRead, PermDepartmentRead})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if !created {
		t.Fatalf("expected role to be created")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

const testRoleCode = "MANAGER"

func TestPGCreateRoleUnknownPermissionRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("insert into roles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into role_permissions").WithArgs(sqlmock.AnyArg(), "MISSING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := store.Catalog(ctx).CreateRole(ctx, &Role{Code: "BROKEN", Name: "Broken"}, []string{"MISSING"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateIdentityReportsConflictingField(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("select exists").WithArgs("alice", "a@x.com", nil).
		WillReturnRows(sqlmock.NewRows([]string{"u", "e", "r"}).AddRow(false, true, false))
	mock.ExpectRollback()

	err := store.Identities(ctx).Create(ctx, &Identity{
		Username: "alice", Email: "a@x.com", PasswordHash: "h", Status: StatusActive, Role: &Role{Code: RoleEmployee},
	})
	if !errors.Is(err, ErrConflict) || err.Error() != "conflict: email already exists" {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGCreateIdentityMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("select exists").
		WillReturnRows(sqlmock.NewRows([]string{"u", "e", "r"}).AddRow(false, false, false))
	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_username_key"})
	mock.ExpectRollback()

	err := store.Identities(ctx).Create(ctx, &Identity{
		Username: "alice", Email: "a@x.com", PasswordHash: "h", Status: StatusActive, Role: &Role{Code: RoleEmployee},
	})
	if !errors.Is(err, ErrConflict) || err.Error() != "conflict: username already exists" {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByUsernameLoadsRolePermissions(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("select u.id, u.username").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "email", "password_hash", "employee_ref", "department", "status",
			"created_at", "updated_at", "last_login_at",
			"role_id", "role_code", "role_name", "role_description", "role_created_at", "role_updated_at",
		}).AddRow("u1", "alice", "a@x.com", "hash", "EMP-001", "People", "ACTIVE",
			now, now, nil,
			"r1", RoleHRStaff, "HR Staff", "", now, now))
	mock.ExpectQuery("from permissions p").WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(permissionColumns).
			AddRow("p1", PermEmployeeRead, "Read Employees", "", "EMPLOYEE_MANAGEMENT", now, now).
			AddRow("p2", PermEmployeeWrite, "Write Employees", "", "EMPLOYEE_MANAGEMENT", now, now))

	identity, err := store.Identities(ctx).FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if identity.EmployeeRef != "EMP-001" || identity.LastLoginAt != nil {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.RoleCode() != RoleHRStaff || len(identity.Role.Permissions) != 2 {
		t.Fatalf("unexpected role %+v", identity.Role)
	}
	if _, ok := identity.Role.PermissionCodes()[PermEmployeeWrite]; !ok {
		t.Fatalf("expected EMPLOYEE_WRITE in permission set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGFindByIdentifierOrdersByField(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(`or u\.employee_ref = \$1\s+order by case when u\.username = \$1 then 0 when u\.email = lower\(\$1\) then 1 else 2 end limit 1`).
		WithArgs("EMP001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Identities(ctx).FindByIdentifier(ctx, "EMP001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTouchLastLoginMissingIdentity(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("update users set last_login_at").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Identities(ctx).TouchLastLogin(ctx, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
