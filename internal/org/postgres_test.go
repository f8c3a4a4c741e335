package org

import (
	"context"
	"errors"
	"testing"

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

func TestPGDeleteDepartmentWithDependentsRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("from departments where id = \\$1").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "code", "description", "location", "cost_center", "parent_id", "manager_id", "status", "created_at", "updated_at",
		}).AddRow("d1", "Ops", "OPS", "", "", "", nil, nil, "ACTIVE", testTime, testTime))
	mock.ExpectQuery("select count\\(\\*\\) from employees where department_id").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	if err := svc.DeleteDepartment(ctx, "d1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGDeleteEmptyDepartmentCommits(t *testing.T) {
	store, mock := newMockStore(t)
	svc := NewService(store, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("from departments where id = \\$1").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "code", "description", "location", "cost_center", "parent_id", "manager_id", "status", "created_at", "updated_at",
		}).AddRow("d1", "Ops", "OPS", "", "", "", nil, nil, "ACTIVE", testTime, testTime))
	mock.ExpectQuery("select count\\(\\*\\) from employees where department_id").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("select count\\(\\*\\) from departments where parent_id").WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("delete from departments where id").WithArgs("d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.DeleteDepartment(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDepartment: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGConflictField(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select exists").WithArgs("Ops", "OPS", "").
		WillReturnRows(sqlmock.NewRows([]string{"name", "code"}).AddRow(false, true))

	field, err := store.Departments(ctx).Conflict(ctx, &Department{Name: "Ops", Code: "OPS"})
	if err != nil {
		t.Fatalf("Conflict: %v", err)
	}
	if field != "code" {
		t.Fatalf("expected code conflict, got %q", field)
	}
}

func TestPGParentOf(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select parent_id from departments").WithArgs("c").
		WillReturnRows(sqlmock.NewRows([]string{"parent_id"}).AddRow("b"))
	mock.ExpectQuery("select parent_id from departments").WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"parent_id"}).AddRow(nil))

	if parent, err := store.Departments(ctx).ParentOf(ctx, "c"); err != nil || parent != "b" {
		t.Fatalf("ParentOf(c) = %q, %v", parent, err)
	}
	if parent, err := store.Departments(ctx).ParentOf(ctx, "a"); err != nil || parent != "" {
		t.Fatalf("ParentOf(a) = %q, %v", parent, err)
	}
}

func TestPGCreateEmployeeMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("insert into employees").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "employees_email_key"})

	err := store.Employees(ctx).Create(ctx, &Employee{EmployeeID: "E1", Email: "e1@example.com", Status: EmployeeActive})
	if !errors.Is(err, ErrConflict) || err.Error() != "conflict: employees_email" {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPGDeleteReferencedEmployeeIsConflict(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("delete from employees").WithArgs("e1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, TableName: "departments"})

	if err := store.Employees(ctx).Delete(ctx, "e1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
