package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"orgadmin.io/internal/ids"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var _ Store = (*PGStore)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
	q  querier
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, q: db}
}

func (s *PGStore) Departments(context.Context) DepartmentStore   { return &departmentStore{q: s.q} }
func (s *PGStore) Designations(context.Context) DesignationStore { return &designationStore{q: s.q} }
func (s *PGStore) Employees(context.Context) EmployeeStore       { return &employeeStore{q: s.q} }

// InTx runs fn in a serializable transaction so concurrent hierarchy edits
// cannot jointly close a cycle. Nested calls reuse the open transaction.
func (s *PGStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(&PGStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Department store ---------------------------------------------------------
type departmentStore struct{ q querier }

const departmentColumns = `id, name, code, description, location, cost_center, parent_id, manager_id, status, created_at, updated_at`

func scanDepartment(row interface{ Scan(...any) error }) (Department, error) {
	var (
		d                 Department
		parent, manager   sql.NullString
		description, loc  string
		costCenter, state string
	)
	err := row.Scan(&d.ID, &d.Name, &d.Code, &description, &loc, &costCenter, &parent, &manager, &state, &d.CreatedAt, &d.UpdatedAt)
	d.Description, d.Location, d.CostCenter = description, loc, costCenter
	d.ParentID, d.ManagerID = parent.String, manager.String
	d.Status = DepartmentStatus(state)
	return d, err
}

func (s *departmentStore) Find(ctx context.Context, id string) (*Department, error) {
	d, err := scanDepartment(s.q.QueryRowContext(ctx, `select `+departmentColumns+` from departments where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *departmentStore) list(ctx context.Context, where string, args ...any) ([]Department, error) {
	rows, err := s.q.QueryContext(ctx, `select `+departmentColumns+` from departments `+where+` order by name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *departmentStore) Roots(ctx context.Context) ([]Department, error) {
	return s.list(ctx, `where parent_id is null`)
}

func (s *departmentStore) Children(ctx context.Context, parentID string) ([]Department, error) {
	return s.list(ctx, `where parent_id = $1`, parentID)
}

func (s *departmentStore) ParentOf(ctx context.Context, id string) (string, error) {
	var parent sql.NullString
	err := s.q.QueryRowContext(ctx, `select parent_id from departments where id = $1`, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return parent.String, err
}

func (s *departmentStore) Count(ctx context.Context) (int, error) {
	return count(ctx, s.q, `select count(*) from departments`)
}

func (s *departmentStore) CountChildren(ctx context.Context, id string) (int, error) {
	return count(ctx, s.q, `select count(*) from departments where parent_id = $1`, id)
}

func (s *departmentStore) CountManagedBy(ctx context.Context, employeeID string) (int, error) {
	return count(ctx, s.q, `select count(*) from departments where manager_id = $1`, employeeID)
}

func (s *departmentStore) Conflict(ctx context.Context, d *Department) (string, error) {
	return conflictField(ctx, s.q, `
		select exists(select 1 from departments where name = $1 and id <> $3),
		       exists(select 1 from departments where code = $2 and id <> $3)
	`, []string{"name", "code"}, d.Name, d.Code, d.ID)
}

func (s *departmentStore) Create(ctx context.Context, d *Department) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	err := s.q.QueryRowContext(ctx, `
		insert into departments (id, name, code, description, location, cost_center, parent_id, manager_id, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning created_at, updated_at
	`, d.ID, d.Name, d.Code, d.Description, d.Location, d.CostCenter,
		nullIfEmpty(d.ParentID), nullIfEmpty(d.ManagerID), string(d.Status),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapPgError(err)
}

func (s *departmentStore) Update(ctx context.Context, d *Department) error {
	err := s.q.QueryRowContext(ctx, `
		update departments
		set name = $2, code = $3, description = $4, location = $5, cost_center = $6,
		    parent_id = $7, manager_id = $8, status = $9, updated_at = now()
		where id = $1
		returning updated_at
	`, d.ID, d.Name, d.Code, d.Description, d.Location, d.CostCenter,
		nullIfEmpty(d.ParentID), nullIfEmpty(d.ManagerID), string(d.Status),
	).Scan(&d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return mapPgError(err)
}

func (s *departmentStore) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, s.q, `delete from departments where id = $1`, id)
}

// Designation store --------------------------------------------------------
type designationStore struct{ q querier }

func (s *designationStore) Find(ctx context.Context, id string) (*Designation, error) {
	var (
		d     Designation
		state string
	)
	err := s.q.QueryRowContext(ctx, `
		select id, title, code, description, level, status, created_at, updated_at
		from designations where id = $1
	`, id).Scan(&d.ID, &d.Title, &d.Code, &d.Description, &d.Level, &state, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Status = DesignationStatus(state)
	return &d, nil
}

func (s *designationStore) Conflict(ctx context.Context, d *Designation) (string, error) {
	return conflictField(ctx, s.q, `
		select exists(select 1 from designations where title = $1 and id <> $3),
		       exists(select 1 from designations where code = $2 and id <> $3)
	`, []string{"title", "code"}, d.Title, d.Code, d.ID)
}

func (s *designationStore) Create(ctx context.Context, d *Designation) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	err := s.q.QueryRowContext(ctx, `
		insert into designations (id, title, code, description, level, status)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, d.ID, d.Title, d.Code, d.Description, d.Level, string(d.Status)).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapPgError(err)
}

// Employee store -----------------------------------------------------------
type employeeStore struct{ q querier }

const employeeColumns = `id, employee_ref, first_name, last_name, email, department_id, designation_id, manager_id, status, created_at, updated_at`

func scanEmployee(row interface{ Scan(...any) error }) (Employee, error) {
	var (
		e       Employee
		manager sql.NullString
		state   string
	)
	err := row.Scan(&e.ID, &e.EmployeeID, &e.FirstName, &e.LastName, &e.Email, &e.DepartmentID, &e.DesignationID, &manager, &state, &e.CreatedAt, &e.UpdatedAt)
	e.ManagerID = manager.String
	e.Status = EmployeeStatus(state)
	return e, err
}

func (s *employeeStore) Find(ctx context.Context, id string) (*Employee, error) {
	e, err := scanEmployee(s.q.QueryRowContext(ctx, `select `+employeeColumns+` from employees where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *employeeStore) Reports(ctx context.Context, managerID string) ([]Employee, error) {
	rows, err := s.q.QueryContext(ctx, `select `+employeeColumns+` from employees where manager_id = $1 order by employee_ref`, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *employeeStore) ManagerOf(ctx context.Context, id string) (string, error) {
	var manager sql.NullString
	err := s.q.QueryRowContext(ctx, `select manager_id from employees where id = $1`, id).Scan(&manager)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return manager.String, err
}

func (s *employeeStore) Count(ctx context.Context) (int, error) {
	return count(ctx, s.q, `select count(*) from employees`)
}

func (s *employeeStore) CountByDepartment(ctx context.Context, departmentID string) (int, error) {
	return count(ctx, s.q, `select count(*) from employees where department_id = $1`, departmentID)
}

func (s *employeeStore) CountReports(ctx context.Context, managerID string) (int, error) {
	return count(ctx, s.q, `select count(*) from employees where manager_id = $1`, managerID)
}

func (s *employeeStore) Conflict(ctx context.Context, e *Employee) (string, error) {
	return conflictField(ctx, s.q, `
		select exists(select 1 from employees where employee_ref = $1 and id <> $3),
		       exists(select 1 from employees where email = $2 and id <> $3)
	`, []string{"employeeId", "email"}, e.EmployeeID, e.Email, e.ID)
}

func (s *employeeStore) Create(ctx context.Context, e *Employee) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	err := s.q.QueryRowContext(ctx, `
		insert into employees (id, employee_ref, first_name, last_name, email, department_id, designation_id, manager_id, status)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning created_at, updated_at
	`, e.ID, e.EmployeeID, e.FirstName, e.LastName, e.Email, e.DepartmentID, e.DesignationID,
		nullIfEmpty(e.ManagerID), string(e.Status),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapPgError(err)
}

func (s *employeeStore) Update(ctx context.Context, e *Employee) error {
	err := s.q.QueryRowContext(ctx, `
		update employees
		set employee_ref = $2, first_name = $3, last_name = $4, email = $5, department_id = $6,
		    designation_id = $7, manager_id = $8, status = $9, updated_at = now()
		where id = $1
		returning updated_at
	`, e.ID, e.EmployeeID, e.FirstName, e.LastName, e.Email, e.DepartmentID, e.DesignationID,
		nullIfEmpty(e.ManagerID), string(e.Status),
	).Scan(&e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return mapPgError(err)
}

func (s *employeeStore) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, s.q, `delete from employees where id = $1`, id)
}

// helpers ------------------------------------------------------------------

func count(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// conflictField runs a query selecting one boolean per unique field and
// returns the name of the first one that is taken.
func conflictField(ctx context.Context, q querier, query string, fields []string, args ...any) (string, error) {
	taken := make([]bool, len(fields))
	dest := make([]any, len(fields))
	for i := range taken {
		dest[i] = &taken[i]
	}
	if err := q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return "", err
	}
	for i, t := range taken {
		if t {
			return fields[i], nil
		}
	}
	return "", nil
}

// execDelete runs a delete. A foreign key violation means the row is still
// referenced and is reported as a conflict.
func execDelete(ctx context.Context, q querier, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation {
		return fmt.Errorf("%w: still referenced by %s", ErrConflict, pgErr.TableName)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s", ErrConflict, strings.TrimSuffix(pgErr.ConstraintName, "_key"))
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
