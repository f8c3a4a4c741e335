package org

import "context"

// Store describes persistence for organization records.
type Store interface {
	Departments(ctx context.Context) DepartmentStore
	Designations(ctx context.Context) DesignationStore
	Employees(ctx context.Context) EmployeeStore
	// InTx runs fn against a store view whose reads and writes commit together.
	InTx(ctx context.Context, fn func(Store) error) error
}

type DepartmentStore interface {
	Find(ctx context.Context, id string) (*Department, error)
	Roots(ctx context.Context) ([]Department, error)
	Children(ctx context.Context, parentID string) ([]Department, error)
	// ParentOf returns the parent id, or "" for a root.
	ParentOf(ctx context.Context, id string) (string, error)
	Count(ctx context.Context) (int, error)
	CountChildren(ctx context.Context, id string) (int, error)
	CountManagedBy(ctx context.Context, employeeID string) (int, error)
	// Conflict names the first unique field d collides with, ignoring d itself.
	Conflict(ctx context.Context, d *Department) (string, error)
	Create(ctx context.Context, d *Department) error
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
}

type DesignationStore interface {
	Find(ctx context.Context, id string) (*Designation, error)
	Conflict(ctx context.Context, d *Designation) (string, error)
	Create(ctx context.Context, d *Designation) error
}

type EmployeeStore interface {
	Find(ctx context.Context, id string) (*Employee, error)
	Reports(ctx context.Context, managerID string) ([]Employee, error)
	// ManagerOf returns the manager id, or "" when the employee has none.
	ManagerOf(ctx context.Context, id string) (string, error)
	Count(ctx context.Context) (int, error)
	CountByDepartment(ctx context.Context, departmentID string) (int, error)
	CountReports(ctx context.Context, managerID string) (int, error)
	Conflict(ctx context.Context, e *Employee) (string, error)
	Create(ctx context.Context, e *Employee) error
	Update(ctx context.Context, e *Employee) error
	Delete(ctx context.Context, id string) error
}
