package org

import (
	"context"
	"errors"
	"fmt"
)

var errCycle = fmt.Errorf("%w: hierarchy would contain a cycle", ErrConflict)

// Rules holds the hierarchy integrity checks for departments and employees.
type Rules struct {
	store Store
}

func NewRules(store Store) Rules {
	return Rules{store: store}
}

// WouldCreateDepartmentCycle reports whether making candidateParentID the
// parent of departmentID would close a loop.
func (r Rules) WouldCreateDepartmentCycle(ctx context.Context, candidateParentID, departmentID string) (bool, error) {
	departments := r.store.Departments(ctx)
	limit, err := departments.Count(ctx)
	if err != nil {
		return false, err
	}
	return WouldCreateCycle(ctx, candidateParentID, departmentID, limit, departments.ParentOf)
}

// WouldCreateManagerCycle reports whether making candidateManagerID the
// manager of employeeID would close a loop.
func (r Rules) WouldCreateManagerCycle(ctx context.Context, candidateManagerID, employeeID string) (bool, error) {
	employees := r.store.Employees(ctx)
	limit, err := employees.Count(ctx)
	if err != nil {
		return false, err
	}
	return WouldCreateCycle(ctx, candidateManagerID, employeeID, limit, employees.ManagerOf)
}

// HasDependents reports whether the department still has employees or
// sub-departments.
func (r Rules) HasDependents(ctx context.Context, departmentID string) (bool, error) {
	employees, err := r.store.Employees(ctx).CountByDepartment(ctx, departmentID)
	if err != nil {
		return false, err
	}
	if employees > 0 {
		return true, nil
	}
	children, err := r.store.Departments(ctx).CountChildren(ctx, departmentID)
	if err != nil {
		return false, err
	}
	return children > 0, nil
}

// WouldCreateCycle walks the ancestor chain starting at candidate using
// parentOf and reports whether subject appears in it. The walk stops after
// limit+1 steps; a longer chain is already corrupt and counts as a cycle.
func WouldCreateCycle(ctx context.Context, candidate, subject string, limit int, parentOf func(context.Context, string) (string, error)) (bool, error) {
	if candidate == "" || subject == "" {
		return false, nil
	}
	cur := candidate
	for steps := 0; cur != ""; steps++ {
		if cur == subject {
			return true, nil
		}
		if steps > limit {
			return true, nil
		}
		next, err := parentOf(ctx, cur)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		cur = next
	}
	return false, nil
}
