package org

import (
	"context"
	"errors"
	"testing"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, nil), store
}

func mustDepartment(t *testing.T, svc *Service, name, parentID string) *Department {
	t.Helper()
	d, err := svc.CreateDepartment(context.Background(), DepartmentInput{Name: name, Code: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("CreateDepartment(%s): %v", name, err)
	}
	return d
}

func mustEmployee(t *testing.T, svc *Service, ref, departmentID, designationID, managerID string) *Employee {
	t.Helper()
	e, err := svc.CreateEmployee(context.Background(), EmployeeInput{
		EmployeeID:    ref,
		FirstName:     "First",
		LastName:      ref,
		Email:         ref + "@example.com",
		DepartmentID:  departmentID,
		DesignationID: designationID,
		ManagerID:     managerID,
	})
	if err != nil {
		t.Fatalf("CreateEmployee(%s): %v", ref, err)
	}
	return e
}

func mustDesignation(t *testing.T, svc *Service) *Designation {
	t.Helper()
	d, err := svc.CreateDesignation(context.Background(), DesignationInput{Title: "Engineer", Code: "ENG", Level: 2})
	if err != nil {
		t.Fatalf("CreateDesignation: %v", err)
	}
	return d
}

func TestDepartmentCycleRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := mustDepartment(t, svc, "A", "")
	b := mustDepartment(t, svc, "B", a.ID)
	c := mustDepartment(t, svc, "C", b.ID)

	_, err := svc.UpdateDepartment(ctx, a.ID, DepartmentInput{Name: "A", Code: "A", ParentID: c.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected cycle conflict, got %v", err)
	}
	_, err = svc.UpdateDepartment(ctx, b.ID, DepartmentInput{Name: "B", Code: "B", ParentID: b.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected self-parent conflict, got %v", err)
	}

	got, err := svc.Department(ctx, a.ID)
	if err != nil {
		t.Fatalf("Department: %v", err)
	}
	if got.ParentID != "" {
		t.Fatalf("rejected update leaked parent %q", got.ParentID)
	}

	// moving a leaf under another branch is fine
	if _, err := svc.UpdateDepartment(ctx, c.ID, DepartmentInput{Name: "C", Code: "C", ParentID: a.ID}); err != nil {
		t.Fatalf("UpdateDepartment: %v", err)
	}
	children, err := svc.SubDepartments(ctx, a.ID)
	if err != nil {
		t.Fatalf("SubDepartments: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected two children of A, got %d", len(children))
	}
}

func TestDeleteDepartmentPreconditions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	staffed := mustDepartment(t, svc, "Staffed", "")
	parent := mustDepartment(t, svc, "Parent", "")
	mustDepartment(t, svc, "Child", parent.ID)
	empty := mustDepartment(t, svc, "Empty", "")
	mustEmployee(t, svc, "E1", staffed.ID, mustDesignation(t, svc).ID, "")

	if err := svc.DeleteDepartment(ctx, staffed.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for department with employees, got %v", err)
	}
	if err := svc.DeleteDepartment(ctx, parent.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for department with children, got %v", err)
	}
	if err := svc.DeleteDepartment(ctx, empty.ID); err != nil {
		t.Fatalf("DeleteDepartment(empty): %v", err)
	}
	if _, err := svc.Department(ctx, empty.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted department to be gone, got %v", err)
	}
	if err := svc.DeleteDepartment(ctx, empty.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDepartmentUniqueness(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	mustDepartment(t, svc, "Finance", "")

	_, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "Finance", Code: "FIN2"})
	if !errors.Is(err, ErrConflict) || err.Error() != "conflict: department name already exists" {
		t.Fatalf("expected name conflict, got %v", err)
	}
	_, err = svc.CreateDepartment(ctx, DepartmentInput{Name: "Finance 2", Code: "finance"})
	if !errors.Is(err, ErrConflict) || err.Error() != "conflict: department code already exists" {
		t.Fatalf("expected code conflict, got %v", err)
	}
	_, err = svc.CreateDepartment(ctx, DepartmentInput{Name: "Orphan", Code: "ORP", ParentID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing parent to be ErrNotFound, got %v", err)
	}
}

func TestEmployeeManagerChain(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dept := mustDepartment(t, svc, "Ops", "")
	title := mustDesignation(t, svc)
	boss := mustEmployee(t, svc, "E1", dept.ID, title.ID, "")
	lead := mustEmployee(t, svc, "E2", dept.ID, title.ID, boss.ID)
	dev := mustEmployee(t, svc, "E3", dept.ID, title.ID, lead.ID)

	in := EmployeeInput{
		EmployeeID: boss.EmployeeID, FirstName: boss.FirstName, LastName: boss.LastName, Email: boss.Email,
		DepartmentID: dept.ID, DesignationID: title.ID, ManagerID: dev.ID,
	}
	if _, err := svc.UpdateEmployee(ctx, boss.ID, in); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected manager cycle conflict, got %v", err)
	}

	reports, err := svc.DirectReports(ctx, boss.ID)
	if err != nil {
		t.Fatalf("DirectReports: %v", err)
	}
	if len(reports) != 1 || reports[0].ID != lead.ID {
		t.Fatalf("unexpected reports %+v", reports)
	}

	if err := svc.DeleteEmployee(ctx, lead.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict deleting a manager, got %v", err)
	}
	if err := svc.DeleteEmployee(ctx, dev.ID); err != nil {
		t.Fatalf("DeleteEmployee(leaf): %v", err)
	}
}

func TestEmployeeHeadingDepartmentCannotBeDeleted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dept := mustDepartment(t, svc, "Legal", "")
	head := mustEmployee(t, svc, "E9", dept.ID, mustDesignation(t, svc).ID, "")
	if _, err := svc.UpdateDepartment(ctx, dept.ID, DepartmentInput{Name: "Legal", Code: "LEGAL", ManagerID: head.ID}); err != nil {
		t.Fatalf("UpdateDepartment: %v", err)
	}
	if err := svc.DeleteEmployee(ctx, head.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict deleting a department head, got %v", err)
	}
}

func TestEmployeeReferencesAndUniqueness(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dept := mustDepartment(t, svc, "Sales", "")
	title := mustDesignation(t, svc)
	mustEmployee(t, svc, "E1", dept.ID, title.ID, "")

	cases := map[string]struct {
		in   EmployeeInput
		want error
	}{
		"duplicate employeeId": {EmployeeInput{EmployeeID: "E1", FirstName: "a", LastName: "b", Email: "new@example.com", DepartmentID: dept.ID, DesignationID: title.ID}, ErrConflict},
		"duplicate email":      {EmployeeInput{EmployeeID: "E2", FirstName: "a", LastName: "b", Email: "E1@example.com", DepartmentID: dept.ID, DesignationID: title.ID}, ErrConflict},
		"missing department":   {EmployeeInput{EmployeeID: "E3", FirstName: "a", LastName: "b", Email: "e3@example.com", DepartmentID: "nope", DesignationID: title.ID}, ErrNotFound},
		"missing designation":  {EmployeeInput{EmployeeID: "E4", FirstName: "a", LastName: "b", Email: "e4@example.com", DepartmentID: dept.ID, DesignationID: "nope"}, ErrNotFound},
		"missing manager":      {EmployeeInput{EmployeeID: "E5", FirstName: "a", LastName: "b", Email: "e5@example.com", DepartmentID: dept.ID, DesignationID: title.ID, ManagerID: "nope"}, ErrNotFound},
		"bad email":            {EmployeeInput{EmployeeID: "E6", FirstName: "a", LastName: "b", Email: "nope", DepartmentID: dept.ID, DesignationID: title.ID}, ErrInvalidInput},
	}
	for name, tc := range cases {
		if _, err := svc.CreateEmployee(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
	}
}
