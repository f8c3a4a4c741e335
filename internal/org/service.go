package org

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// DepartmentInput is the writable part of a Department.
type DepartmentInput struct {
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	CostCenter  string           `json:"costCenter"`
	ParentID    string           `json:"parentDepartmentId"`
	ManagerID   string           `json:"managerId"`
	Status      DepartmentStatus `json:"status"`
}

// DesignationInput is the writable part of a Designation.
type DesignationInput struct {
	Title       string            `json:"title"`
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Level       int               `json:"level"`
	Status      DesignationStatus `json:"status"`
}

// EmployeeInput is the writable part of an Employee.
type EmployeeInput struct {
	EmployeeID    string         `json:"employeeId"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	Email         string         `json:"email"`
	DepartmentID  string         `json:"departmentId"`
	DesignationID string         `json:"designationId"`
	ManagerID     string         `json:"managerId"`
	Status        EmployeeStatus `json:"status"`
}

// Service implements department, designation and employee operations and
// enforces hierarchy integrity on every mutation.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("org")}
}

// Rules exposes the hierarchy checks over the service's store.
func (s *Service) Rules() Rules { return NewRules(s.store) }

// Departments -------------------------------------------------------------

func (s *Service) Department(ctx context.Context, id string) (*Department, error) {
	return s.store.Departments(ctx).Find(ctx, id)
}

func (s *Service) RootDepartments(ctx context.Context) ([]Department, error) {
	return s.store.Departments(ctx).Roots(ctx)
}

func (s *Service) SubDepartments(ctx context.Context, parentID string) ([]Department, error) {
	if _, err := s.store.Departments(ctx).Find(ctx, parentID); err != nil {
		return nil, err
	}
	return s.store.Departments(ctx).Children(ctx, parentID)
}

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput) (*Department, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	d := &Department{}
	in.apply(d)
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.checkDepartment(ctx, tx, d); err != nil {
			return err
		}
		return tx.Departments(ctx).Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("department created", zap.String("id", d.ID), zap.String("code", d.Code))
	return d, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, in DepartmentInput) (*Department, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var d *Department
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		if d, err = tx.Departments(ctx).Find(ctx, id); err != nil {
			return err
		}
		in.apply(d)
		if err := s.checkDepartment(ctx, tx, d); err != nil {
			return err
		}
		return tx.Departments(ctx).Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("department updated", zap.String("id", d.ID))
	return d, nil
}

// DeleteDepartment removes a department that has neither employees nor
// sub-departments. Dependents are never cascaded.
func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.Departments(ctx).Find(ctx, id); err != nil {
			return err
		}
		busy, err := NewRules(tx).HasDependents(ctx, id)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("%w: department has employees or sub-departments; reassign them first", ErrConflict)
		}
		return tx.Departments(ctx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("department deleted", zap.String("id", id))
	return nil
}

func (s *Service) checkDepartment(ctx context.Context, tx Store, d *Department) error {
	departments := tx.Departments(ctx)
	field, err := departments.Conflict(ctx, d)
	if err != nil {
		return err
	}
	if field != "" {
		return fmt.Errorf("%w: department %s already exists", ErrConflict, field)
	}
	if d.ManagerID != "" {
		if _, err := tx.Employees(ctx).Find(ctx, d.ManagerID); err != nil {
			return notFound(err, "manager", d.ManagerID)
		}
	}
	if d.ParentID == "" {
		return nil
	}
	if d.ParentID == d.ID {
		return errCycle
	}
	if _, err := departments.Find(ctx, d.ParentID); err != nil {
		return notFound(err, "parent department", d.ParentID)
	}
	if d.ID == "" {
		return nil
	}
	cycle, err := NewRules(tx).WouldCreateDepartmentCycle(ctx, d.ParentID, d.ID)
	if err != nil {
		return err
	}
	if cycle {
		return errCycle
	}
	return nil
}

func (in *DepartmentInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.ParentID = strings.TrimSpace(in.ParentID)
	in.ManagerID = strings.TrimSpace(in.ManagerID)
	if in.Name == "" || in.Code == "" {
		return fmt.Errorf("%w: department name and code are required", ErrInvalidInput)
	}
	switch in.Status {
	case "":
		in.Status = DepartmentActive
	case DepartmentActive, DepartmentInactive, DepartmentRestructuring:
	default:
		return fmt.Errorf("%w: unknown department status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

func (in DepartmentInput) apply(d *Department) {
	d.Name = in.Name
	d.Code = in.Code
	d.Description = in.Description
	d.Location = in.Location
	d.CostCenter = in.CostCenter
	d.ParentID = in.ParentID
	d.ManagerID = in.ManagerID
	d.Status = in.Status
}

// Designations ------------------------------------------------------------

func (s *Service) Designation(ctx context.Context, id string) (*Designation, error) {
	return s.store.Designations(ctx).Find(ctx, id)
}

func (s *Service) CreateDesignation(ctx context.Context, in DesignationInput) (*Designation, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if in.Title == "" || in.Code == "" {
		return nil, fmt.Errorf("%w: designation title and code are required", ErrInvalidInput)
	}
	switch in.Status {
	case "":
		in.Status = DesignationActive
	case DesignationActive, DesignationInactive, DesignationDeprecated:
	default:
		return nil, fmt.Errorf("%w: unknown designation status %q", ErrInvalidInput, in.Status)
	}
	d := &Designation{Title: in.Title, Code: in.Code, Description: in.Description, Level: in.Level, Status: in.Status}
	err := s.store.InTx(ctx, func(tx Store) error {
		field, err := tx.Designations(ctx).Conflict(ctx, d)
		if err != nil {
			return err
		}
		if field != "" {
			return fmt.Errorf("%w: designation %s already exists", ErrConflict, field)
		}
		return tx.Designations(ctx).Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("designation created", zap.String("id", d.ID), zap.String("code", d.Code))
	return d, nil
}

// Employees ---------------------------------------------------------------

func (s *Service) Employee(ctx context.Context, id string) (*Employee, error) {
	return s.store.Employees(ctx).Find(ctx, id)
}

func (s *Service) DirectReports(ctx context.Context, managerID string) ([]Employee, error) {
	if _, err := s.store.Employees(ctx).Find(ctx, managerID); err != nil {
		return nil, err
	}
	return s.store.Employees(ctx).Reports(ctx, managerID)
}

func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (*Employee, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	e := &Employee{}
	in.apply(e)
	err := s.store.InTx(ctx, func(tx Store) error {
		if err := s.checkEmployee(ctx, tx, e); err != nil {
			return err
		}
		return tx.Employees(ctx).Create(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee created", zap.String("id", e.ID), zap.String("employee_id", e.EmployeeID))
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, id string, in EmployeeInput) (*Employee, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var e *Employee
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		if e, err = tx.Employees(ctx).Find(ctx, id); err != nil {
			return err
		}
		in.apply(e)
		if err := s.checkEmployee(ctx, tx, e); err != nil {
			return err
		}
		return tx.Employees(ctx).Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee updated", zap.String("id", e.ID))
	return e, nil
}

// DeleteEmployee removes an employee that neither manages others nor heads a department.
func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := tx.Employees(ctx).Find(ctx, id); err != nil {
			return err
		}
		reports, err := tx.Employees(ctx).CountReports(ctx, id)
		if err != nil {
			return err
		}
		if reports > 0 {
			return fmt.Errorf("%w: employee still manages %d employees; reassign them first", ErrConflict, reports)
		}
		headed, err := tx.Departments(ctx).CountManagedBy(ctx, id)
		if err != nil {
			return err
		}
		if headed > 0 {
			return fmt.Errorf("%w: employee still manages %d departments; reassign them first", ErrConflict, headed)
		}
		return tx.Employees(ctx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("employee deleted", zap.String("id", id))
	return nil
}

func (s *Service) checkEmployee(ctx context.Context, tx Store, e *Employee) error {
	employees := tx.Employees(ctx)
	field, err := employees.Conflict(ctx, e)
	if err != nil {
		return err
	}
	if field != "" {
		return fmt.Errorf("%w: employee %s already exists", ErrConflict, field)
	}
	if _, err := tx.Departments(ctx).Find(ctx, e.DepartmentID); err != nil {
		return notFound(err, "department", e.DepartmentID)
	}
	if _, err := tx.Designations(ctx).Find(ctx, e.DesignationID); err != nil {
		return notFound(err, "designation", e.DesignationID)
	}
	if e.ManagerID == "" {
		return nil
	}
	if e.ManagerID == e.ID {
		return errCycle
	}
	if _, err := employees.Find(ctx, e.ManagerID); err != nil {
		return notFound(err, "manager", e.ManagerID)
	}
	if e.ID == "" {
		return nil
	}
	cycle, err := NewRules(tx).WouldCreateManagerCycle(ctx, e.ManagerID, e.ID)
	if err != nil {
		return err
	}
	if cycle {
		return errCycle
	}
	return nil
}

func (in *EmployeeInput) normalize() error {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DepartmentID = strings.TrimSpace(in.DepartmentID)
	in.DesignationID = strings.TrimSpace(in.DesignationID)
	in.ManagerID = strings.TrimSpace(in.ManagerID)
	switch {
	case in.EmployeeID == "":
		return fmt.Errorf("%w: employeeId is required", ErrInvalidInput)
	case in.FirstName == "" || in.LastName == "":
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	case in.DepartmentID == "" || in.DesignationID == "":
		return fmt.Errorf("%w: department and designation are required", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	switch in.Status {
	case "":
		in.Status = EmployeeActive
	case EmployeeActive, EmployeeInactive, EmployeeTerminated, EmployeeOnLeave:
	default:
		return fmt.Errorf("%w: unknown employee status %q", ErrInvalidInput, in.Status)
	}
	return nil
}

func (in EmployeeInput) apply(e *Employee) {
	e.EmployeeID = in.EmployeeID
	e.FirstName = in.FirstName
	e.LastName = in.LastName
	e.Email = in.Email
	e.DepartmentID = in.DepartmentID
	e.DesignationID = in.DesignationID
	e.ManagerID = in.ManagerID
	e.Status = in.Status
}

func notFound(err error, what, id string) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}
