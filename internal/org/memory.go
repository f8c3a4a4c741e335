package org

import (
	"context"
	"sort"
	"sync"
	"time"

	"orgadmin.io/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps organization records in process memory. InTx serializes
// mutations so check-then-write sequences are atomic.
type MemoryStore struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	now          func() time.Time
	departments  map[string]Department
	designations map[string]Designation
	employees    map[string]Employee
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          time.Now,
		departments:  make(map[string]Department),
		designations: make(map[string]Designation),
		employees:    make(map[string]Employee),
	}
}

func (s *MemoryStore) Departments(context.Context) DepartmentStore   { return memDepartments{s} }
func (s *MemoryStore) Designations(context.Context) DesignationStore { return memDesignations{s} }
func (s *MemoryStore) Employees(context.Context) EmployeeStore       { return memEmployees{s} }

func (s *MemoryStore) InTx(_ context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *MemoryStore) stamp() time.Time { return s.now().UTC() }

type memDepartments struct{ s *MemoryStore }

func (m memDepartments) Find(_ context.Context, id string) (*Department, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	d, ok := m.s.departments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m memDepartments) list(match func(Department) bool) []Department {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := []Department{}
	for _, d := range m.s.departments {
		if match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m memDepartments) Roots(context.Context) ([]Department, error) {
	return m.list(func(d Department) bool { return d.ParentID == "" }), nil
}

func (m memDepartments) Children(_ context.Context, parentID string) ([]Department, error) {
	return m.list(func(d Department) bool { return d.ParentID == parentID }), nil
}

func (m memDepartments) ParentOf(_ context.Context, id string) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	d, ok := m.s.departments[id]
	if !ok {
		return "", ErrNotFound
	}
	return d.ParentID, nil
}

func (m memDepartments) Count(context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.departments), nil
}

func (m memDepartments) CountChildren(_ context.Context, id string) (int, error) {
	return len(m.list(func(d Department) bool { return d.ParentID == id })), nil
}

func (m memDepartments) CountManagedBy(_ context.Context, employeeID string) (int, error) {
	return len(m.list(func(d Department) bool { return d.ManagerID == employeeID })), nil
}

func (m memDepartments) Conflict(_ context.Context, d *Department) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, other := range m.s.departments {
		if other.ID == d.ID {
			continue
		}
		switch {
		case other.Name == d.Name:
			return "name", nil
		case other.Code == d.Code:
			return "code", nil
		}
	}
	return "", nil
}

func (m memDepartments) Create(_ context.Context, d *Department) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d.ID == "" {
		d.ID = ids.New()
	}
	d.CreatedAt = m.s.stamp()
	d.UpdatedAt = d.CreatedAt
	m.s.departments[d.ID] = *d
	return nil
}

func (m memDepartments) Update(_ context.Context, d *Department) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.departments[d.ID]; !ok {
		return ErrNotFound
	}
	d.UpdatedAt = m.s.stamp()
	m.s.departments[d.ID] = *d
	return nil
}

func (m memDepartments) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.departments[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.departments, id)
	return nil
}

type memDesignations struct{ s *MemoryStore }

func (m memDesignations) Find(_ context.Context, id string) (*Designation, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	d, ok := m.s.designations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m memDesignations) Conflict(_ context.Context, d *Designation) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, other := range m.s.designations {
		if other.ID == d.ID {
			continue
		}
		switch {
		case other.Title == d.Title:
			return "title", nil
		case other.Code == d.Code:
			return "code", nil
		}
	}
	return "", nil
}

func (m memDesignations) Create(_ context.Context, d *Designation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d.ID == "" {
		d.ID = ids.New()
	}
	d.CreatedAt = m.s.stamp()
	d.UpdatedAt = d.CreatedAt
	m.s.designations[d.ID] = *d
	return nil
}

type memEmployees struct{ s *MemoryStore }

func (m memEmployees) Find(_ context.Context, id string) (*Employee, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	e, ok := m.s.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m memEmployees) list(match func(Employee) bool) []Employee {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := []Employee{}
	for _, e := range m.s.employees {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func (m memEmployees) Reports(_ context.Context, managerID string) ([]Employee, error) {
	return m.list(func(e Employee) bool { return e.ManagerID == managerID }), nil
}

func (m memEmployees) ManagerOf(_ context.Context, id string) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	e, ok := m.s.employees[id]
	if !ok {
		return "", ErrNotFound
	}
	return e.ManagerID, nil
}

func (m memEmployees) Count(context.Context) (int, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return len(m.s.employees), nil
}

func (m memEmployees) CountByDepartment(_ context.Context, departmentID string) (int, error) {
	return len(m.list(func(e Employee) bool { return e.DepartmentID == departmentID })), nil
}

func (m memEmployees) CountReports(_ context.Context, managerID string) (int, error) {
	return len(m.list(func(e Employee) bool { return e.ManagerID == managerID })), nil
}

func (m memEmployees) Conflict(_ context.Context, e *Employee) (string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, other := range m.s.employees {
		if other.ID == e.ID {
			continue
		}
		switch {
		case other.EmployeeID == e.EmployeeID:
			return "employeeId", nil
		case other.Email == e.Email:
			return "email", nil
		}
	}
	return "", nil
}

func (m memEmployees) Create(_ context.Context, e *Employee) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	e.CreatedAt = m.s.stamp()
	e.UpdatedAt = e.CreatedAt
	m.s.employees[e.ID] = *e
	return nil
}

func (m memEmployees) Update(_ context.Context, e *Employee) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.employees[e.ID]; !ok {
		return ErrNotFound
	}
	e.UpdatedAt = m.s.stamp()
	m.s.employees[e.ID] = *e
	return nil
}

func (m memEmployees) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.employees[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.employees, id)
	return nil
}
