package org

import "time"

type DepartmentStatus string

const (
	DepartmentActive        DepartmentStatus = "ACTIVE"
	DepartmentInactive      DepartmentStatus = "INACTIVE"
	DepartmentRestructuring DepartmentStatus = "RESTRUCTURING"
)

type DesignationStatus string

const (
	DesignationActive     DesignationStatus = "ACTIVE"
	DesignationInactive   DesignationStatus = "INACTIVE"
	DesignationDeprecated DesignationStatus = "DEPRECATED"
)

type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "ACTIVE"
	EmployeeInactive   EmployeeStatus = "INACTIVE"
	EmployeeTerminated EmployeeStatus = "TERMINATED"
	EmployeeOnLeave    EmployeeStatus = "ON_LEAVE"
)

// Department is a node in the department tree. ParentID and ManagerID are
// empty when unset.
type Department struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Code        string           `json:"code"`
	Description string           `json:"description,omitempty"`
	Location    string           `json:"location,omitempty"`
	CostCenter  string           `json:"costCenter,omitempty"`
	ParentID    string           `json:"parentDepartmentId,omitempty"`
	ManagerID   string           `json:"managerId,omitempty"`
	Status      DepartmentStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Designation is a job title employees hold.
type Designation struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Code        string            `json:"code"`
	Description string            `json:"description,omitempty"`
	Level       int               `json:"level"`
	Status      DesignationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Employee is a business record. EmployeeID is the human-facing reference
// an identity may be linked to.
type Employee struct {
	ID            string         `json:"id"`
	EmployeeID    string         `json:"employeeId"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	Email         string         `json:"email"`
	DepartmentID  string         `json:"departmentId"`
	DesignationID string         `json:"designationId"`
	ManagerID     string         `json:"managerId,omitempty"`
	Status        EmployeeStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
