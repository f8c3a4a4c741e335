package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"orgadmin.io/internal/auth"
	"orgadmin.io/internal/org"
)

func (a *API) routeOrg() {
	deptRead := auth.RequirePermission(auth.PermDepartmentRead)
	deptWrite := auth.RequirePermission(auth.PermDepartmentWrite)
	empWrite := auth.RequirePermission(auth.PermEmployeeWrite)

	a.mux.Handle("GET /api/departments", a.guard(deptRead, a.listRootDepartments))
	a.mux.Handle("POST /api/departments", a.guard(deptWrite, a.createDepartment))
	a.mux.Handle("GET /api/departments/{id}", a.guard(deptRead, a.getDepartment))
	a.mux.Handle("PUT /api/departments/{id}", a.guard(deptWrite, a.updateDepartment))
	a.mux.Handle("DELETE /api/departments/{id}", a.guard(auth.RequirePermission(auth.PermDepartmentDelete), a.deleteDepartment))
	a.mux.Handle("GET /api/departments/{id}/children", a.guard(deptRead, a.listSubDepartments))

	a.mux.Handle("POST /api/designations", a.guard(deptWrite, a.createDesignation))
	a.mux.Handle("GET /api/designations/{id}", a.guard(deptRead, a.getDesignation))

	a.mux.Handle("POST /api/employees", a.guard(empWrite, a.createEmployee))
	a.mux.Handle("GET /api/employees/{id}",
		a.guardWith(auth.OwnerOrPermission("id", auth.PermEmployeeRead), a.employeeOwner, a.getEmployee))
	a.mux.Handle("PUT /api/employees/{id}", a.guard(empWrite, a.updateEmployee))
	a.mux.Handle("DELETE /api/employees/{id}", a.guard(auth.RequirePermission(auth.PermEmployeeDelete), a.deleteEmployee))
	a.mux.Handle("GET /api/employees/{id}/reports",
		a.guard(auth.RequirePermission(auth.PermEmployeeRead), a.listDirectReports))
}

// employeeOwner resolves the identity linked to the employee in the path.
// Employees without a linked identity have no owner.
func (a *API) employeeOwner(r *http.Request) (string, error) {
	emp, err := a.org.Employee(r.Context(), r.PathValue("id"))
	if errors.Is(err, org.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	identity, err := a.auth.IdentityForEmployee(r.Context(), emp.EmployeeID)
	if errors.Is(err, auth.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}

func (a *API) listRootDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := a.org.RootDepartments(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": nonNil(depts)})
}

func (a *API) listSubDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := a.org.SubDepartments(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": nonNil(depts)})
}

func (a *API) getDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := a.org.Department(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (a *API) createDepartment(w http.ResponseWriter, r *http.Request) {
	var in org.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dept, err := a.org.CreateDepartment(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "department.created", zap.String("department_id", dept.ID), zap.String("code", dept.Code))
	writeJSON(w, http.StatusCreated, dept)
}

func (a *API) updateDepartment(w http.ResponseWriter, r *http.Request) {
	var in org.DepartmentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	dept, err := a.org.UpdateDepartment(r.Context(), r.PathValue("id"), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "department.updated", zap.String("department_id", dept.ID))
	writeJSON(w, http.StatusOK, dept)
}

func (a *API) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.org.DeleteDepartment(r.Context(), id); err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "department.deleted", zap.String("department_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) createDesignation(w http.ResponseWriter, r *http.Request) {
	var in org.DesignationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	des, err := a.org.CreateDesignation(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "designation.created", zap.String("designation_id", des.ID), zap.String("code", des.Code))
	writeJSON(w, http.StatusCreated, des)
}

func (a *API) getDesignation(w http.ResponseWriter, r *http.Request) {
	des, err := a.org.Designation(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, des)
}

func (a *API) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in org.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	emp, err := a.org.CreateEmployee(r.Context(), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "employee.created", zap.String("employee_id", emp.ID), zap.String("employee_ref", emp.EmployeeID))
	writeJSON(w, http.StatusCreated, emp)
}

func (a *API) getEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := a.org.Employee(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var in org.EmployeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	emp, err := a.org.UpdateEmployee(r.Context(), r.PathValue("id"), in)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "employee.updated", zap.String("employee_id", emp.ID))
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.org.DeleteEmployee(r.Context(), id); err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "employee.deleted", zap.String("employee_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listDirectReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.org.DirectReports(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": nonNil(reports)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
