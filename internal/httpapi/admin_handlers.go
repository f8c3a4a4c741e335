package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"orgadmin.io/internal/auth"
)

func (a *API) routeAdmin() {
	catalogRead := auth.AnyOf(auth.PermUserRead, auth.PermSystemAdmin)
	a.mux.Handle("GET /api/roles", a.guard(catalogRead, a.listRoles))
	a.mux.Handle("GET /api/permissions", a.guard(catalogRead, a.listPermissions))
	a.mux.Handle("GET /api/users/{id}", a.guard(auth.OwnerOrPermission("id", auth.PermUserRead), a.getUser))
	a.mux.Handle("DELETE /api/users/{id}", a.guard(auth.RequirePermission(auth.PermUserDelete), a.deleteUser))
}

type roleView struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := a.catalog.Roles(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	out := make([]roleView, 0, len(roles))
	for i := range roles {
		codes := make([]string, 0, len(roles[i].Permissions))
		for _, perm := range roles[i].Permissions {
			codes = append(codes, perm.Code)
		}
		out = append(out, roleView{
			Code:        roles[i].Code,
			Name:        roles[i].Name,
			Description: roles[i].Description,
			Permissions: codes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (a *API) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := a.catalog.Permissions(r.Context())
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	if perms == nil {
		perms = []auth.Permission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	identity, err := a.auth.Identity(r.Context(), r.PathValue("id"))
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auth.NewUserInfo(identity))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.auth.DeleteIdentity(r.Context(), id); err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "identity.deleted", zap.String("user_id", id))
	w.WriteHeader(http.StatusNoContent)
}
