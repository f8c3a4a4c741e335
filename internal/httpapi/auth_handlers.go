package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"orgadmin.io/internal/auth"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) routeAuth() {
	// Credential endpoints share one per-IP limiter.
	public := http.NewServeMux()
	public.HandleFunc("POST /api/auth/login", a.login)
	public.HandleFunc("POST /api/auth/register", a.register)
	public.HandleFunc("POST /api/auth/refresh", a.refresh)
	limited := RateLimit(public, a.rateBurst, a.ratePerSec)
	a.mux.Handle("POST /api/auth/login", limited)
	a.mux.Handle("POST /api/auth/register", limited)
	a.mux.Handle("POST /api/auth/refresh", limited)
	a.mux.HandleFunc("POST /api/auth/logout", a.logout)
	a.mux.HandleFunc("GET /api/auth/me", a.me)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.auth.Register(r.Context(), req)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	a.record(r, "identity.registered",
		zap.String("user_id", resp.User.ID),
		zap.String("username", resp.User.Username),
		zap.String("role", resp.User.Role))
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.auth.Logout(r.Context(), auth.PrincipalFromContext(r.Context())); err != nil {
		a.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil || !p.Authenticated {
		a.handleError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, auth.NewUserInfo(p.Identity))
}
