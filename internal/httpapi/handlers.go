package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"orgadmin.io/internal/audit"
	"orgadmin.io/internal/auth"
	"orgadmin.io/internal/obs"
	"orgadmin.io/internal/org"
)

// ReadyProbe reports whether the database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps wires the API to its collaborators.
type Deps struct {
	Auth      *auth.Service
	Evaluator *auth.Evaluator
	Catalog   *auth.Catalog
	Org       *org.Service
	Ready     ReadyProbe
	Logger    *zap.Logger
	Audit     *audit.Logger

	RateBurst  int
	RatePerSec int
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	auth    *auth.Service
	authz   *auth.Evaluator
	catalog *auth.Catalog
	org     *org.Service
	ready   ReadyProbe
	logger  *zap.Logger
	audit   *audit.Logger

	rateBurst  int
	ratePerSec int
}

func New(deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       deps.Auth,
		authz:      deps.Evaluator,
		catalog:    deps.Catalog,
		org:        deps.Org,
		ready:      deps.Ready,
		logger:     deps.Logger,
		audit:      deps.Audit,
		rateBurst:  deps.RateBurst,
		ratePerSec: deps.RatePerSec,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.audit == nil {
		a.audit = audit.New(a.logger)
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.routeAuth()
	a.routeAdmin()
	a.routeOrg()
	return a
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(a.logger, h)
	h = Recover(a.logger, h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "orgadmin-api",
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil || !a.catalog.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "catalog not initialized",
		})
		return
	}
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handleError maps domain errors onto HTTP statuses.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, org.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		unauthorized(w, r, "invalid token")
	case errors.Is(err, auth.ErrAuthentication):
		unauthorized(w, r, auth.ErrAuthentication.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		unauthorized(w, r, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, org.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrConflict), errors.Is(err, org.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		a.logger.Error("request failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// record writes an audit entry; failures are logged and never fail the request.
func (a *API) record(r *http.Request, event string, fields ...zap.Field) {
	if err := a.audit.Event(r.Context(), event, fields...); err != nil {
		a.logger.Warn("audit event dropped", zap.String("event", event), zap.Error(err))
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="orgadmin"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
