package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"orgadmin.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/auth/refresh",
	"/metrics",
	"/healthz",
	"/readyz",
}

// withAuth resolves the bearer token into a principal for every non-public path.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}
		principal, err := a.auth.ResolveIdentity(r.Context(), token)
		if err != nil {
			a.handleError(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerResolver maps a request to the identity id that owns its target.
// An empty id means no identity owns it.
type ownerResolver func(r *http.Request) (string, error)

func pathOwner(param string) ownerResolver {
	return func(r *http.Request) (string, error) {
		return r.PathValue(param), nil
	}
}

// guard evaluates req before next runs. Ownership is read from the path
// parameter named by the requirement.
func (a *API) guard(req auth.Requirement, next http.HandlerFunc) http.Handler {
	return a.guardWith(req, pathOwner(req.OwnerParam()), next)
}

func (a *API) guardWith(req auth.Requirement, owner ownerResolver, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ownerID string
		if req.OwnerParam() != "" {
			var err error
			if ownerID, err = owner(r); err != nil {
				a.handleError(w, r, err)
				return
			}
		}
		if err := a.authz.Require(r.Context(), auth.PrincipalFromContext(r.Context()), req, ownerID); err != nil {
			if errors.Is(err, auth.ErrForbidden) {
				a.record(r, "access.denied",
					zap.String("requirement", req.String()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path))
			}
			a.handleError(w, r, err)
			return
		}
		next(w, r)
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
