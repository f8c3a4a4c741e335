package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"orgadmin.io/internal/obs"
)

// Evaluator answers allow/deny questions for a principal. It re-reads the
// identity and its role on every call and keeps no cache.
type Evaluator struct {
	store  Store
	logger *zap.Logger
}

// NewEvaluator returns an Evaluator that resolves identities through store.
func NewEvaluator(store Store, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{store: store, logger: logger.Named("authz")}
}

// resolve loads the current identity behind p. A nil identity with a nil
// error means the request must be denied.
func (e *Evaluator) resolve(ctx context.Context, p *Principal) (*Identity, error) {
	if p == nil || !p.Authenticated || p.Identity == nil || p.Identity.Username == "" {
		return nil, nil
	}
	identity, err := e.store.Identities(ctx).FindByUsername(ctx, p.Identity.Username)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if identity.Role == nil {
		return nil, nil
	}
	return identity, nil
}

// Authorize reports whether p holds perm.
func (e *Evaluator) Authorize(ctx context.Context, p *Principal, perm string) (bool, error) {
	return e.AuthorizeAny(ctx, p, perm)
}

// AuthorizeAny reports whether p holds at least one of perms.
func (e *Evaluator) AuthorizeAny(ctx context.Context, p *Principal, perms ...string) (bool, error) {
	identity, err := e.resolve(ctx, p)
	if err != nil {
		return false, err
	}
	return e.decide(identity, holdsAny(identity, perms)), nil
}

// AuthorizeOwnerOrPermission allows when the identity's own id equals ownerID,
// otherwise it falls back to Authorize.
func (e *Evaluator) AuthorizeOwnerOrPermission(ctx context.Context, p *Principal, ownerID, perm string) (bool, error) {
	identity, err := e.resolve(ctx, p)
	if err != nil {
		return false, err
	}
	if identity != nil && ownerID != "" && identity.ID == ownerID {
		return e.decide(identity, true), nil
	}
	return e.decide(identity, holdsAny(identity, []string{perm})), nil
}

// Require evaluates req for p. ownerID is the resolved value of the
// requirement's owner parameter and is ignored for plain permission checks.
// It returns ErrUnauthenticated, ErrForbidden or a store error.
func (e *Evaluator) Require(ctx context.Context, p *Principal, req Requirement, ownerID string) error {
	if p == nil || !p.Authenticated {
		return ErrUnauthenticated
	}
	var (
		ok  bool
		err error
	)
	if req.ownerParam != "" {
		ok, err = e.AuthorizeOwnerOrPermission(ctx, p, ownerID, req.codes[0])
	} else {
		ok, err = e.AuthorizeAny(ctx, p, req.codes...)
	}
	if err != nil {
		return err
	}
	if !ok {
		e.logger.Debug("access denied", zap.String("username", p.Username()), zap.Stringer("requirement", req))
		return ErrForbidden
	}
	return nil
}

func (e *Evaluator) decide(identity *Identity, allow bool) bool {
	allow = identity != nil && allow
	if allow {
		obs.AuthzDecisions.WithLabelValues("allow").Inc()
	} else {
		obs.AuthzDecisions.WithLabelValues("deny").Inc()
	}
	return allow
}

func holdsAny(identity *Identity, perms []string) bool {
	if identity == nil || identity.Role == nil {
		return false
	}
	granted := identity.Role.PermissionCodes()
	for _, perm := range perms {
		if _, ok := granted[perm]; ok {
			return true
		}
	}
	return false
}
