package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"orgadmin.io/internal/obs"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minSecretLen      = 6
)

// UserInfo is the caller-visible projection of an Identity.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	EmployeeRef string `json:"employeeRef,omitempty"`
	Department  string `json:"department,omitempty"`
	Role        string `json:"role"`
	Status      Status `json:"status"`
}

// AuthResponse is returned by every successful login, register and refresh.
type AuthResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
	ExpiresIn    int64    `json:"expiresIn"`
	User         UserInfo `json:"user"`
}

// RegisterRequest carries the fields accepted at registration.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	EmployeeRef string `json:"employeeId,omitempty"`
	Department  string `json:"department,omitempty"`
}

// NewUserInfo projects identity for responses.
func NewUserInfo(identity *Identity) UserInfo {
	return UserInfo{
		ID:          identity.ID,
		Username:    identity.Username,
		Email:       identity.Email,
		EmployeeRef: identity.EmployeeRef,
		Department:  identity.Department,
		Role:        identity.RoleCode(),
		Status:      identity.Status,
	}
}

// Service runs the login, register, refresh and logout protocol.
type Service struct {
	store  Store
	tokens *Tokens
	hasher *Hasher
	logger *zap.Logger
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithServiceClock overrides the time source used for last-login stamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) error {
		if now == nil {
			return errors.New("auth: clock is nil")
		}
		s.now = now
		return nil
	}
}

// NewService constructs the auth protocol handler.
func NewService(store Store, tokens *Tokens, hasher *Hasher, opts ...ServiceOption) (*Service, error) {
	if store == nil || tokens == nil || hasher == nil {
		return nil, errors.New("auth: store, tokens and hasher are required")
	}
	s := &Service{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.Named("auth")
	return s, nil
}

// Tokens exposes the token service used by the handler.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Login authenticates identifier (username, email or employee reference) and
// secret. Every failure is reported as ErrAuthentication.
func (s *Service) Login(ctx context.Context, identifier, secret string) (AuthResponse, error) {
	identifier = strings.TrimSpace(identifier)
	resp, err := s.login(ctx, identifier, secret)
	if err != nil {
		obs.LoginTotal.WithLabelValues("failure").Inc()
		s.logger.Warn("login failed", zap.String("identifier", identifier))
		s.logger.Debug("login failure detail", zap.String("identifier", identifier), zap.Error(err))
		return AuthResponse{}, ErrAuthentication
	}
	obs.LoginTotal.WithLabelValues("success").Inc()
	s.logger.Info("login succeeded", zap.String("username", resp.User.Username))
	return resp, nil
}

// login returns the underlying reason on failure; callers must not expose it.
func (s *Service) login(ctx context.Context, identifier, secret string) (AuthResponse, error) {
	if identifier == "" || secret == "" {
		s.hasher.Burn(secret)
		return AuthResponse{}, errors.New("empty credentials")
	}
	identities := s.store.Identities(ctx)
	identity, err := identities.FindByIdentifier(ctx, identifier)
	if err != nil {
		s.hasher.Burn(secret)
		return AuthResponse{}, err
	}
	if err := s.hasher.Verify(identity.PasswordHash, secret); err != nil {
		return AuthResponse{}, err
	}
	if identity.Status != StatusActive {
		return AuthResponse{}, fmt.Errorf("status %s", identity.Status)
	}
	now := s.now().UTC()
	if err := identities.TouchLastLogin(ctx, identity.ID, now); err != nil {
		return AuthResponse{}, err
	}
	identity.LastLoginAt = &now
	return s.respond(identity)
}

// Register creates an ACTIVE identity and logs it in. Username, email and
// employee reference are checked independently and reported distinctly.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.EmployeeRef = strings.TrimSpace(req.EmployeeRef)
	req.Department = strings.TrimSpace(req.Department)
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	if req.Role == "" {
		req.Role = DefaultRole
	}
	if err := validateRegistration(req); err != nil {
		return AuthResponse{}, err
	}

	role, err := s.store.Catalog(ctx).RoleByCode(ctx, req.Role)
	if errors.Is(err, ErrNotFound) {
		return AuthResponse{}, fmt.Errorf("%w: role %s", ErrNotFound, req.Role)
	}
	if err != nil {
		return AuthResponse{}, err
	}

	identities := s.store.Identities(ctx)
	if taken, err := identities.ExistsByUsername(ctx, req.Username); err != nil {
		return AuthResponse{}, err
	} else if taken {
		return AuthResponse{}, conflict("username")
	}
	if taken, err := identities.ExistsByEmail(ctx, req.Email); err != nil {
		return AuthResponse{}, err
	} else if taken {
		return AuthResponse{}, conflict("email")
	}
	if req.EmployeeRef != "" {
		if taken, err := identities.ExistsByEmployeeRef(ctx, req.EmployeeRef); err != nil {
			return AuthResponse{}, err
		} else if taken {
			return AuthResponse{}, conflict("employee reference")
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}
	identity := &Identity{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		EmployeeRef:  req.EmployeeRef,
		Department:   req.Department,
		Role:         role,
		Status:       StatusActive,
	}
	if err := identities.Create(ctx, identity); err != nil {
		return AuthResponse{}, err
	}
	s.logger.Info("identity registered", zap.String("username", identity.Username), zap.String("role", role.Code))
	return s.respond(identity)
}

// Refresh validates a refresh token, reloads its identity and reissues both tokens.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResponse, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return AuthResponse{}, err
	}
	identity, err := s.store.Identities(ctx).FindByUsername(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return AuthResponse{}, fmt.Errorf("%w: identity no longer exists", ErrAuthentication)
	}
	if err != nil {
		return AuthResponse{}, err
	}
	if identity.Status != StatusActive {
		return AuthResponse{}, fmt.Errorf("%w: identity is not active", ErrAuthentication)
	}
	s.logger.Info("tokens refreshed", zap.String("username", identity.Username))
	return s.respond(identity)
}

// Logout is a no-op: tokens are stateless and expire on their own.
func (s *Service) Logout(ctx context.Context, principal *Principal) error {
	if principal == nil || !principal.Authenticated {
		return ErrUnauthenticated
	}
	s.logger.Info("logout", zap.String("username", principal.Username()))
	return nil
}

// ResolveIdentity turns a bearer access token into an authenticated principal.
// Identities that are no longer ACTIVE are rejected like an invalid token.
func (s *Service) ResolveIdentity(ctx context.Context, bearer string) (Principal, error) {
	claims, err := s.tokens.Validate(bearer)
	if err != nil {
		return Principal{}, err
	}
	identity, err := s.store.Identities(ctx).FindByUsername(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if identity.Status != StatusActive {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Identity: identity, Authenticated: true}, nil
}

// Identity loads an identity by id.
func (s *Service) Identity(ctx context.Context, id string) (*Identity, error) {
	return s.store.Identities(ctx).FindByID(ctx, id)
}

// IdentityForEmployee loads the identity linked to an employee reference.
func (s *Service) IdentityForEmployee(ctx context.Context, ref string) (*Identity, error) {
	return s.store.Identities(ctx).FindByEmployeeRef(ctx, ref)
}

// DeleteIdentity removes an identity by id.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	if err := s.store.Identities(ctx).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("identity deleted", zap.String("id", id))
	return nil
}

func (s *Service) respond(identity *Identity) (AuthResponse, error) {
	pair, err := s.tokens.Issue(identity)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         NewUserInfo(identity),
	}, nil
}

func validateRegistration(req RegisterRequest) error {
	if n := len(req.Username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters", ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	if len(req.Password) < minSecretLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minSecretLen)
	}
	return nil
}
