package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"orgadmin.io/internal/obs"
)

const (
	defaultIssuer     = "orgadmin"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	minSecretLength   = 32
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the JWT payload. Subject carries the username.
type Claims struct {
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is the result of issuing tokens for an identity.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Tokens issues and validates HS256 bearer tokens.
type Tokens struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures Tokens behavior.
type TokenOption func(*Tokens) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(t *Tokens) error {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			t.issuer = issuer
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) error {
		if ttl > 0 {
			t.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(t *Tokens) error {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source for issuance and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(t *Tokens) error {
		if now == nil {
			return errors.New("auth: clock is nil")
		}
		t.now = now
		return nil
	}
}

// NewTokens constructs a token service signing with secret.
func NewTokens(secret string, opts ...TokenOption) (*Tokens, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: signing secret must be at least %d bytes", minSecretLength)
	}
	t := &Tokens{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	if t.refreshTTL <= t.accessTTL {
		return nil, errors.New("auth: refresh ttl must exceed access ttl")
	}
	return t, nil
}

// AccessTTL returns the configured access token lifetime.
func (t *Tokens) AccessTTL() time.Duration { return t.accessTTL }

// Issue signs a fresh access/refresh pair for identity.
func (t *Tokens) Issue(identity *Identity) (TokenPair, error) {
	if identity == nil || identity.Username == "" {
		return TokenPair{}, fmt.Errorf("%w: identity has no username", ErrInvalidInput)
	}
	now := t.now()
	access, accessExp, err := t.sign(identity.Username, TokenAccess, now, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.sign(identity.Username, TokenRefresh, now, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(t.accessTTL / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *Tokens) sign(subject string, typ TokenType, now time.Time, ttl time.Duration) (string, time.Time, error) {
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(ttl))
	claims := Claims{
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subject,
			IssuedAt:  iat,
			NotBefore: iat,
			ExpiresAt: exp,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp.Time, nil
}

// Validate verifies an access token and returns its claims. Any failure
// yields ErrInvalidToken.
func (t *Tokens) Validate(raw string) (*Claims, error) {
	return t.parse(raw, TokenAccess)
}

// ValidateRefresh verifies a refresh token and returns its claims.
func (t *Tokens) ValidateRefresh(raw string) (*Claims, error) {
	return t.parse(raw, TokenRefresh)
}

func (t *Tokens) parse(raw string, want TokenType) (*Claims, error) {
	claims, err := t.parseClaims(raw, want)
	result := "valid"
	if err != nil {
		result = "invalid"
	}
	obs.TokenValidations.WithLabelValues(string(want), result).Inc()
	return claims, err
}

func (t *Tokens) parseClaims(raw string, want TokenType) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.Subject == "" || claims.TokenType != want {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
