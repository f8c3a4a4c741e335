package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is the single failure reported for bad credentials.
	ErrAuthentication = errors.New("invalid credentials")
	// ErrInvalidToken indicates a malformed, tampered or expired token.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", ErrAuthentication)
	// ErrUnauthenticated means the request carries no authenticated identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the identity lacks the required permission or ownership.
	ErrForbidden = errors.New("forbidden")

	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

func conflict(field string) error {
	return fmt.Errorf("%w: %s already exists", ErrConflict, field)
}
