package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound signals that the user could not be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrBadResetKey is returned when the password-reset secret does not match.
	ErrBadResetKey = errors.New("bad reset secret key")
	// ErrUnauthorized represents a missing, invalid, or expired token.
	ErrUnauthorized = errors.New("unauthorized")
)
