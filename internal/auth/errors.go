package auth

import "errors"

var (
	// ErrInvalidToken is returned for malformed, expired, wrongly signed or
	// wrongly typed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySubject is returned when a token is requested for an empty user id.
	ErrEmptySubject = errors.New("token subject cannot be empty")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password mismatch")
)
