package auth

import "errors"

var (
	// ErrInvalidInput is returned for malformed registration input.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials is returned for a failed login. It deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUnauthenticated is returned when a request carries no valid session.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrNotFound is returned when a user or session row does not exist.
	ErrNotFound = errors.New("auth: not found")
)
