package auth

import "errors"

// Sentinel errors for credential resolution and authorization.
var (
	// Resolution errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrKeyNotFound        = errors.New("auth: signing key not found")
	ErrResolverPanic      = errors.New("auth: key store panicked")

	// Identity errors
	ErrUnknownRole      = errors.New("auth: unknown role")
	ErrIdentityAttached = errors.New("auth: identity already attached to session")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")
)
