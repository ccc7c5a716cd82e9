package server

import "errors"

var (
	// ErrNilApp is returned when Serve is called without an application.
	ErrNilApp = errors.New("server: app is nil")

	// ErrStdioCredentials is returned when authentication is configured and
	// the stdio session has no API key that resolves to an identity.
	ErrStdioCredentials = errors.New("server: stdio requires OPENVIKING_API_KEY to resolve when auth is configured")
)
