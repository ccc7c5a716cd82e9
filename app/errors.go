package app

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on any App that is not UNINITIALIZED.
	ErrAlreadyStarted = errors.New("app: already started")

	// ErrNotReady is returned by Ready outside the READY state.
	ErrNotReady = errors.New("app: not ready")

	// ErrNilService is returned by New when no service is given.
	ErrNilService = errors.New("app: service is required")
)
