package health

import "errors"

var (
	ErrCheckFailed     = errors.New("health: threshold exceeded")
	ErrCheckTimeout    = errors.New("health: check did not finish before the probe deadline")
	ErrCheckerNotFound = errors.New("health: no checker registered under that name")

	// ErrNotReady wraps the reason a ReadyChecker's component cannot serve.
	ErrNotReady = errors.New("health: not ready")
)
