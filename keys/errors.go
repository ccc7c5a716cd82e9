package keys

import "errors"

var (
	// ErrRootKeyRequired is returned by Open when no root key is configured.
	ErrRootKeyRequired = errors.New("keys: root key is required")

	// ErrPathRequired is returned by Open when no database path is given.
	ErrPathRequired = errors.New("keys: database path is required")

	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("keys: manager is closed")
)
