// Package app owns the process-lifetime application context.
//
// An App holds the shared knowledge-base service and, when a root key is
// configured, the key manager. It is started once before serving and closed
// exactly once afterwards. Between the two it is read-only: every tool call
// reads the same service and key manager without additional locking.
//
// Lifecycle:
//
//	UNINITIALIZED -> STARTING -> READY -> CLOSING -> CLOSED
//
// A failure while STARTING closes whatever was already started, so a failed
// start never leaves a half-initialized service behind.
package app
