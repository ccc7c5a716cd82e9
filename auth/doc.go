// Package auth resolves bearer credentials into OpenViking identities and
// enforces the authorization rules every tool call goes through.
//
// A credential is resolved once per protocol session by a KeyStore. The
// result is held in a SessionSlot, and each tool invocation derives a fresh
// RequestContext from that slot. Privileged tools then check the context with
// RequireRoot or RequireAdminOrRoot.
//
// When no KeyStore is configured the process runs in dev mode: no session
// ever carries an identity and every caller acts as the default ROOT user.
package auth
