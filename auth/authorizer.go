package auth

import "fmt"

// CodePermissionDenied is the code carried by every denial payload.
const CodePermissionDenied = "PERMISSION_DENIED"

// Denial messages rendered in PERMISSION_DENIED payloads.
const (
	MsgRootRequired        = "ROOT role required"
	MsgAdminOrRootRequired = "ROOT or account ADMIN role required"
	MsgDevMode             = "Auth not configured (dev mode)"
)

// AuthzError represents an authorization failure.
// Guards return it as a value; callers render it in-band instead of
// failing the call.
type AuthzError struct {
	// Subject is the identity that was denied.
	Subject string

	// Resource is the resource that was denied access to.
	Resource string

	// Reason is the message shown to the caller.
	Reason string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q resource=%q reason=%q",
		e.Subject, e.Resource, e.Reason)
}

// ErrorCode returns the wire code of a denial.
func (e *AuthzError) ErrorCode() string {
	return CodePermissionDenied
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// IsRoot reports whether the caller holds the ROOT role.
func IsRoot(rc RequestContext) bool {
	return rc.Role == RoleRoot
}

// IsAccountAdminOf reports whether the caller is an ADMIN of accountID.
func IsAccountAdminOf(rc RequestContext, accountID string) bool {
	return rc.Role == RoleAdmin && rc.User.Account() == accountID
}

// RequireRoot returns nil if the caller is ROOT, otherwise a denial.
func RequireRoot(rc RequestContext) *AuthzError {
	if IsRoot(rc) {
		return nil
	}
	return &AuthzError{
		Subject:  rc.User.String(),
		Resource: "system",
		Reason:   MsgRootRequired,
	}
}

// RequireAdminOrRoot returns nil if the caller is ROOT or an ADMIN of
// accountID, otherwise a denial.
func RequireAdminOrRoot(rc RequestContext, accountID string) *AuthzError {
	if IsRoot(rc) || IsAccountAdminOf(rc, accountID) {
		return nil
	}
	return &AuthzError{
		Subject:  rc.User.String(),
		Resource: "account:" + accountID,
		Reason:   MsgAdminOrRootRequired,
	}
}

// RequireKeyManager denies account mutations when no key manager backs them.
// It applies after the role guards, so dev-mode callers pass the role check
// and are still refused.
func RequireKeyManager(rc RequestContext, present bool) *AuthzError {
	if present {
		return nil
	}
	return &AuthzError{
		Subject:  rc.User.String(),
		Resource: "keys",
		Reason:   MsgDevMode,
	}
}
