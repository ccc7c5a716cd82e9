package auth

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinels_DistinctMessages(t *testing.T) {
	all := []error{
		ErrMissingCredentials, ErrInvalidCredentials, ErrTokenExpired, ErrTokenMalformed,
		ErrKeyNotFound, ErrResolverPanic, ErrUnknownRole, ErrIdentityAttached, ErrForbidden,
	}
	seen := make(map[string]bool, len(all))
	for _, err := range all {
		msg := err.Error()
		if !strings.HasPrefix(msg, "auth: ") {
			t.Errorf("%q lacks the auth: prefix", msg)
		}
		if seen[msg] {
			t.Errorf("duplicate message %q", msg)
		}
		seen[msg] = true
	}
}

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("keys: lookup %q: %w", "acme", ErrInvalidCredentials)
	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Errorf("errors.Is(%v, ErrInvalidCredentials) = false", wrapped)
	}
	if errors.Is(wrapped, ErrTokenExpired) {
		t.Errorf("errors.Is(%v, ErrTokenExpired) = true", wrapped)
	}

	for _, denial := range []*AuthzError{
		RequireRoot(RequestContext{Role: RoleUser}),
		RequireAdminOrRoot(RequestContext{Role: RoleAdmin, User: NewUserIdentifier("other", "bob", "")}, "acme"),
		RequireKeyManager(RequestContext{Role: RoleRoot}, false),
	} {
		var err error = fmt.Errorf("tool: %w", denial)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("%v does not match ErrForbidden", err)
		}
	}
}
