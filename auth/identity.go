package auth

import (
	"fmt"
	"time"
)

// Role is the privilege level of a caller.
//
// ROOT is privileged everywhere, ADMIN only inside its own account and USER
// nowhere. No ordering between roles is defined beyond IsRoot and
// IsAccountAdminOf.
type Role string

const (
	RoleRoot  Role = "root"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole converts a role string into a Role. Only the exact lowercase
// names are accepted.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRoot:
		return RoleRoot, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRoot, RoleAdmin, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// DefaultName fills every identifier component the credential did not supply.
const DefaultName = "default"

// UserIdentifier names the acting principal as (account, user, agent).
// Every component is non-empty and the value cannot be changed after
// construction.
type UserIdentifier struct {
	account string
	user    string
	agent   string
}

// NewUserIdentifier builds an identifier, substituting DefaultName for any
// empty component.
func NewUserIdentifier(account, user, agent string) UserIdentifier {
	return UserIdentifier{
		account: orDefault(account),
		user:    orDefault(user),
		agent:   orDefault(agent),
	}
}

// DefaultUserIdentifier returns ("default", "default", "default").
func DefaultUserIdentifier() UserIdentifier {
	return NewUserIdentifier("", "", "")
}

func (u UserIdentifier) Account() string { return orDefault(u.account) }
func (u UserIdentifier) User() string    { return orDefault(u.user) }
func (u UserIdentifier) Agent() string   { return orDefault(u.agent) }

// String renders the identifier as account:user:agent.
func (u UserIdentifier) String() string {
	return u.Account() + ":" + u.User() + ":" + u.Agent()
}

func orDefault(s string) string {
	if s == "" {
		return DefaultName
	}
	return s
}

// AuthMethod indicates which key store produced an identity.
type AuthMethod string

const (
	AuthMethodRootKey AuthMethod = "root_key"
	AuthMethodAPIKey  AuthMethod = "api_key"
	AuthMethodJWT     AuthMethod = "jwt"
)

// ResolvedIdentity is the result of resolving a bearer credential.
// Any of the id fields may be empty; they are defaulted when a
// RequestContext is built.
type ResolvedIdentity struct {
	AccountID string
	UserID    string
	AgentID   string
	Role      Role

	// Method indicates how the credential was resolved.
	Method AuthMethod

	// ExpiresAt is when the credential stops being valid (zero = never).
	ExpiresAt time.Time
}

// IsExpired checks if the identity has expired.
func (id *ResolvedIdentity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// RequestContext is the per-call authorization context handed to the
// knowledge-base service. It is built fresh for every tool invocation.
type RequestContext struct {
	User UserIdentifier
	Role Role
}
