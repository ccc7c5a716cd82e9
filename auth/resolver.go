package auth

import (
	"context"
	"fmt"

	"github.com/jonwraymond/openviking-mcp/observe"
)

// KeyStore maps bearer tokens to identities.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: an unknown token yields (nil, nil); an error means the lookup
//     itself failed.
type KeyStore interface {
	Resolve(ctx context.Context, token string) (*ResolvedIdentity, error)
}

// Outcome classifies a credential lookup.
type Outcome int

const (
	// OutcomeResolved means the token mapped to an identity.
	OutcomeResolved Outcome = iota
	// OutcomeNotConfigured means no key store exists (dev mode).
	OutcomeNotConfigured
	// OutcomeFailed means the token could not be resolved.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNotConfigured:
		return "not_configured"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolution is the detailed result of a lookup. Err is set only for
// OutcomeFailed.
type Resolution struct {
	Outcome  Outcome
	Identity *ResolvedIdentity
	Err      error
}

// IdentityResolver resolves bearer tokens without ever failing the caller.
type IdentityResolver struct {
	logger observe.Logger
}

// NewIdentityResolver creates a resolver. A nil logger disables diagnostics.
func NewIdentityResolver(logger observe.Logger) *IdentityResolver {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &IdentityResolver{logger: logger}
}

// Resolve returns the identity for token, or nil. A missing key store, an
// unknown token and a failing store all produce nil.
func (r *IdentityResolver) Resolve(ctx context.Context, store KeyStore, token string) *ResolvedIdentity {
	res := r.Lookup(ctx, store, token)
	if res.Outcome == OutcomeFailed {
		r.logger.Debug(ctx, "identity resolution failed",
			observe.Field{Key: "reason", Value: res.Err.Error()},
		)
	}
	if res.Outcome != OutcomeResolved {
		return nil
	}
	return res.Identity
}

// Lookup performs the resolution and reports why it did or did not succeed.
func (r *IdentityResolver) Lookup(ctx context.Context, store KeyStore, token string) (res Resolution) {
	if store == nil {
		return Resolution{Outcome: OutcomeNotConfigured}
	}
	if token == "" {
		return Resolution{Outcome: OutcomeFailed, Err: ErrMissingCredentials}
	}

	defer func() {
		if p := recover(); p != nil {
			res = Resolution{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrResolverPanic, p)}
		}
	}()

	id, err := store.Resolve(ctx, token)
	switch {
	case err != nil:
		return Resolution{Outcome: OutcomeFailed, Err: err}
	case id == nil:
		return Resolution{Outcome: OutcomeFailed, Err: ErrInvalidCredentials}
	case !id.Role.Valid():
		return Resolution{Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %q", ErrUnknownRole, id.Role)}
	case id.IsExpired():
		return Resolution{Outcome: OutcomeFailed, Err: ErrTokenExpired}
	}

	cp := *id
	return Resolution{Outcome: OutcomeResolved, Identity: &cp}
}
