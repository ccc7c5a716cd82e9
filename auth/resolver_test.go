package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/openviking-mcp/observe"
)

// stubKeyStore is a test key store with configurable behavior.
type stubKeyStore struct {
	id    *ResolvedIdentity
	err   error
	panic bool
	calls int
}

func (s *stubKeyStore) Resolve(_ context.Context, _ string) (*ResolvedIdentity, error) {
	s.calls++
	if s.panic {
		panic("store exploded")
	}
	return s.id, s.err
}

func TestIdentityResolver_NoStore(t *testing.T) {
	r := NewIdentityResolver(nil)
	for _, token := range []string{"", "abc", "root-key", strings.Repeat("x", 512)} {
		if got := r.Resolve(context.Background(), nil, token); got != nil {
			t.Errorf("Resolve(nil, %q) = %+v, want nil", token, got)
		}
		if res := r.Lookup(context.Background(), nil, token); res.Outcome != OutcomeNotConfigured {
			t.Errorf("Lookup(nil, %q).Outcome = %v, want not_configured", token, res.Outcome)
		}
	}
}

func TestIdentityResolver_Lookup(t *testing.T) {
	tests := []struct {
		name        string
		store       *stubKeyStore
		token       string
		wantOutcome Outcome
		wantErr     error
	}{
		{
			name:        "resolved",
			store:       &stubKeyStore{id: &ResolvedIdentity{AccountID: "acme", Role: RoleUser}},
			token:       "good",
			wantOutcome: OutcomeResolved,
		},
		{
			name:        "unknown token",
			store:       &stubKeyStore{},
			token:       "unknown",
			wantOutcome: OutcomeFailed,
			wantErr:     ErrInvalidCredentials,
		},
		{
			name:        "empty token",
			store:       &stubKeyStore{id: &ResolvedIdentity{Role: RoleUser}},
			token:       "",
			wantOutcome: OutcomeFailed,
			wantErr:     ErrMissingCredentials,
		},
		{
			name:        "store failure",
			store:       &stubKeyStore{err: errors.New("database locked")},
			token:       "any",
			wantOutcome: OutcomeFailed,
		},
		{
			name:        "store panic",
			store:       &stubKeyStore{panic: true},
			token:       "any",
			wantOutcome: OutcomeFailed,
			wantErr:     ErrResolverPanic,
		},
		{
			name:        "unknown role",
			store:       &stubKeyStore{id: &ResolvedIdentity{Role: "owner"}},
			token:       "any",
			wantOutcome: OutcomeFailed,
			wantErr:     ErrUnknownRole,
		},
		{
			name:        "expired",
			store:       &stubKeyStore{id: &ResolvedIdentity{Role: RoleUser, ExpiresAt: time.Now().Add(-time.Minute)}},
			token:       "any",
			wantOutcome: OutcomeFailed,
			wantErr:     ErrTokenExpired,
		},
	}

	r := NewIdentityResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Lookup(context.Background(), tt.store, tt.token)
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, tt.wantOutcome)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if res.Outcome == OutcomeFailed && res.Err == nil {
				t.Error("failed outcome without error")
			}

			got := r.Resolve(context.Background(), tt.store, tt.token)
			if (got != nil) != (tt.wantOutcome == OutcomeResolved) {
				t.Errorf("Resolve() = %+v, want identity only when resolved", got)
			}
		})
	}
}

func TestIdentityResolver_ReturnsCopy(t *testing.T) {
	stored := &ResolvedIdentity{AccountID: "acme", Role: RoleUser}
	r := NewIdentityResolver(nil)

	got := r.Resolve(context.Background(), &stubKeyStore{id: stored}, "tok")
	got.AccountID = "mutated"
	if stored.AccountID != "acme" {
		t.Error("Resolve() returned the store's identity instead of a copy")
	}
}

func TestIdentityResolver_LogsFailureWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	r := NewIdentityResolver(observe.NewLoggerWithWriter("debug", &buf))

	r.Resolve(context.Background(), &stubKeyStore{err: errors.New("backend down")}, "secret-token-value")

	out := buf.String()
	if !strings.Contains(out, "identity resolution failed") {
		t.Errorf("log output = %q, want failure message", out)
	}
	if !strings.Contains(out, "backend down") {
		t.Errorf("log output = %q, want failure reason", out)
	}
	if strings.Contains(out, "secret-token-value") {
		t.Error("log output contains the token")
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{OutcomeResolved, "resolved"},
		{OutcomeNotConfigured, "not_configured"},
		{OutcomeFailed, "failed"},
		{Outcome(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %v, want %v", tt.o, got, tt.want)
		}
	}
}
