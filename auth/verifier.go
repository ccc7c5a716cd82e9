package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"golang.org/x/sync/singleflight"
)

// IdentityKey is the TokenInfo.Extra key holding the session's *SessionSlot.
const IdentityKey = "identity"

// AgentHeader optionally names the agent acting for a credential that does
// not carry one.
const AgentHeader = "X-OpenViking-Agent"

// VerifierConfig configures the bearer token verifier.
type VerifierConfig struct {
	// CacheSize bounds the number of verified tokens kept in memory.
	// Default: 1024
	CacheSize int

	// CacheTTL is how long a verified token is trusted before it is
	// resolved again. It also bounds the reported token expiration.
	// Default: 30s
	CacheTTL time.Duration
}

// Verifier adapts a KeyStore to the MCP SDK bearer token middleware.
// Successful resolutions are cached by token hash; failures never are.
type Verifier struct {
	resolver *IdentityResolver
	store    KeyStore
	ttl      time.Duration
	cache    *expirable.LRU[string, ResolvedIdentity]
	group    singleflight.Group

	// mu orders cache fills against Purge; gen counts purges.
	mu  sync.Mutex
	gen uint64
}

// NewVerifier creates a verifier resolving tokens against store.
func NewVerifier(resolver *IdentityResolver, store KeyStore, config VerifierConfig) *Verifier {
	if config.CacheSize <= 0 {
		config.CacheSize = 1024
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 30 * time.Second
	}
	if resolver == nil {
		resolver = NewIdentityResolver(nil)
	}
	return &Verifier{
		resolver: resolver,
		store:    store,
		ttl:      config.CacheTTL,
		cache:    expirable.NewLRU[string, ResolvedIdentity](config.CacheSize, nil, config.CacheTTL),
	}
}

// Verify implements mcpauth.TokenVerifier. A token that resolves to no
// identity is rejected with mcpauth.ErrInvalidToken regardless of the cause.
func (v *Verifier) Verify(ctx context.Context, token string, req *http.Request) (*mcpauth.TokenInfo, error) {
	id, ok := v.lookup(ctx, token)
	if !ok {
		return nil, mcpauth.ErrInvalidToken
	}

	if id.AgentID == "" && req != nil {
		id.AgentID = strings.TrimSpace(req.Header.Get(AgentHeader))
	}

	expiration := time.Now().Add(v.ttl)
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(expiration) {
		expiration = id.ExpiresAt
	}

	return &mcpauth.TokenInfo{
		Scopes:     []string{string(id.Role)},
		Expiration: expiration,
		Extra: map[string]any{
			IdentityKey: NewSessionSlot(&id),
		},
	}, nil
}

// Purge drops every cached verification. Key mutations call it so revoked
// keys stop working immediately. Lookups already in flight still answer
// their callers but are not cached.
func (v *Verifier) Purge() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.cache.Purge()
}

func (v *Verifier) lookup(ctx context.Context, token string) (ResolvedIdentity, bool) {
	key := HashAPIKey(token)
	if id, ok := v.cache.Get(key); ok && !id.IsExpired() {
		return id, true
	}

	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()

	// Callers share a flight, so one caller going away must not fail the rest.
	flightCtx := context.WithoutCancel(ctx)
	res, _, _ := v.group.Do(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		return v.resolver.Resolve(flightCtx, v.store, token), nil
	})
	id, _ := res.(*ResolvedIdentity)
	if id == nil {
		return ResolvedIdentity{}, false
	}

	v.mu.Lock()
	if v.gen == gen {
		v.cache.Add(key, *id)
	}
	v.mu.Unlock()
	return *id, true
}

// SlotFromTokenInfo returns the session slot the verifier attached, or nil
// when the request carried no verified token.
func SlotFromTokenInfo(info *mcpauth.TokenInfo) *SessionSlot {
	if info == nil || info.Extra == nil {
		return nil
	}
	slot, _ := info.Extra[IdentityKey].(*SessionSlot)
	return slot
}

// Ensure Verifier.Verify satisfies the SDK verifier signature
var _ mcpauth.TokenVerifier = (*Verifier)(nil).Verify
