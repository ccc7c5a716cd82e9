package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT key store.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim).
	Issuer string

	// Audience is the expected token audience (aud claim).
	Audience string

	// AccountClaim is the claim containing the account id.
	// Default: "account_id"
	AccountClaim string

	// UserClaim is the claim containing the user id.
	// Default: "sub"
	UserClaim string

	// AgentClaim is the claim containing the agent id.
	// Default: "agent_id"
	AgentClaim string

	// RoleClaim is the claim containing the role.
	// Default: "role"
	RoleClaim string
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	if len(p.key) == 0 {
		return nil, ErrKeyNotFound
	}
	return p.key, nil
}

// JWTKeyStore resolves HMAC-signed JWTs carrying OpenViking identity claims.
// Tokens that are not shaped like a JWT are reported as unknown so that the
// store composes with API key stores.
type JWTKeyStore struct {
	config      JWTConfig
	keyProvider KeyProvider
}

// NewJWTKeyStore creates a new JWT key store.
func NewJWTKeyStore(config JWTConfig, keyProvider KeyProvider) *JWTKeyStore {
	// Apply defaults
	if config.AccountClaim == "" {
		config.AccountClaim = "account_id"
	}
	if config.UserClaim == "" {
		config.UserClaim = "sub"
	}
	if config.AgentClaim == "" {
		config.AgentClaim = "agent_id"
	}
	if config.RoleClaim == "" {
		config.RoleClaim = "role"
	}

	return &JWTKeyStore{
		config:      config,
		keyProvider: keyProvider,
	}
}

// Resolve validates token and builds an identity from its claims.
func (s *JWTKeyStore) Resolve(ctx context.Context, token string) (*ResolvedIdentity, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return s.keyProvider.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return s.buildIdentity(claims)
}

func (s *JWTKeyStore) buildIdentity(claims jwt.MapClaims) (*ResolvedIdentity, error) {
	roleStr, _ := claims[s.config.RoleClaim].(string)
	if roleStr == "" {
		roleStr = string(RoleUser)
	}
	role, err := ParseRole(roleStr)
	if err != nil {
		return nil, err
	}
	// ROOT is reserved for the root key.
	if role == RoleRoot {
		return nil, fmt.Errorf("%w: root role cannot be granted by token", ErrInvalidCredentials)
	}

	id := &ResolvedIdentity{
		Role:   role,
		Method: AuthMethodJWT,
	}
	id.AccountID, _ = claims[s.config.AccountClaim].(string)
	id.UserID, _ = claims[s.config.UserClaim].(string)
	id.AgentID, _ = claims[s.config.AgentClaim].(string)

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// SignToken issues an HS256 token for id. It is used by operators and tests to
// mint credentials that JWTKeyStore accepts.
func (s *JWTKeyStore) SignToken(ctx context.Context, id ResolvedIdentity, ttl time.Duration) (string, error) {
	key, err := s.keyProvider.GetKey(ctx, "")
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.MapClaims{
		s.config.AccountClaim: id.AccountID,
		s.config.UserClaim:    id.UserID,
		s.config.AgentClaim:   id.AgentID,
		s.config.RoleClaim:    string(id.Role),
		"iat":                 now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}
	if s.config.Audience != "" {
		claims["aud"] = s.config.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Ensure JWTKeyStore implements KeyStore
var _ KeyStore = (*JWTKeyStore)(nil)

// Ensure StaticKeyProvider implements KeyProvider
var _ KeyProvider = (*StaticKeyProvider)(nil)
