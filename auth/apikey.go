package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
)

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateAPIKey returns a new random 64-character hex key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// MemoryKeyStore is an in-memory key store keyed by key hash.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]ResolvedIdentity
}

// NewMemoryKeyStore creates a new in-memory key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		keys: make(map[string]ResolvedIdentity),
	}
}

// Resolve looks up token by its hash.
func (s *MemoryKeyStore) Resolve(_ context.Context, token string) (*ResolvedIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[HashAPIKey(token)]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

// Add registers token for id.
func (s *MemoryKeyStore) Add(token string, id ResolvedIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.Method == "" {
		id.Method = AuthMethodAPIKey
	}
	s.keys[HashAPIKey(token)] = id
}

// Remove forgets token.
func (s *MemoryKeyStore) Remove(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, HashAPIKey(token))
}

// Ensure MemoryKeyStore implements KeyStore
var _ KeyStore = (*MemoryKeyStore)(nil)
