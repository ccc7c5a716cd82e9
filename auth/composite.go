package auth

import "context"

// CompositeKeyStore tries multiple key stores in sequence.
// The first store that recognizes the token wins.
type CompositeKeyStore struct {
	// Stores is the ordered list of key stores to try.
	Stores []KeyStore
}

// NewCompositeKeyStore creates a composite key store, skipping nil stores.
func NewCompositeKeyStore(stores ...KeyStore) *CompositeKeyStore {
	c := &CompositeKeyStore{}
	for _, s := range stores {
		if s != nil {
			c.Stores = append(c.Stores, s)
		}
	}
	return c
}

// Resolve tries each store in sequence. Errors propagate immediately.
func (c *CompositeKeyStore) Resolve(ctx context.Context, token string) (*ResolvedIdentity, error) {
	for _, store := range c.Stores {
		id, err := store.Resolve(ctx, token)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

// Ensure CompositeKeyStore implements KeyStore
var _ KeyStore = (*CompositeKeyStore)(nil)
