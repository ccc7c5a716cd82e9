package auth

import "sync"

// SessionSlot holds the identity attached to one protocol session.
// The identity is written at most once; an empty slot means no identity was
// attached, which is different from a failed resolution.
type SessionSlot struct {
	mu       sync.RWMutex
	identity *ResolvedIdentity
}

// NewSessionSlot returns a slot already holding id. A nil id yields an empty slot.
func NewSessionSlot(id *ResolvedIdentity) *SessionSlot {
	s := &SessionSlot{}
	if id != nil {
		cp := *id
		s.identity = &cp
	}
	return s
}

// Attach stores id in the slot. It fails with ErrIdentityAttached if the slot
// is already populated.
func (s *SessionSlot) Attach(id ResolvedIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity != nil {
		return ErrIdentityAttached
	}
	s.identity = &id
	return nil
}

// Identity returns a copy of the attached identity.
func (s *SessionSlot) Identity() (ResolvedIdentity, bool) {
	if s == nil {
		return ResolvedIdentity{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return ResolvedIdentity{}, false
	}
	return *s.identity, true
}

// BuildRequestContext derives the RequestContext for one call.
//
// With an attached identity, missing id components become "default" and the
// role is copied. Without one, the caller is the default user with ROOT role:
// a session only lacks an identity when authentication is not configured.
func BuildRequestContext(slot *SessionSlot) RequestContext {
	id, ok := slot.Identity()
	if !ok {
		return RequestContext{
			User: DefaultUserIdentifier(),
			Role: RoleRoot,
		}
	}
	return RequestContext{
		User: NewUserIdentifier(id.AccountID, id.UserID, id.AgentID),
		Role: id.Role,
	}
}
