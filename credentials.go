package main

import (
	"sync"
)

// DefaultUser is the single placeholder identity credentials are stored
// under until real multi-user token management exists.
const DefaultUser = "default_user"

// Credential is the exchanged OAuth2 token bundle plus the client metadata
// needed to re-authenticate against the provider.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// CredentialStore holds exchanged credentials keyed by identity.
type CredentialStore interface {
	Get(identity string) (*Credential, bool)
	Put(identity string, cred *Credential)
}

// MemoryCredentialStore keeps credentials in unencrypted process memory.
// Acceptable as a placeholder only; swap for encrypted persistent storage
// before handling real accounts.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential
}

// NewMemoryCredentialStore creates an empty in-memory credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds: make(map[string]*Credential),
	}
}

// Get returns the stored credential for the identity, if any
func (s *MemoryCredentialStore) Get(identity string) (*Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[identity]
	return cred, ok
}

// Put replaces any existing credential for the identity
func (s *MemoryCredentialStore) Put(identity string, cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[identity] = cred
}
