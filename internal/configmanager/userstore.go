package configmanager

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	apperr "github.com/clusterhub/clustercore/internal/errors"
)

// CryptedAttributes marks an attribute name whose value must never be
// returned in cleartext once set — the `users/<n>/attributes` password
// field being the only one spec.md names (mirrors core.py's
// `cryptvalue: True` attribute metadata flag).
var CryptedAttributes = map[string]bool{
	"password": true,
}

// UserStore is a bcrypt-backed reference implementation for the
// `users` resource: passwords are hashed on write and never surfaced
// again, following the same one-way hashing discipline as the
// teacher's internal/auth API-key store.
type UserStore struct {
	mu    sync.RWMutex
	hash  map[string][]byte
	attrs map[string]map[string]string
}

// NewUserStore constructs an empty in-memory UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		hash:  make(map[string][]byte),
		attrs: make(map[string]map[string]string),
	}
}

// SetPassword hashes and stores password for username.
func (s *UserStore) SetPassword(username, password string) error {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.ErrCodeInternalServer, "failed to hash password", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hash[username] = h
	return nil
}

// CheckPassword reports whether password matches the stored hash for
// username.
func (s *UserStore) CheckPassword(username, password string) bool {
	s.mu.RLock()
	h, ok := s.hash[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(h, []byte(password)) == nil
}

// Attributes returns username's non-secret attributes — the password
// field is never included, matching CryptedAttributes (spec.md §6).
// Use HasPassword separately to decide whether a {cryptvalue: true}
// marker belongs in the caller-facing view; the stored hash itself
// never leaves this type.
func (s *UserStore) Attributes(ctx context.Context, username string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range s.attrs[username] {
		if CryptedAttributes[k] {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// HasPassword reports whether username has a stored password hash, so
// callers can add the {cryptvalue: true} marker (spec.md §6) without
// ever touching the hash itself.
func (s *UserStore) HasPassword(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hash[username]
	return ok
}

// SetAttributes merges attrs into username's attribute set, routing
// any "password" key through SetPassword instead of storing it
// verbatim.
func (s *UserStore) SetAttributes(ctx context.Context, username string, attrs map[string]string) error {
	if pw, ok := attrs["password"]; ok {
		if err := s.SetPassword(username, pw); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.attrs[username]
	if existing == nil {
		existing = make(map[string]string)
	}
	for k, v := range attrs {
		if k == "password" {
			continue
		}
		existing[k] = v
	}
	s.attrs[username] = existing
	return nil
}

// Delete removes username entirely.
func (s *UserStore) Delete(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hash, username)
	delete(s.attrs, username)
}

// List returns every known username.
func (s *UserStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	names := make([]string, 0, len(s.attrs)+len(s.hash))
	for u := range s.attrs {
		if !seen[u] {
			seen[u] = true
			names = append(names, u)
		}
	}
	for u := range s.hash {
		if !seen[u] {
			seen[u] = true
			names = append(names, u)
		}
	}
	return names
}
