// Package auth holds the access/refresh credential pair and the
// interceptor that refreshes an expired access credential once per call.
package auth

import (
	"sync"

	"github.com/longkey1/llmcmp/internal/llmcmp/state"
)

// Credentials is the access/refresh pair issued by the comparison service.
// Either value may be empty.
type Credentials struct {
	Access  string
	Refresh string
}

// Store holds the process-wide credentials.
type Store interface {
	Get() Credentials
	SetAccess(access string) error
	Set(creds Credentials) error
	Clear() error
}

// MemoryStore keeps credentials in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
}

// NewMemoryStore returns a store seeded with creds.
func NewMemoryStore(creds Credentials) *MemoryStore {
	return &MemoryStore{creds: creds}
}

func (s *MemoryStore) Get() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

func (s *MemoryStore) SetAccess(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Access = access
	return nil
}

func (s *MemoryStore) Set(creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}

// StateStore persists credentials under the fixed "access" and "refresh"
// keys of a state.Store.
type StateStore struct {
	kv state.Store
}

// NewStateStore returns a Store backed by kv.
func NewStateStore(kv state.Store) *StateStore {
	return &StateStore{kv: kv}
}

func (s *StateStore) Get() Credentials {
	access, _ := s.kv.Get(state.KeyAccess)
	refresh, _ := s.kv.Get(state.KeyRefresh)
	return Credentials{Access: access, Refresh: refresh}
}

func (s *StateStore) SetAccess(access string) error {
	return s.kv.Set(state.KeyAccess, access)
}

func (s *StateStore) Set(creds Credentials) error {
	if creds.Access == "" {
		if err := s.kv.Delete(state.KeyAccess); err != nil {
			return err
		}
	} else if err := s.kv.Set(state.KeyAccess, creds.Access); err != nil {
		return err
	}
	if creds.Refresh == "" {
		return s.kv.Delete(state.KeyRefresh)
	}
	return s.kv.Set(state.KeyRefresh, creds.Refresh)
}

func (s *StateStore) Clear() error {
	return s.kv.Delete(state.KeyAccess, state.KeyRefresh)
}
