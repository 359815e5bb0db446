package session

import "sync"

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (s *MemoryStore) AccessToken() (string, error) {
	return s.get(AccessTokenKey)
}

func (s *MemoryStore) RefreshToken() (string, error) {
	return s.get(RefreshTokenKey)
}

func (s *MemoryStore) SetAccessToken(token string) error {
	s.set(AccessTokenKey, token)
	return nil
}

func (s *MemoryStore) SetRefreshToken(token string) error {
	s.set(RefreshTokenKey, token)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, AccessTokenKey)
	delete(s.tokens, RefreshTokenKey)
	return nil
}

func (s *MemoryStore) IsAuthenticated() bool {
	_, err := s.AccessToken()
	return err == nil
}

func (s *MemoryStore) get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[key]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *MemoryStore) set(key, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token
}
