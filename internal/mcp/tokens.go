// ABOUTME: MCP token store for mapping ephemeral URL tokens to client identity.
// ABOUTME: Tokens are minted at startup for clients that cannot send headers.

package mcp

import (
	"sync"

	"github.com/google/uuid"
)

// TokenStore manages ephemeral MCP access tokens. Unlike JWTs these live only
// for the process lifetime and ride in the URL path for clients that cannot
// set an Authorization header.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> client name
}

// NewTokenStore creates a new token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]string),
	}
}

// CreateToken generates a new token bound to the given client name.
// Returns the token string that should be included in MCP URLs.
func (s *TokenStore) CreateToken(name string) string {
	token := uuid.New().String()

	s.mu.Lock()
	s.tokens[token] = name
	s.mu.Unlock()

	return token
}

// Lookup returns the client name for a token and whether it exists.
func (s *TokenStore) Lookup(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.tokens[token]
	return name, ok
}

// InvalidateToken removes a token from the store.
func (s *TokenStore) InvalidateToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// TokenCount returns the number of active tokens (for monitoring).
func (s *TokenStore) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
