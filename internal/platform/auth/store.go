package auth

import (
	"context"
	"sync"
	"time"
)

// Token is a bearer token with its absolute expiry.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is unusable at instant now.
func (t Token) Expired(now time.Time) bool {
	return t.Value == "" || !now.Before(t.ExpiresAt)
}

// Store persists the session token outside the Manager so that separate
// processes (the gateway and CLI invocations) share one login.
type Store interface {
	// Load returns the stored token. ok is false when nothing is stored.
	Load(ctx context.Context) (tok Token, ok bool, err error)
	Save(ctx context.Context, tok Token) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	tok *Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return Token{}, false, nil
	}
	return *s.tok, true, nil
}

func (s *MemoryStore) Save(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = &tok
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}
