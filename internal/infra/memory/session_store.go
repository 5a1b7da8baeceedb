package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"quizdeck-service/internal/domain"
)

// SessionStore is an in-memory token-to-user session map with sliding
// expiration, for running without Redis (demos, tests).
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	user      domain.User
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]memorySession),
	}
}

func (s *SessionStore) Create(_ context.Context, user domain.User) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{user: user, expiresAt: s.clock().Add(s.ttl)}
	return token, nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || !session.expiresAt.After(s.clock()) {
		delete(s.sessions, token)
		return domain.User{}, domain.ErrSessionNotFound
	}

	// Sliding expiration, matching the Redis-backed store.
	session.expiresAt = s.clock().Add(s.ttl)
	s.sessions[token] = session
	return session.user, nil
}

func (s *SessionStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
