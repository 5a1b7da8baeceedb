package memory

import (
	"sync"

	"quizdeck-service/internal/attempt"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*attempt.Controller
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*attempt.Controller),
	}
}

func (s *AttemptStore) Put(userID string, ctrl *attempt.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[userID] = ctrl
}

func (s *AttemptStore) Get(userID string) (*attempt.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.attempts[userID]
	return ctrl, ok
}

func (s *AttemptStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, userID)
}
