package app

import (
	"context"
	"sync"

	"quizdeck-service/internal/attempt"
	"quizdeck-service/internal/domain"
)

// AttemptStore abstracts how live attempts are held (in-memory today;
// the interface leaves room for sharding attempts across instances).
// One user has at most one active attempt.
type AttemptStore interface {
	Put(userID string, ctrl *attempt.Controller)
	Get(userID string) (*attempt.Controller, bool)
	Delete(userID string)
}

// QuizRepository loads quiz content (from cache/backing store) and
// enforces the draft visibility rule.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64, viewer string) (domain.Quiz, error)
}

// AttemptService owns the lifecycle of live attempts: begin, look up,
// and tear down. The mutex serializes ownership changes so concurrent
// connections for one user cannot both install an attempt and leave the
// loser's timers running.
type AttemptService struct {
	mu       sync.Mutex
	attempts AttemptStore
	quizzes  QuizRepository
	opts     attempt.Options
}

func NewAttemptService(store AttemptStore, quizzes QuizRepository, opts attempt.Options) *AttemptService {
	return &AttemptService{attempts: store, quizzes: quizzes, opts: opts}
}

// Begin starts a fresh attempt for the user, replacing and tearing down
// any previous one. On fetch failure no attempt is stored, so the caller
// can route to a not-found flow.
func (s *AttemptService) Begin(ctx context.Context, userID string, quizID int64) (*attempt.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.attempts.Get(userID); ok {
		prev.Close()
		s.attempts.Delete(userID)
	}

	ctrl := attempt.NewController(s.quizzes, s.opts)
	if err := ctrl.Start(ctx, quizID, userID); err != nil {
		ctrl.Close()
		return nil, err
	}
	s.attempts.Put(userID, ctrl)
	return ctrl, nil
}

// Get returns the user's active attempt.
func (s *AttemptService) Get(userID string) (*attempt.Controller, error) {
	ctrl, ok := s.attempts.Get(userID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return ctrl, nil
}

// Release tears down the user's attempt, cancelling timers and narration.
// Called when the taker disconnects or finishes reviewing results.
func (s *AttemptService) Release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl, ok := s.attempts.Get(userID)
	if !ok {
		return
	}
	ctrl.Close()
	s.attempts.Delete(userID)
}
