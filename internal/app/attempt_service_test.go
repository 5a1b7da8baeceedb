package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quizdeck-service/internal/attempt"
	"quizdeck-service/internal/domain"
	"quizdeck-service/internal/infra/memory"
)

func newService(t *testing.T) *AttemptService {
	t.Helper()
	loader := memory.NewStaticQuizLoader(map[int64]domain.Quiz{
		1: {
			ID:      1,
			Title:   "sample",
			Creator: "alice",
			Questions: []domain.Question{{
				ID:             "q1",
				Prompt:         "pick",
				Type:           domain.MultipleChoice,
				Options:        []string{"a", "b"},
				CorrectAnswer:  0,
				PositivePoints: 1,
			}},
		},
	})
	repo := memory.NewQuizRepository(loader, 0)
	return NewAttemptService(memory.NewAttemptStore(), repo, attempt.Options{})
}

func TestBeginAndGet(t *testing.T) {
	svc := newService(t)

	ctrl, err := svc.Begin(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer svc.Release("alice")

	got, err := svc.Get("alice")
	if err != nil || got != ctrl {
		t.Fatalf("expected stored attempt, got %v err=%v", got, err)
	}
	if got.Snapshot().State != attempt.StateInProgress {
		t.Fatalf("expected in-progress attempt, got %s", got.Snapshot().State)
	}
}

func TestBeginReplacesPreviousAttempt(t *testing.T) {
	svc := newService(t)

	first, err := svc.Begin(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	second, err := svc.Begin(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	defer svc.Release("alice")

	if first == second {
		t.Fatal("expected a fresh controller")
	}
	// The old attempt is torn down, so mutations on it are rejected.
	if err := first.SelectAnswer(0); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected old attempt closed, got %v", err)
	}
	if err := second.SelectAnswer(0); err != nil {
		t.Fatalf("new attempt should be live: %v", err)
	}
}

func TestConcurrentBeginLeavesOneLiveAttempt(t *testing.T) {
	svc := newService(t)

	const racers = 8
	controllers := make([]*attempt.Controller, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctrl, err := svc.Begin(context.Background(), "alice", 1)
			if err != nil {
				t.Errorf("begin %d: %v", i, err)
				return
			}
			controllers[i] = ctrl
		}(i)
	}
	wg.Wait()
	defer svc.Release("alice")

	current, err := svc.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// Every displaced controller was torn down; only the stored one is
	// still accepting commands.
	live := 0
	for i, ctrl := range controllers {
		err := ctrl.SelectAnswer(0)
		switch {
		case err == nil:
			live++
			if ctrl != current {
				t.Fatalf("controller %d is live but not the stored one", i)
			}
		case errors.Is(err, domain.ErrAttemptCompleted):
		default:
			t.Fatalf("controller %d: unexpected error %v", i, err)
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live attempt, got %d", live)
	}
}

func TestBeginQuizNotFoundStoresNothing(t *testing.T) {
	svc := newService(t)

	_, err := svc.Begin(context.Background(), "alice", 404)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := svc.Get("alice"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected no stored attempt, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	svc := newService(t)

	ctrl, err := svc.Begin(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	svc.Release("alice")

	if _, err := svc.Get("alice"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt removed, got %v", err)
	}
	if err := ctrl.SelectAnswer(0); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected released attempt closed, got %v", err)
	}

	// Releasing again is a no-op.
	svc.Release("alice")
}
