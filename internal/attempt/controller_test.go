package attempt

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"quizdeck-service/internal/domain"
)

type staticFetcher struct {
	quiz domain.Quiz
	err  error
}

func (f staticFetcher) GetQuiz(context.Context, int64, string) (domain.Quiz, error) {
	if f.err != nil {
		return domain.Quiz{}, f.err
	}
	return f.quiz, nil
}

func plainQuiz(n int) domain.Quiz {
	quiz := domain.Quiz{ID: 7, Title: "plain"}
	for i := 0; i < n; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:             "q" + string(rune('a'+i)),
			Prompt:         "Prompt " + string(rune('a'+i)),
			Type:           domain.MultipleChoice,
			Options:        []string{"one", "two", "three"},
			CorrectAnswer:  1,
			PositivePoints: 4,
			NegativePoints: 1,
		})
	}
	return quiz
}

func strictQuiz(n int) domain.Quiz {
	quiz := plainQuiz(n)
	quiz.TimeLimit = true
	quiz.TimeLimitTotal = 5
	quiz.MakeStrict = true
	quiz.TimeLimitMinutes = 1
	return quiz
}

func timedQuiz(n int) domain.Quiz {
	quiz := plainQuiz(n)
	quiz.TimeLimit = true
	quiz.TimeLimitTotal = 1
	return quiz
}

func startAttempt(t *testing.T, quiz domain.Quiz, clock Clock, narrator Narrator) *Controller {
	t.Helper()
	ctrl := NewController(staticFetcher{quiz: quiz}, Options{
		Clock:    clock,
		Rand:     rand.New(rand.NewSource(42)),
		Narrator: narrator,
	})
	if err := ctrl.Start(context.Background(), quiz.ID, "alice"); err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestStartFetchFailureStaysOutOfProgress(t *testing.T) {
	ctrl := NewController(staticFetcher{err: domain.ErrQuizNotFound}, Options{Clock: newFakeClock()})

	err := ctrl.Start(context.Background(), 99, "alice")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz-not-found, got %v", err)
	}
	if ctrl.Snapshot().State != StateLoading {
		t.Fatalf("expected attempt to stay in loading, got %s", ctrl.Snapshot().State)
	}
	if err := ctrl.SelectAnswer(0); !errors.Is(err, domain.ErrAttemptNotStarted) {
		t.Fatalf("expected not-started error, got %v", err)
	}
}

func TestAnswerRetraction(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(2), newFakeClock(), nil)

	if err := ctrl.SelectAnswer(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Answered != 1 || snap.Selected == nil || *snap.Selected != 2 {
		t.Fatalf("expected option 2 recorded, got %+v", snap)
	}

	// Selecting the same option again deselects it.
	if err := ctrl.SelectAnswer(2); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	snap = ctrl.Snapshot()
	if snap.Answered != 0 || snap.Selected != nil {
		t.Fatalf("expected retraction, got %+v", snap)
	}
}

func TestEmptyQuizAttempt(t *testing.T) {
	ctrl := startAttempt(t, domain.Quiz{ID: 9, Title: "empty"}, newFakeClock(), nil)

	snap := ctrl.Snapshot()
	if snap.State != StateInProgress || snap.Question != nil || snap.QuestionCount != 0 {
		t.Fatalf("unexpected empty-quiz snapshot %+v", snap)
	}

	// No current question exists, so commands must degrade instead of
	// panicking.
	if err := ctrl.SelectAnswer(0); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out-of-range answer, got %v", err)
	}
	if err := ctrl.ToggleFlag(); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := ctrl.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}

	summary, err := ctrl.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if summary.TotalQuestions != 0 || summary.Answered != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if err := ctrl.ConfirmSubmit(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	card, err := ctrl.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if card.TotalPoints != 0 || card.Percentage != 0 {
		t.Fatalf("expected zero scorecard, got %+v", card)
	}
}

func TestAnswerOutOfRange(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(1), newFakeClock(), nil)
	if err := ctrl.SelectAnswer(3); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out-of-range error, got %v", err)
	}
	if err := ctrl.SelectAnswer(-1); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out-of-range error, got %v", err)
	}
}

func TestNavigationClamps(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(3), newFakeClock(), nil)

	for i := 0; i < 5; i++ {
		if err := ctrl.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", idx)
	}

	for i := 0; i < 5; i++ {
		if err := ctrl.Retreat(); err != nil {
			t.Fatalf("retreat: %v", err)
		}
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 0 {
		t.Fatalf("expected cursor clamped at 0, got %d", idx)
	}
}

func TestJumpViaNavigator(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(4), newFakeClock(), nil)

	if err := ctrl.JumpTo(2); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 2 {
		t.Fatalf("expected cursor 2, got %d", idx)
	}

	// Out-of-range jumps are silently rejected.
	if err := ctrl.JumpTo(99); err != nil {
		t.Fatalf("jump out of range: %v", err)
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 2 {
		t.Fatalf("expected cursor unchanged, got %d", idx)
	}

	snap := ctrl.Snapshot()
	if len(snap.Navigator) != 4 || !snap.Navigator[2].Current {
		t.Fatalf("expected navigator with current cell, got %+v", snap.Navigator)
	}
}

func TestStrictForwardOnly(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, strictQuiz(3), clock, nil)

	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// No sequence of inputs may move the cursor back or toggle a flag.
	if err := ctrl.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if err := ctrl.JumpTo(0); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if err := ctrl.ToggleFlag(); err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := ctrl.HandleKey(KeyArrowLeft, false, false); err != nil {
		t.Fatalf("key: %v", err)
	}

	snap := ctrl.Snapshot()
	if snap.QuestionIndex != 1 || snap.FlaggedCount != 0 {
		t.Fatalf("expected forward-only cursor at 1 with no flags, got %+v", snap)
	}
	if snap.Navigator != nil {
		t.Fatalf("expected navigator suppressed in strict mode")
	}
}

func TestWholeQuizTimeoutForcesSubmission(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, timedQuiz(5), clock, nil)

	if err := ctrl.SelectAnswer(1); err != nil {
		t.Fatalf("select: %v", err)
	}

	clock.Advance(61 * time.Second)

	snap := ctrl.Snapshot()
	if snap.State != StateCompleted || !snap.Forced {
		t.Fatalf("expected forced completion, got %+v", snap)
	}
	if snap.QuestionIndex != 0 {
		t.Fatalf("expected completion regardless of cursor, got %d", snap.QuestionIndex)
	}
	if err := ctrl.SelectAnswer(0); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}

	card, err := ctrl.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if card.EarnedPoints != 4 || card.TotalPoints != 20 {
		t.Fatalf("expected 4/20, got %+v", card)
	}

	// Terminal means terminal: more time changes nothing.
	clock.Advance(10 * time.Minute)
	if ctrl.Snapshot().State != StateCompleted {
		t.Fatalf("expected state to stay completed")
	}
}

func TestStrictPerQuestionForcedAdvance(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, strictQuiz(3), clock, nil)

	clock.Advance(60 * time.Second)
	snap := ctrl.Snapshot()
	if snap.State != StateInProgress || snap.QuestionIndex != 1 {
		t.Fatalf("expected forced advance to question 2, got %+v", snap)
	}
	if snap.QuestionRemaining != 60 {
		t.Fatalf("expected per-question countdown reset to 60, got %d", snap.QuestionRemaining)
	}

	clock.Advance(60 * time.Second)
	if idx := ctrl.Snapshot().QuestionIndex; idx != 2 {
		t.Fatalf("expected cursor 2, got %d", idx)
	}

	// Expiry on the last question forces submission.
	clock.Advance(60 * time.Second)
	snap = ctrl.Snapshot()
	if snap.State != StateCompleted || !snap.Forced {
		t.Fatalf("expected forced completion on last question, got %+v", snap)
	}
}

func TestManualAdvanceResetsPerQuestionCountdown(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, strictQuiz(3), clock, nil)

	clock.Advance(40 * time.Second)
	if rem := ctrl.Snapshot().QuestionRemaining; rem != 20 {
		t.Fatalf("expected 20s left, got %d", rem)
	}
	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if rem := ctrl.Snapshot().QuestionRemaining; rem != 60 {
		t.Fatalf("expected fresh allotment after advance, got %d", rem)
	}
}

func TestManualSubmitWithConfirmation(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, timedQuiz(3), clock, nil)

	if err := ctrl.SelectAnswer(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := ctrl.ToggleFlag(); err != nil {
		t.Fatalf("flag: %v", err)
	}
	clock.Advance(10 * time.Second)

	summary, err := ctrl.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if summary.TotalQuestions != 3 || summary.Answered != 1 || summary.Flagged != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.Timed || summary.RemainingSeconds != 50 {
		t.Fatalf("expected 50s remaining, got %+v", summary)
	}

	// The confirmation step alone must not complete the attempt.
	if ctrl.Snapshot().State != StateInProgress {
		t.Fatalf("expected attempt still in progress after summary")
	}

	if err := ctrl.ConfirmSubmit(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.State != StateCompleted || snap.Forced {
		t.Fatalf("expected manual completion, got %+v", snap)
	}
	if snap.Scorecard == nil || snap.Scorecard.EarnedPoints != 4 {
		t.Fatalf("expected scorecard with 4 earned, got %+v", snap.Scorecard)
	}
}

func TestShuffleOnceThenStable(t *testing.T) {
	quiz := plainQuiz(6)
	ctrl := startAttempt(t, quiz, newFakeClock(), nil)

	order := questionOrder(t, ctrl, 6)

	seen := make(map[string]bool)
	for _, id := range order {
		seen[id] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected a permutation of all questions, got %v", order)
	}

	// Answer and navigate around, then re-read: the order must not move.
	if err := ctrl.JumpTo(3); err != nil {
		t.Fatalf("jump: %v", err)
	}
	if err := ctrl.SelectAnswer(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	again := questionOrder(t, ctrl, 6)
	for i := range order {
		if order[i] != again[i] {
			t.Fatalf("question order changed at %d: %v vs %v", i, order, again)
		}
	}
}

func questionOrder(t *testing.T, ctrl *Controller, n int) []string {
	t.Helper()
	order := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctrl.JumpTo(i); err != nil {
			t.Fatalf("jump %d: %v", i, err)
		}
		snap := ctrl.Snapshot()
		if snap.Question == nil {
			t.Fatalf("expected question at %d", i)
		}
		order = append(order, snap.Question.ID)
	}
	return order
}

func TestTimeSpentMeasuredPerQuestion(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, plainQuiz(2), clock, nil)

	clock.Advance(3 * time.Second)
	if err := ctrl.SelectAnswer(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	id := ctrl.Snapshot().Question.ID
	entry, ok := ctrl.ledger.Get(id)
	if !ok || entry.TimeSpent != 3*time.Second {
		t.Fatalf("expected 3s time spent, got %+v ok=%v", entry, ok)
	}

	// The baseline resets when the question changes.
	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	clock.Advance(5 * time.Second)
	if err := ctrl.SelectAnswer(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	id = ctrl.Snapshot().Question.ID
	entry, _ = ctrl.ledger.Get(id)
	if entry.TimeSpent != 5*time.Second {
		t.Fatalf("expected 5s time spent, got %v", entry.TimeSpent)
	}
}

func TestFlagSnapshotAtRecordTime(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(1), newFakeClock(), nil)

	if err := ctrl.SelectAnswer(0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := ctrl.ToggleFlag(); err != nil {
		t.Fatalf("flag: %v", err)
	}

	// The ledger keeps the snapshot taken when the answer was recorded;
	// the live set is the source of truth for summaries.
	id := ctrl.Snapshot().Question.ID
	entry, _ := ctrl.ledger.Get(id)
	if entry.Flagged {
		t.Fatalf("expected recorded snapshot unflagged, got %+v", entry)
	}
	summary, err := ctrl.RequestSubmit()
	if err != nil {
		t.Fatalf("request submit: %v", err)
	}
	if summary.Flagged != 1 {
		t.Fatalf("expected live flag in summary, got %+v", summary)
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(3), newFakeClock(), nil)

	if err := ctrl.HandleKey(KeyArrowRight, false, false); err != nil {
		t.Fatalf("key right: %v", err)
	}
	if err := ctrl.HandleKey(KeyEnter, false, false); err != nil {
		t.Fatalf("key enter: %v", err)
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 2 {
		t.Fatalf("expected cursor 2, got %d", idx)
	}

	if err := ctrl.HandleKey(KeyArrowLeft, false, false); err != nil {
		t.Fatalf("key left: %v", err)
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 1 {
		t.Fatalf("expected cursor 1, got %d", idx)
	}

	if err := ctrl.HandleKey(KeyF, true, false); err != nil {
		t.Fatalf("key flag: %v", err)
	}
	if !ctrl.Snapshot().Flagged {
		t.Fatalf("expected current question flagged")
	}
	// Plain F without the modifier does nothing.
	if err := ctrl.HandleKey(KeyF, false, false); err != nil {
		t.Fatalf("key f: %v", err)
	}
	if !ctrl.Snapshot().Flagged {
		t.Fatalf("expected flag untouched without modifier")
	}

	// Shortcuts are suppressed inside text inputs.
	if err := ctrl.HandleKey(KeyArrowLeft, false, true); err != nil {
		t.Fatalf("key in input: %v", err)
	}
	if idx := ctrl.Snapshot().QuestionIndex; idx != 1 {
		t.Fatalf("expected cursor unchanged in text input, got %d", idx)
	}
}

type spyNarrator struct {
	mu         sync.Mutex
	utterances []spokenUtterance
}

type spokenUtterance struct {
	ctx  context.Context
	text string
}

func (s *spyNarrator) Speak(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utterances = append(s.utterances, spokenUtterance{ctx: ctx, text: text})
}

func (s *spyNarrator) wait(t *testing.T, n int) []spokenUtterance {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		if len(s.utterances) >= n {
			out := make([]spokenUtterance, len(s.utterances))
			copy(out, s.utterances)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d utterances", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNarrationCancelsPreviousUtterance(t *testing.T) {
	narrator := &spyNarrator{}
	ctrl := startAttempt(t, plainQuiz(2), newFakeClock(), narrator)

	ctrl.SetVoiceEnabled(true)
	first := narrator.wait(t, 1)[0]
	if first.text != ctrl.Snapshot().Question.Prompt {
		t.Fatalf("expected current prompt spoken, got %q", first.text)
	}

	if err := ctrl.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	all := narrator.wait(t, 2)

	select {
	case <-first.ctx.Done():
	default:
		t.Fatalf("expected first utterance cancelled when the next started")
	}
	if all[1].text != ctrl.Snapshot().Question.Prompt {
		t.Fatalf("expected new prompt spoken, got %q", all[1].text)
	}
}

func TestCloseCancelsPendingTicks(t *testing.T) {
	clock := newFakeClock()
	ctrl := startAttempt(t, strictQuiz(3), clock, nil)

	ctrl.Close()

	// Torn-down attempts ignore time entirely: no forced transitions, no
	// panics from dangling timers.
	clock.Advance(10 * time.Minute)
	if state := ctrl.Snapshot().State; state != StateInProgress {
		t.Fatalf("expected abandoned attempt to keep its last state, got %s", state)
	}
	if err := ctrl.SelectAnswer(0); !errors.Is(err, domain.ErrAttemptCompleted) {
		t.Fatalf("expected mutation rejected after close, got %v", err)
	}
}

func TestSubscribeInitialSnapshotNeverStale(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(2), newFakeClock(), nil)

	// Race a subscription against an answer being recorded. Whatever
	// interleaving happens, the answered counts seen on the channel must
	// never go backwards: an initial snapshot delivered after a newer
	// published one would.
	for i := 0; i < 50; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := ctrl.SelectAnswer(1); err != nil {
				t.Errorf("select: %v", err)
			}
		}()
		events, cancel := ctrl.Subscribe()

		last := -1
		for event := range events {
			if event.Snapshot.Answered < last {
				t.Fatalf("iteration %d: answered went backwards, %d after %d", i, event.Snapshot.Answered, last)
			}
			last = event.Snapshot.Answered
			if last == 1 {
				break
			}
		}
		cancel()
		<-done

		// Retract to reset for the next round.
		if err := ctrl.SelectAnswer(1); err != nil {
			t.Fatalf("retract: %v", err)
		}
	}
}

func TestSubscribeDeliversLifecycleEvents(t *testing.T) {
	ctrl := startAttempt(t, plainQuiz(2), newFakeClock(), nil)

	events, cancel := ctrl.Subscribe()
	defer cancel()

	initial := <-events
	if initial.Kind != EventState || initial.Snapshot.State != StateInProgress {
		t.Fatalf("expected initial in-progress snapshot, got %+v", initial)
	}

	if err := ctrl.SelectAnswer(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	update := <-events
	if update.Snapshot.Answered != 1 {
		t.Fatalf("expected answered count 1, got %+v", update.Snapshot)
	}

	if err := ctrl.ConfirmSubmit(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	final := <-events
	if final.Kind != EventCompleted || final.Snapshot.Scorecard == nil {
		t.Fatalf("expected completed event with scorecard, got %+v", final)
	}
}
