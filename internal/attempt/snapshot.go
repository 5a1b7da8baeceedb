package attempt

import (
	"errors"

	"quizdeck-service/internal/domain"
)

// ErrAlreadyStarted is returned when Start is called on an attempt that
// already left the Loading state.
var ErrAlreadyStarted = errors.New("attempt already started")

// Summary is the confirmation step shown before a manual submission.
type Summary struct {
	TotalQuestions   int  `json:"totalQuestions"`
	Answered         int  `json:"answered"`
	Flagged          int  `json:"flagged"`
	Timed            bool `json:"timed"`
	RemainingSeconds int  `json:"remainingSeconds"`
}

// QuestionView is the taker-facing projection of a question; it never
// carries the correct answer.
type QuestionView struct {
	ID             string              `json:"id"`
	Prompt         string              `json:"question"`
	Type           domain.QuestionType `json:"type"`
	Options        []string            `json:"options"`
	PositivePoints int                 `json:"positivePoints"`
	NegativePoints int                 `json:"negativePoints"`
}

// NavigatorCell backs one tile of the question navigator grid.
type NavigatorCell struct {
	Answered bool `json:"answered"`
	Flagged  bool `json:"flagged"`
	Current  bool `json:"current"`
}

// Snapshot is a consistent read of the attempt, taken under the
// controller lock and safe to hand to other goroutines.
type Snapshot struct {
	State         State         `json:"state"`
	QuizID        int64         `json:"quizId"`
	Title         string        `json:"quizTitle"`
	Strict        bool          `json:"strict"`
	Timed         bool          `json:"timed"`
	QuestionIndex int           `json:"questionIndex"`
	QuestionCount int           `json:"questionCount"`
	Question      *QuestionView `json:"question,omitempty"`
	Selected      *int          `json:"selected,omitempty"` // recorded option for the current question
	Answered      int           `json:"answered"`
	Flagged       bool          `json:"flagged"` // current question flagged
	FlaggedCount  int           `json:"flaggedCount"`

	WholeRemaining    int     `json:"wholeRemaining"`    // seconds, whole-quiz countdown
	QuestionRemaining int     `json:"questionRemaining"` // seconds, strict countdown
	QuestionProgress  float64 `json:"questionProgress"`  // (allotment-remaining)/allotment

	// Navigator is present only when the navigator UI is: non-strict
	// attempts in progress.
	Navigator []NavigatorCell `json:"navigator,omitempty"`

	Forced    bool       `json:"forced"`
	Scorecard *Scorecard `json:"scorecard,omitempty"`
}

// EventKind distinguishes why a snapshot was published.
type EventKind string

const (
	EventState     EventKind = "state"
	EventTick      EventKind = "tick"
	EventCompleted EventKind = "completed"
)

// Event is a published attempt update.
type Event struct {
	Kind     EventKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Subscribe returns a channel of attempt events, starting with the
// current state. The caller must invoke the returned cancel function to
// avoid leaks.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	// Send while holding the lock so a concurrent publish cannot slip a
	// newer snapshot in ahead of the initial one. The buffer is empty
	// here, so the send cannot block.
	ch <- Event{Kind: EventState, Snapshot: c.snapshotLocked()}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns a point-in-time view of the attempt.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) publishLocked(kind EventKind) {
	if len(c.subscribers) == 0 {
		return
	}
	event := Event{Kind: kind, Snapshot: c.snapshotLocked()}
	for ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the stalest update so a slow reader never blocks the
			// attempt.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         c.state,
		QuizID:        c.quiz.ID,
		Title:         c.quiz.Title,
		Strict:        c.quiz.MakeStrict,
		Timed:         c.quiz.TimeLimit,
		QuestionIndex: c.cursor,
		QuestionCount: len(c.quiz.Questions),
		Answered:      c.ledger.Count(),
		FlaggedCount:  len(c.flagged),
		Forced:        c.forced,
	}
	if c.quiz.TimeLimit && c.whole != nil {
		snap.WholeRemaining = c.whole.remainingSeconds()
	}
	if c.quiz.MakeStrict && c.perQ != nil {
		snap.QuestionRemaining = c.perQ.remainingSeconds()
		snap.QuestionProgress = c.perQ.progress()
	}
	if c.state == StateCompleted {
		card := c.scorecard
		snap.Scorecard = &card
	}
	if len(c.quiz.Questions) == 0 || c.state == StateLoading {
		return snap
	}

	current := c.quiz.Questions[c.cursor]
	snap.Question = &QuestionView{
		ID:             current.ID,
		Prompt:         current.Prompt,
		Type:           current.Type,
		Options:        current.RenderedOptions(),
		PositivePoints: current.PositivePoints,
		NegativePoints: current.NegativePoints,
	}
	if entry, ok := c.ledger.Get(current.ID); ok {
		selected := entry.Answer.Index
		snap.Selected = &selected
	}
	_, snap.Flagged = c.flagged[current.ID]

	if !c.quiz.MakeStrict && c.state == StateInProgress {
		snap.Navigator = make([]NavigatorCell, len(c.quiz.Questions))
		for i, q := range c.quiz.Questions {
			_, answered := c.ledger.Get(q.ID)
			_, flagged := c.flagged[q.ID]
			snap.Navigator[i] = NavigatorCell{
				Answered: answered,
				Flagged:  flagged,
				Current:  i == c.cursor,
			}
		}
	}
	return snap
}
