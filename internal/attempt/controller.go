package attempt

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"quizdeck-service/internal/domain"
)

// State is the attempt lifecycle phase.
type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in-progress"
	StateCompleted  State = "completed"
)

// QuizFetcher is the read-only collaborator an attempt loads its quiz
// from. Implementations enforce the draft visibility rule and report
// missing or invisible quizzes as domain.ErrQuizNotFound.
type QuizFetcher interface {
	GetQuiz(ctx context.Context, quizID int64, viewer string) (domain.Quiz, error)
}

// Options tune a Controller. The zero value gives production behavior.
type Options struct {
	Clock    Clock      // defaults to SystemClock
	Rand     *rand.Rand // shuffle source, defaults to a time-seeded one
	Narrator Narrator   // voice narration sink, defaults to none
}

// Controller runs one user's pass through one quiz: Loading → InProgress
// → Completed. It owns the ledger, the flag set, and both countdowns, and
// serializes every command and tick handler under one lock so no two
// mutations interleave.
type Controller struct {
	fetcher  QuizFetcher
	clock    Clock
	rnd      *rand.Rand
	narrator Narrator

	mu            sync.Mutex
	state         State
	closed        bool
	quiz          domain.Quiz // questions in attempt order, shuffled once
	cursor        int
	ledger        *Ledger
	flagged       map[string]struct{} // keyed by question ID, like the ledger
	questionStart time.Time
	voiceEnabled  bool
	cancelSpeech  context.CancelFunc

	whole *countdown // whole-quiz limit, armed iff quiz.TimeLimit
	perQ  *countdown // per-question limit, armed iff quiz.MakeStrict

	forced    bool
	scorecard Scorecard

	subscribers map[chan Event]struct{}
}

// NewController builds an attempt in the Loading state.
func NewController(fetcher QuizFetcher, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		fetcher:     fetcher,
		clock:       opts.Clock,
		rnd:         opts.Rand,
		narrator:    opts.Narrator,
		state:       StateLoading,
		ledger:      NewLedger(),
		flagged:     make(map[string]struct{}),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Start fetches the quiz and enters InProgress. The fetch is the only
// asynchronous boundary in the attempt: on any error the controller stays
// in Loading and no partial attempt state is constructed.
func (c *Controller) Start(ctx context.Context, quizID int64, viewer string) error {
	quiz, err := c.fetcher.GetQuiz(ctx, quizID, viewer)
	if err != nil {
		return fmt.Errorf("load quiz %d: %w", quizID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateLoading {
		return ErrAlreadyStarted
	}

	// Shuffle once; the order is fixed for the rest of the attempt. IDs
	// are the ledger's identity, so any question without one gets a
	// positional fallback before the order changes.
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = "q" + strconv.Itoa(i+1)
		}
	}
	c.rnd.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	quiz.Questions = questions

	c.quiz = quiz
	c.state = StateInProgress
	c.cursor = 0
	c.questionStart = c.clock.Now()

	c.whole = newCountdown(c.clock, c.runHandler, time.Duration(quiz.TimeLimitTotal)*time.Minute,
		func() { c.completeLocked(true) },
		func(time.Duration) { c.publishLocked(EventTick) })
	c.perQ = newCountdown(c.clock, c.runHandler, time.Duration(quiz.TimeLimitMinutes)*time.Minute,
		c.questionExpiredLocked,
		func(time.Duration) { c.publishLocked(EventTick) })

	if quiz.TimeLimit {
		c.whole.start()
	}
	if quiz.MakeStrict {
		c.perQ.start()
	}

	c.narrateLocked()
	c.publishLocked(EventState)
	return nil
}

// runHandler serializes countdown ticks with user commands and drops
// ticks that outlive the attempt.
func (c *Controller) runHandler(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StateInProgress {
		return
	}
	f()
}

// SelectAnswer records the given option for the current question, or
// retracts the existing entry when the same option is selected again.
func (c *Controller) SelectAnswer(option int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	// A quiz with no questions is valid; it has no current question to
	// answer, so every option index is out of range.
	if len(c.quiz.Questions) == 0 {
		return domain.ErrOptionOutOfRange
	}
	q := c.quiz.Questions[c.cursor]
	if option < 0 || option >= len(q.RenderedOptions()) {
		return domain.ErrOptionOutOfRange
	}
	_, isFlagged := c.flagged[q.ID]
	c.ledger.Record(q.ID, domain.ChoiceAnswer(option), c.clock.Now().Sub(c.questionStart), isFlagged)
	c.publishLocked(EventState)
	return nil
}

// Advance moves to the next question, clamped at the last one. The
// per-question countdown resets unconditionally; without strict mode it
// is inert, so the reset has no forcing effect.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	if c.cursor < len(c.quiz.Questions)-1 {
		c.moveCursorLocked(c.cursor + 1)
	}
	c.perQ.reset()
	c.publishLocked(EventState)
	return nil
}

// Retreat moves to the previous question, clamped at the first. Strict
// attempts are forward-only: the call is silently rejected, a policy
// boundary rather than a fault.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	if c.quiz.MakeStrict {
		return nil
	}
	if c.cursor > 0 {
		c.moveCursorLocked(c.cursor - 1)
	}
	c.publishLocked(EventState)
	return nil
}

// JumpTo sets the cursor directly, as the question navigator does. The
// navigator is suppressed in strict mode, so jumps are too; out-of-range
// indexes are likewise silently rejected.
func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	if c.quiz.MakeStrict || index < 0 || index >= len(c.quiz.Questions) {
		return nil
	}
	if index != c.cursor {
		c.moveCursorLocked(index)
	}
	c.publishLocked(EventState)
	return nil
}

// ToggleFlag marks or unmarks the current question for review. Disabled
// in strict mode. The live flag set is the source of truth for summaries
// and navigator badges; ledger entries keep only the snapshot taken when
// the answer was recorded.
func (c *Controller) ToggleFlag() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	if c.quiz.MakeStrict || len(c.quiz.Questions) == 0 {
		return nil
	}
	id := c.quiz.Questions[c.cursor].ID
	if _, ok := c.flagged[id]; ok {
		delete(c.flagged, id)
	} else {
		c.flagged[id] = struct{}{}
	}
	c.publishLocked(EventState)
	return nil
}

// SetVoiceEnabled toggles narration; enabling it speaks the current
// question immediately.
func (c *Controller) SetVoiceEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.voiceEnabled = enabled
	if enabled && c.state == StateInProgress {
		c.narrateLocked()
	}
}

// RequestSubmit returns the confirmation summary shown before a manual
// submission commits. It does not change state.
func (c *Controller) RequestSubmit() (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return Summary{}, err
	}
	remaining := 0
	if c.quiz.MakeStrict {
		remaining = c.perQ.remainingSeconds()
	} else if c.quiz.TimeLimit {
		remaining = c.whole.remainingSeconds()
	}
	return Summary{
		TotalQuestions:   len(c.quiz.Questions),
		Answered:         c.ledger.Count(),
		Flagged:          len(c.flagged),
		Timed:            c.quiz.TimeLimit,
		RemainingSeconds: remaining,
	}, nil
}

// ConfirmSubmit commits a manual submission.
func (c *Controller) ConfirmSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inProgressLocked(); err != nil {
		return err
	}
	c.completeLocked(false)
	return nil
}

// Result returns the scorecard of a completed attempt.
func (c *Controller) Result() (Scorecard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCompleted {
		return Scorecard{}, domain.ErrAttemptNotFound
	}
	return c.scorecard, nil
}

// Close tears the attempt down: pending ticks are cancelled and narration
// stops. Safe to call at any time, including mid-attempt when the taker
// navigates away.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.stopSpeechLocked()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) inProgressLocked() error {
	switch {
	case c.closed:
		return domain.ErrAttemptCompleted
	case c.state == StateLoading:
		return domain.ErrAttemptNotStarted
	case c.state == StateCompleted:
		return domain.ErrAttemptCompleted
	}
	return nil
}

// moveCursorLocked repositions the attempt on a new question: the
// timeSpent baseline resets and the prompt is narrated.
func (c *Controller) moveCursorLocked(index int) {
	c.cursor = index
	c.questionStart = c.clock.Now()
	c.narrateLocked()
}

// questionExpiredLocked handles per-question countdown expiry: forced
// submission on the last question, forced advance with a fresh allotment
// otherwise.
func (c *Controller) questionExpiredLocked() {
	if c.cursor >= len(c.quiz.Questions)-1 {
		c.completeLocked(true)
		return
	}
	c.moveCursorLocked(c.cursor + 1)
	// reset only refreshes a live countdown; expiry deactivates it, so
	// re-arm explicitly.
	c.perQ.start()
	c.publishLocked(EventState)
}

// completeLocked is the single InProgress → Completed transition. It
// freezes the ledger, stops both countdowns, cancels narration, and
// grades the attempt.
func (c *Controller) completeLocked(forced bool) {
	c.state = StateCompleted
	c.forced = forced
	c.stopTimersLocked()
	c.stopSpeechLocked()
	c.scorecard = Score(c.quiz, c.ledger)
	c.publishLocked(EventCompleted)
}

func (c *Controller) stopTimersLocked() {
	if c.whole != nil {
		c.whole.stop()
	}
	if c.perQ != nil {
		c.perQ.stop()
	}
}

func (c *Controller) narrateLocked() {
	if !c.voiceEnabled || c.narrator == nil || len(c.quiz.Questions) == 0 {
		return
	}
	c.stopSpeechLocked()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelSpeech = cancel
	prompt := c.quiz.Questions[c.cursor].Prompt
	go c.narrator.Speak(ctx, prompt)
}

func (c *Controller) stopSpeechLocked() {
	if c.cancelSpeech != nil {
		c.cancelSpeech()
		c.cancelSpeech = nil
	}
}
