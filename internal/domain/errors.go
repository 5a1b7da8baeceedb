package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz id does not resolve, or resolves
	// to a draft the viewer does not own. The two cases are deliberately
	// indistinguishable to callers.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when a session token does not map to
	// a stored user record (expired or never issued).
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAttemptNotFound is returned when a user has no active attempt.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptCompleted is returned for mutations after an attempt
	// reached its terminal state.
	ErrAttemptCompleted = errors.New("attempt already completed")
	// ErrAttemptNotStarted is returned for mutations while the attempt is
	// still loading its quiz.
	ErrAttemptNotStarted = errors.New("attempt not started")

	// ErrOptionOutOfRange rejects an answer index that does not point into
	// the current question's rendered option list.
	ErrOptionOutOfRange = errors.New("option out of range")

	// ErrStrictWithoutTimeLimit rejects quizzes that enable the strict
	// per-question countdown without the whole-quiz limit.
	ErrStrictWithoutTimeLimit = errors.New("strict mode requires a time limit")
	// ErrInvalidTimeLimit rejects non-positive time allotments.
	ErrInvalidTimeLimit = errors.New("time limit must be positive")
	// ErrInvalidCorrectAnswer rejects questions whose correct answer does
	// not index into their option set.
	ErrInvalidCorrectAnswer = errors.New("correct answer out of range")
	// ErrInvalidPoints rejects negative point values.
	ErrInvalidPoints = errors.New("question points must not be negative")
)
