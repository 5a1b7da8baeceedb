package attempt

import (
	"time"

	"quizdeck-service/internal/domain"
)

// Entry records one explicit selection for a question.
type Entry struct {
	Answer    domain.Answer
	TimeSpent time.Duration // elapsed between the question becoming current and the selection
	Flagged   bool          // flag state at the moment of recording, not live-synced
}

// Ledger maps stable question IDs to recorded selections for a single
// attempt. An entry exists for a question if and only if the taker made
// an explicit selection; recording the identical answer again retracts
// the entry (deselecting an option).
//
// The ledger is not safe for concurrent use: it is owned by one
// Controller, which serializes every mutation.
type Ledger struct {
	entries map[string]Entry
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]Entry)}
}

// Record inserts or replaces the entry for questionID. If the existing
// entry holds the same answer, the entry is deleted instead. Option
// bounds are not validated here; the caller guarantees the answer indexes
// into the rendered option list.
func (l *Ledger) Record(questionID string, answer domain.Answer, timeSpent time.Duration, flagged bool) {
	if existing, ok := l.entries[questionID]; ok && existing.Answer.Equal(answer) {
		delete(l.entries, questionID)
		return
	}
	l.entries[questionID] = Entry{Answer: answer, TimeSpent: timeSpent, Flagged: flagged}
}

// Get returns the entry for questionID, if one exists.
func (l *Ledger) Get(questionID string) (Entry, bool) {
	entry, ok := l.entries[questionID]
	return entry, ok
}

// Count reports the number of answered (non-retracted) questions.
func (l *Ledger) Count() int {
	return len(l.entries)
}
