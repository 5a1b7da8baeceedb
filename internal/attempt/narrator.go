package attempt

import "context"

// Narrator speaks a question prompt aloud when voice mode is on.
// Implementations must honor context cancellation: the controller cancels
// any in-flight utterance before starting the next one, so at most one
// utterance is ever active.
type Narrator interface {
	Speak(ctx context.Context, text string)
}

// NopNarrator discards all utterances.
type NopNarrator struct{}

func (NopNarrator) Speak(context.Context, string) {}
