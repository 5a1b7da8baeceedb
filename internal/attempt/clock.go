package attempt

import "time"

// Clock abstracts wall time and tick scheduling so attempts can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f in its own goroutine after d has elapsed and
	// returns a handle that can cancel the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancellable handle returned by Clock.AfterFunc.
type Timer interface {
	// Stop prevents the pending call from firing. It reports whether the
	// call was still pending.
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the production clock backed by the time package.
var SystemClock Clock = systemClock{}
