package attempt

import (
	"math"
	"time"
)

// tickInterval is the shared scheduling primitive for both countdowns.
const tickInterval = time.Second

// countdown tracks a single monotonic deadline. Remaining time is derived
// from the deadline on every tick rather than decremented, so event-loop
// jitter can delay a tick but never stretch the total allotment. Each tick
// reschedules the next one relative to the previous handler's completion.
//
// All methods must run under the owning controller's lock; the scheduled
// tick re-enters through run, which the controller uses to serialize tick
// handlers with user commands.
type countdown struct {
	clock     Clock
	run       func(func()) // executes a handler under the controller lock
	allotment time.Duration
	deadline  time.Time
	timer     Timer
	active    bool
	expire    func()                        // fired once when the deadline passes
	tick      func(remaining time.Duration) // observer for each surviving tick, may be nil
}

func newCountdown(clock Clock, run func(func()), allotment time.Duration, expire func(), tick func(time.Duration)) *countdown {
	return &countdown{
		clock:     clock,
		run:       run,
		allotment: allotment,
		expire:    expire,
		tick:      tick,
	}
}

// start arms the countdown with a fresh deadline.
func (c *countdown) start() {
	c.cancelPending()
	c.deadline = c.clock.Now().Add(c.allotment)
	c.active = true
	c.schedule()
}

// reset re-arms the countdown to its full allotment. A countdown that was
// never started stays inert: resetting it records nothing and schedules
// nothing.
func (c *countdown) reset() {
	if !c.active {
		return
	}
	c.start()
}

// stop cancels the pending tick. Idempotent.
func (c *countdown) stop() {
	c.active = false
	c.cancelPending()
}

// remaining returns the time left before the deadline, floored at zero.
func (c *countdown) remaining() time.Duration {
	if !c.active {
		return 0
	}
	rem := c.deadline.Sub(c.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// remainingSeconds is the whole-second display value, rounded up so the
// countdown shows its full allotment on the first tick.
func (c *countdown) remainingSeconds() int {
	return int(math.Ceil(c.remaining().Seconds()))
}

// progress is the elapsed fraction of the allotment, in [0, 1].
func (c *countdown) progress() float64 {
	if c.allotment <= 0 {
		return 0
	}
	return float64(c.allotment-c.remaining()) / float64(c.allotment)
}

func (c *countdown) schedule() {
	c.timer = c.clock.AfterFunc(tickInterval, func() {
		c.run(c.onTick)
	})
}

// onTick runs under the controller lock. Expiry fires the transition and
// stops scheduling; otherwise the next tick is armed.
func (c *countdown) onTick() {
	if !c.active {
		return
	}
	rem := c.deadline.Sub(c.clock.Now())
	if rem <= 0 {
		c.active = false
		c.expire()
		return
	}
	if c.tick != nil {
		c.tick(rem)
	}
	c.schedule()
}

func (c *countdown) cancelPending() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
