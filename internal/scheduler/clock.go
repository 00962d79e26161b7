package scheduler

import "time"

// Clock is the scheduler's time source, measured from an arbitrary origin.
type Clock interface {
	Now() time.Duration
}

type realClock struct {
	origin time.Time
}

func NewRealClock() Clock {
	return &realClock{origin: time.Now()}
}

func (c *realClock) Now() time.Duration {
	return time.Since(c.origin)
}

// ManualClock only moves when told to: through Advance and Set, or through Step.
type ManualClock struct {
	now time.Duration

	// Step is added after every Now call, whoever the reader is. ShouldYield, task
	// timestamps and update event times all read the clock, so how far a render moves
	// time depends on how often the engine reads it, not on how much work it does.
	// Leave Step at zero and use Advance when a test needs exact times.
	Step time.Duration
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Now() time.Duration {
	now := c.now
	c.now += c.Step
	return now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now += d
}

func (c *ManualClock) Set(now time.Duration) {
	c.now = now
}
