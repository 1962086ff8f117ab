// Package clock provides the timer facility that drives periodic UI work.
//
// A Scheduler hands out Registrations for repeating callbacks. Two
// implementations exist: Loop runs callbacks on a single owning goroutine
// against wall-clock time, Manual runs them synchronously against
// simulated time for tests.
//
// Callbacks of one registration never overlap, and once Cancel returns the
// callback is never invoked again, even if a fire was already queued.
package clock

import "time"

// Scheduler is the process-wide periodic timer service
type Scheduler interface {
	// Now returns the scheduler's current time
	Now() time.Time

	// Every registers fn to run every d, first firing d from now
	// Panics if d is not positive
	Every(d time.Duration, fn func()) Registration
}

// Registration is the handle of one live periodic timer
type Registration interface {
	// Cancel releases the timer, returning true only if it was still active
	// Safe to call from any goroutine, including from inside the callback
	Cancel() bool
}

func mustPositive(d time.Duration) {
	if d <= 0 {
		panic("clock: invalid timer duration")
	}
}
