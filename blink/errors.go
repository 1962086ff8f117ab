package blink

import "errors"

var (
	// ErrInvalidTarget is returned when constructing with a nil or dead target
	ErrInvalidTarget = errors.New("blink: invalid target")

	// ErrInvalidInterval is returned for non-positive intervals; the interval is left unchanged
	ErrInvalidInterval = errors.New("blink: interval must be positive")

	ErrInvalidScheduler = errors.New("blink: nil scheduler")

	// ErrStaleTarget is returned by caller-initiated operations once the target is gone
	// Ticks never surface it; they stop the toggle instead
	ErrStaleTarget = errors.New("blink: target no longer available")

	ErrClosed    = errors.New("blink: toggle closed")
	ErrNoContent = errors.New("blink: target does not display content")
)
