package blink

import (
	"image"
	"time"

	"github.com/lixenwraith/blinker/status"
)

type options struct {
	interval  time.Duration
	content   image.Image
	limit     int
	name      string
	registry  *status.Registry
	observers []func(visible bool)
}

// Option configures a Toggle at construction
type Option func(*options)

// WithInterval sets the initial blink cadence
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithContent shows img on the target at construction; the target must be a ContentTarget
func WithContent(img image.Image) Option {
	return func(o *options) { o.content = img }
}

// WithLimit stops blinking after n toggles per Start; n <= 0 blinks until stopped
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithName labels the toggle in logs and metric keys
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithStatus publishes toggle state under "blink.<name>.*" in reg
func WithStatus(reg *status.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithObserver calls fn after every toggle with the new visibility
// fn runs inside the tick and may call Stop
func WithObserver(fn func(visible bool)) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}
