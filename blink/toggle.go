// Package blink makes a visual element blink at a configurable interval.
//
// A Toggle holds a non-owning reference to its Target and one timer
// registration while running. Each tick flips the target's visibility.
// All methods except IsBlinking must be called from the goroutine that
// drives the Scheduler (the clock.Loop goroutine, or the caller of
// clock.Manual.Advance).
//
// Changing the interval of a running toggle restarts its timer, so the next
// toggle happens one new interval after the change.
package blink

import (
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/lixenwraith/blinker/clock"
	"github.com/lixenwraith/blinker/status"
)

const (
	DefaultInterval = 100 * time.Millisecond

	// MinInterval is the floor positive intervals are clamped to
	MinInterval = time.Millisecond
)

// Toggle is a periodic visibility oscillator bound to one target
type Toggle struct {
	sched clock.Scheduler
	ref   Ref
	name  string

	interval time.Duration
	visible  bool
	ticks    int // since construction
	runTicks int // since last Start
	limit    int
	gen      uint64
	closed   bool

	running atomic.Bool
	lease   *lease

	observers []func(visible bool)
	metrics   *metrics
}

// lease owns the scheduler registration; it is shared with the cleanup hook
// and the timer callback, neither of which may reference the Toggle strongly
type lease struct {
	mu  sync.Mutex
	reg clock.Registration
}

func (l *lease) hold(reg clock.Registration) {
	l.mu.Lock()
	l.reg = reg
	l.mu.Unlock()
}

func (l *lease) release() {
	l.mu.Lock()
	reg := l.reg
	l.reg = nil
	l.mu.Unlock()

	if reg != nil {
		reg.Cancel()
	}
}

// New binds a toggle to target, which the caller keeps alive
// The toggle starts stopped
func New(sched clock.Scheduler, target Target, opts ...Option) (*Toggle, error) {
	if isNil(target) {
		return nil, ErrInvalidTarget
	}
	return NewRef(sched, Retain(target), opts...)
}

// NewRef binds a toggle to the target behind ref, typically a Weak ref
func NewRef(sched clock.Scheduler, ref Ref, opts ...Option) (*Toggle, error) {
	if sched == nil {
		return nil, ErrInvalidScheduler
	}
	if ref == nil {
		return nil, ErrInvalidTarget
	}
	target, ok := ref.Resolve()
	if !ok {
		return nil, ErrInvalidTarget
	}

	o := options{
		interval: DefaultInterval,
		name:     "default",
	}
	for _, opt := range opts {
		opt(&o)
	}

	interval, err := normalizeInterval(o.interval)
	if err != nil {
		return nil, err
	}

	if o.content != nil {
		ct, ok := target.(ContentTarget)
		if !ok {
			return nil, ErrNoContent
		}
		ct.SetContent(o.content)
	}

	t := &Toggle{
		sched:     sched,
		ref:       ref,
		name:      o.name,
		interval:  interval,
		visible:   target.Visible(),
		limit:     o.limit,
		lease:     &lease{},
		observers: o.observers,
	}
	if o.registry != nil {
		t.metrics = bindMetrics(o.registry, o.name)
	}
	t.publish()

	// Dropping a running toggle without Close still releases its timer
	runtime.AddCleanup(t, func(l *lease) { l.release() }, t.lease)

	return t, nil
}

func normalizeInterval(d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidInterval, d)
	}
	if d < MinInterval {
		d = MinInterval
	}
	return d, nil
}

// Start begins blinking from the target's current visibility
// Calling Start on a running toggle does nothing
func (t *Toggle) Start() error {
	if t.closed {
		return ErrClosed
	}
	if t.running.Load() {
		return nil
	}

	target, ok := t.ref.Resolve()
	if !ok {
		return ErrStaleTarget
	}
	t.visible = target.Visible()
	t.runTicks = 0
	t.running.Store(true)
	t.schedule()
	t.publish()
	return nil
}

// Stop cancels the timer, leaving the target as it is
// No tick runs after Stop returns; calling it on a stopped toggle does nothing
func (t *Toggle) Stop() {
	if !t.running.Load() {
		return
	}
	t.lease.release()
	t.gen++
	t.running.Store(false)
	t.publish()
}

// IsBlinking reports whether the timer is active; safe from any goroutine
func (t *Toggle) IsBlinking() bool {
	return t.running.Load()
}

// SetInterval changes the cadence; a running toggle restarts its timer at once
// Non-positive values are rejected and leave the interval unchanged
func (t *Toggle) SetInterval(d time.Duration) error {
	if t.closed {
		return ErrClosed
	}
	d, err := normalizeInterval(d)
	if err != nil {
		return err
	}

	t.interval = d
	if t.running.Load() {
		t.lease.release()
		t.schedule()
	}
	t.publish()
	return nil
}

// Interval returns the current cadence
func (t *Toggle) Interval() time.Duration {
	return t.interval
}

// Visible returns the visibility last applied to or read from the target
func (t *Toggle) Visible() bool {
	return t.visible
}

// Ticks returns the number of toggles since construction
func (t *Toggle) Ticks() int {
	return t.ticks
}

func (t *Toggle) Name() string {
	return t.name
}

// SetContent replaces the image shown by a ContentTarget
func (t *Toggle) SetContent(img image.Image) error {
	if t.closed {
		return ErrClosed
	}
	target, ok := t.ref.Resolve()
	if !ok {
		return ErrStaleTarget
	}
	ct, ok := target.(ContentTarget)
	if !ok {
		return ErrNoContent
	}
	ct.SetContent(img)
	return nil
}

// Content returns the target's image, or nil if it has none or is gone
func (t *Toggle) Content() image.Image {
	if t.closed {
		return nil
	}
	target, ok := t.ref.Resolve()
	if !ok {
		return nil
	}
	if ct, ok := target.(ContentTarget); ok {
		return ct.Content()
	}
	return nil
}

// Close stops the toggle and detaches it from its target for good
func (t *Toggle) Close() {
	if t.closed {
		return
	}
	t.Stop()
	t.closed = true
	t.ref = nil
	t.observers = nil
	t.publish()
}

func (t *Toggle) schedule() {
	t.gen++
	gen := t.gen
	wp := weak.Make(t)
	l := t.lease

	reg := t.sched.Every(t.interval, func() {
		tt := wp.Value()
		if tt == nil {
			l.release()
			return
		}
		tt.tick(gen)
	})
	l.hold(reg)
}

func (t *Toggle) tick(gen uint64) {
	// Fire from a registration replaced by SetInterval or Stop/Start
	if gen != t.gen || !t.running.Load() {
		return
	}

	target, ok := t.ref.Resolve()
	if !ok {
		log.Printf("blink: %s: target gone after %d ticks, stopping", t.name, t.ticks)
		t.Stop()
		return
	}

	t.visible = !t.visible
	target.SetVisible(t.visible)
	t.ticks++
	t.runTicks++
	t.publish()

	for _, fn := range t.observers {
		fn(t.visible)
		if t.closed {
			return
		}
	}

	if gen == t.gen && t.limit > 0 && t.runTicks >= t.limit {
		t.Stop()
	}
}

type metrics struct {
	running  *atomic.Bool
	visible  *atomic.Bool
	ticks    *atomic.Int64
	interval *status.AtomicFloat
	state    *status.AtomicString
}

func bindMetrics(reg *status.Registry, name string) *metrics {
	prefix := "blink." + name + "."
	return &metrics{
		running:  reg.Bools.Get(prefix + "running"),
		visible:  reg.Bools.Get(prefix + "visible"),
		ticks:    reg.Ints.Get(prefix + "ticks"),
		interval: reg.Floats.Get(prefix + "interval"),
		state:    reg.Strings.Get(prefix + "state"),
	}
}

func (t *Toggle) publish() {
	m := t.metrics
	if m == nil {
		return
	}
	running := t.running.Load()
	m.running.Store(running)
	m.visible.Store(t.visible)
	m.ticks.Store(int64(t.ticks))
	m.interval.Set(t.interval.Seconds())
	switch {
	case t.closed:
		m.state.Store("closed")
	case running:
		m.state.Store("running")
	default:
		m.state.Store("stopped")
	}
}
