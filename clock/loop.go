package clock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/blinker/core"
)

// DefaultQueueSize is the posted-function buffer used when NewLoop gets a non-positive size
const DefaultQueueSize = 64

var (
	ErrLoopStopped = errors.New("clock: loop stopped")
	ErrLoopRunning = errors.New("clock: loop already running")
)

// Loop owns a single goroutine that executes posted functions and timer
// callbacks serially. Everything touching UI state should run on it.
type Loop struct {
	queue    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	active   atomic.Int64
}

// NewLoop creates a loop with the given queue capacity
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		stop:  make(chan struct{}),
	}
}

// Run executes queued work on the calling goroutine until ctx is done
// A loop runs at most once; after Run returns every registration is released
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.halt()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

func (l *Loop) halt() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Now returns wall-clock time with monotonic reading
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post queues fn for execution on the loop goroutine
// Blocks while the queue is full; returns false if the loop has stopped
// Do not call from the loop goroutine when the queue may be full
func (l *Loop) Post(fn func()) bool {
	return l.post(fn, nil)
}

func (l *Loop) post(fn func(), abort <-chan struct{}) bool {
	select {
	case <-l.stop:
		return false
	default:
	}

	select {
	case l.queue <- fn:
		return true
	case <-l.stop:
		return false
	case <-abort:
		return false
	}
}

// Do runs fn on the loop goroutine and waits for it to finish
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.post(func() {
		defer close(done)
		fn()
	}, ctx.Done()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLoopStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		// fn may have completed right before the loop halted
		select {
		case <-done:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Every starts a ticker goroutine that posts fn to the loop every d
// At most one fire per registration is queued at a time; late fires coalesce
func (l *Loop) Every(d time.Duration, fn func()) Registration {
	mustPositive(d)

	r := &loopRegistration{
		loop: l,
		done: make(chan struct{}),
	}
	l.active.Add(1)
	core.Go(func() {
		r.run(d, fn)
	})
	return r
}

// Active returns the number of live registrations
func (l *Loop) Active() int {
	return int(l.active.Load())
}

type loopRegistration struct {
	loop      *Loop
	cancelled atomic.Bool
	pending   atomic.Bool
	done      chan struct{}
}

func (r *loopRegistration) run(d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	fire := func() {
		r.pending.Store(false)
		// Cancel may have run after this fire was queued
		if r.cancelled.Load() {
			return
		}
		fn()
	}

	for {
		select {
		case <-r.done:
			return
		case <-r.loop.stop:
			r.Cancel()
			return
		case <-ticker.C:
			if !r.pending.CompareAndSwap(false, true) {
				continue
			}
			if !r.loop.post(fire, r.done) {
				r.Cancel()
				return
			}
		}
	}
}

func (r *loopRegistration) Cancel() bool {
	if !r.cancelled.CompareAndSwap(false, true) {
		return false
	}
	close(r.done)
	r.loop.active.Add(-1)
	return true
}
