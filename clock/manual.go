package clock

import (
	"sync"
	"time"
)

// Manual is a simulated scheduler for tests
// Time moves only through Advance, which fires due callbacks on the caller's goroutine
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	seq  uint64
	regs []*manualRegistration
}

type manualRegistration struct {
	m      *Manual
	seq    uint64
	period time.Duration
	next   time.Time
	fn     func()
	live   bool // guarded by m.mu
}

// NewManual creates a manual clock starting at the given time
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the simulated time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn to fire every d of simulated time
func (m *Manual) Every(d time.Duration, fn func()) Registration {
	mustPositive(d)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	r := &manualRegistration{
		m:      m,
		seq:    m.seq,
		period: d,
		next:   m.now.Add(d),
		fn:     fn,
		live:   true,
	}
	m.regs = append(m.regs, r)
	return r
}

// Advance moves simulated time forward by d, firing every callback whose
// deadline falls within the window in deadline order
// Callbacks run without the lock held, so they may register or cancel timers
// Returns the number of callbacks fired
func (m *Manual) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}

	m.mu.Lock()
	target := m.now.Add(d)
	fired := 0
	for {
		r := m.dueLocked(target)
		if r == nil {
			break
		}
		m.now = r.next
		r.next = r.next.Add(r.period)

		m.mu.Unlock()
		r.fn()
		fired++
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()

	return fired
}

// Active returns the number of live registrations
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

func (m *Manual) dueLocked(target time.Time) *manualRegistration {
	var best *manualRegistration
	for _, r := range m.regs {
		if r.next.After(target) {
			continue
		}
		if best == nil || r.next.Before(best.next) || (r.next.Equal(best.next) && r.seq < best.seq) {
			best = r
		}
	}
	return best
}

func (r *manualRegistration) Cancel() bool {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if !r.live {
		return false
	}
	r.live = false
	for i, other := range m.regs {
		if other == r {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			break
		}
	}
	return true
}
