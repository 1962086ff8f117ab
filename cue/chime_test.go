package cue

import (
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/lixenwraith/blinker/blink"
	"github.com/lixenwraith/blinker/clock"
)

// MockPlayer collects streamers instead of playing them
type MockPlayer struct {
	streams []beep.Streamer
}

func (m *MockPlayer) Play(s ...beep.Streamer) {
	m.streams = append(m.streams, s...)
}

func samples(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}

func TestChimeOnVisible(t *testing.T) {
	p := &MockPlayer{}
	c := NewChime(p)

	c.Observe(false)
	if len(p.streams) != 0 {
		t.Fatal("chime played on hide")
	}
	c.Observe(true)
	if len(p.streams) != 1 || c.Plays() != 1 {
		t.Fatalf("streams = %d, plays = %d; want 1", len(p.streams), c.Plays())
	}

	want := SampleRate.N(DefaultDuration)
	if got := samples(p.streams[0]); got != want {
		t.Errorf("tone length = %d samples, want %d", got, want)
	}
}

func TestChimeOptions(t *testing.T) {
	p := &MockPlayer{}
	c := NewChime(p, OnHide(), WithDuration(10*time.Millisecond), WithFrequency(440))

	c.Observe(true)
	c.Observe(false)
	if len(p.streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(p.streams))
	}
	if got, want := samples(p.streams[0]), SampleRate.N(10*time.Millisecond); got != want {
		t.Errorf("tone length = %d, want %d", got, want)
	}
}

func TestChimeInvalidFrequency(t *testing.T) {
	p := &MockPlayer{}
	// Above Nyquist: SineTone refuses it
	c := NewChime(p, WithFrequency(float64(SampleRate)))
	c.Observe(true)
	if len(p.streams) != 0 || c.Plays() != 0 {
		t.Error("invalid tone was played")
	}
}

func TestChimeFollowsToggle(t *testing.T) {
	p := &MockPlayer{}
	c := NewChime(p)
	m := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	target := &stubTarget{}
	tg, err := blink.New(m, target, blink.WithObserver(c.Observe))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tg.Start()
	m.Advance(time.Second)

	// Ten toggles from hidden: visible on odd ticks
	if c.Plays() != 5 {
		t.Errorf("plays = %d, want 5", c.Plays())
	}
}

type stubTarget struct {
	visible bool
}

func (s *stubTarget) Visible() bool     { return s.visible }
func (s *stubTarget) SetVisible(v bool) { s.visible = v }
