// Package cue plays short audible cues alongside blinking elements.
package cue

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	SampleRate = beep.SampleRate(48000)

	DefaultFrequency = 880.0
	DefaultDuration  = 30 * time.Millisecond
)

// Player accepts streamers for playback
type Player interface {
	Play(s ...beep.Streamer)
}

var (
	speakerOnce sync.Once
	speakerErr  error
	speakerMix  *beep.Mixer
)

type speakerPlayer struct{}

// NewSpeaker initializes the audio device once and returns a Player mixing into it
func NewSpeaker() (Player, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond))
		if speakerErr != nil {
			return
		}
		speakerMix = &beep.Mixer{}
		speaker.Play(speakerMix)
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return speakerPlayer{}, nil
}

func (speakerPlayer) Play(s ...beep.Streamer) {
	speaker.Lock()
	speakerMix.Add(s...)
	speaker.Unlock()
}

// Chime emits a sine blip on blink transitions
// Pass Observe to blink.WithObserver
type Chime struct {
	player    Player
	frequency float64
	duration  time.Duration
	onVisible bool
	plays     atomic.Int64
}

// ChimeOption configures a Chime
type ChimeOption func(*Chime)

func WithFrequency(hz float64) ChimeOption {
	return func(c *Chime) { c.frequency = hz }
}

func WithDuration(d time.Duration) ChimeOption {
	return func(c *Chime) { c.duration = d }
}

// OnHide chimes when the element disappears instead of when it appears
func OnHide() ChimeOption {
	return func(c *Chime) { c.onVisible = false }
}

// NewChime creates a chime playing through p
func NewChime(p Player, opts ...ChimeOption) *Chime {
	c := &Chime{
		player:    p,
		frequency: DefaultFrequency,
		duration:  DefaultDuration,
		onVisible: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe plays the tone when visible matches the chime edge
func (c *Chime) Observe(visible bool) {
	if visible != c.onVisible || c.player == nil {
		return
	}

	sine, err := generators.SineTone(SampleRate, c.frequency)
	if err != nil {
		log.Printf("cue: sine tone %.0fHz: %v", c.frequency, err)
		return
	}
	c.player.Play(beep.Take(SampleRate.N(c.duration), sine))
	c.plays.Add(1)
}

// Plays returns the number of tones started
func (c *Chime) Plays() int64 {
	return c.plays.Load()
}
