package main

import (
	"fmt"
	"image"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/blinker/blink"
	"github.com/lixenwraith/blinker/clock"
	"github.com/lixenwraith/blinker/cue"
	"github.com/lixenwraith/blinker/display"
	"github.com/lixenwraith/blinker/status"
)

var statusStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)

// app owns the screen state; every method runs on the loop goroutine
type app struct {
	screen tcell.Screen
	region *display.Region
	toggle *blink.Toggle
	quit   func()

	metrics *status.Registry
	state   *status.AtomicString
}

func newApp(screen tcell.Screen, sched clock.Scheduler, metrics *status.Registry, cfg config, img image.Image, player cue.Player, quit func()) (*app, error) {
	w, h := screen.Size()
	// Bottom row is the status line
	if w < 1 || h < 2 {
		return nil, fmt.Errorf("terminal too small: %dx%d, need at least 1x2", w, h)
	}
	rw, rh := min(cfg.width, w), min(cfg.height, h-1)
	x, y := (w-rw)/2, (h-1-rh)/2

	region, err := display.NewRegion(screen, x, y, rw, rh,
		display.WithGlyph(cfg.glyph),
		display.WithStyle(tcell.StyleDefault.Foreground(cfg.color)),
	)
	if err != nil {
		return nil, err
	}

	opts := []blink.Option{
		blink.WithName(toggleName),
		blink.WithInterval(cfg.interval),
		blink.WithLimit(cfg.limit),
		blink.WithStatus(metrics),
	}
	if img != nil {
		opts = append(opts, blink.WithContent(img))
	}
	if player != nil {
		chime := cue.NewChime(player, cue.WithFrequency(cfg.freq))
		opts = append(opts, blink.WithObserver(chime.Observe))
	}

	toggle, err := blink.NewRef(sched, blink.Weak(region), opts...)
	if err != nil {
		return nil, fmt.Errorf("create toggle: %w", err)
	}

	return &app{
		screen: screen,
		region: region,
		toggle: toggle,
		quit:   quit,

		metrics: metrics,
		state:   metrics.Strings.Get("blink." + toggleName + ".state"),
	}, nil
}

func (a *app) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		a.screen.Sync()
		a.drawStatus()
	}
}

func (a *app) handleKey(key tcell.Key, r rune) {
	switch {
	case key == tcell.KeyEscape, key == tcell.KeyCtrlC, key == tcell.KeyRune && r == 'q':
		a.quit()
		return
	case key == tcell.KeyRune && r == ' ':
		a.flip()
	case key == tcell.KeyRune && (r == '+' || r == '='):
		a.scale(0.5)
	case key == tcell.KeyRune && r == '-':
		a.scale(2)
	}
	a.drawStatus()
}

func (a *app) flip() {
	if a.toggle.IsBlinking() {
		a.toggle.Stop()
		return
	}
	if err := a.toggle.Start(); err != nil {
		log.Printf("start: %v", err)
	}
}

func (a *app) scale(factor float64) {
	d := min(time.Duration(float64(a.toggle.Interval())*factor), maxInterval)
	if err := a.toggle.SetInterval(d); err != nil {
		log.Printf("set interval %v: %v", d, err)
	}
}

func (a *app) drawStatus() {
	w, h := a.screen.Size()
	if h < 1 {
		return
	}
	ticks := a.metrics.Ints.Get("blink." + toggleName + ".ticks").Load()
	text := fmt.Sprintf(" %-7s %-8v flips %-6d  space start/stop  +/- speed  q quit",
		a.state.Load(), a.toggle.Interval(), ticks)

	display.ClearLine(a.screen, 0, h-1, w, statusStyle)
	display.DrawText(a.screen, 0, h-1, text, statusStyle)
	a.screen.Show()
}
