// Command blinkdemo blinks a glyph block or an image in the terminal.
//
// Keys: space starts/stops, + and - change speed, q or Esc quits.
// With -listen the toggle is also controllable over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/lixenwraith/blinker/blink"
	"github.com/lixenwraith/blinker/clock"
	"github.com/lixenwraith/blinker/control"
	"github.com/lixenwraith/blinker/core"
	"github.com/lixenwraith/blinker/cue"
	"github.com/lixenwraith/blinker/display"
	"github.com/lixenwraith/blinker/status"
)

const (
	statusRefresh = 250 * time.Millisecond
	maxInterval   = 10 * time.Second
	toggleName    = "demo"
)

type config struct {
	interval  time.Duration
	glyph     rune
	color     tcell.Color
	imagePath string
	width     int
	height    int
	limit     int
	sound     bool
	freq      float64
	listen    string
	debug     bool
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet("blinkdemo", flag.ContinueOnError)
	var (
		cfg   config
		glyph string
		color string
	)
	fs.DurationVar(&cfg.interval, "interval", blink.DefaultInterval, "time between visibility flips")
	fs.StringVar(&glyph, "glyph", string(display.DefaultGlyph), "character filling the blinking block")
	fs.StringVar(&color, "color", "yellow", "glyph color name or #rrggbb")
	fs.StringVar(&cfg.imagePath, "image", "", "image to blink instead of the glyph block")
	fs.IntVar(&cfg.width, "width", 16, "block width in cells")
	fs.IntVar(&cfg.height, "height", 6, "block height in cells")
	fs.IntVar(&cfg.limit, "limit", 0, "stop after this many flips (0 = never)")
	fs.BoolVar(&cfg.sound, "sound", false, "chime when the block appears")
	fs.Float64Var(&cfg.freq, "freq", cue.DefaultFrequency, "chime frequency in Hz")
	fs.StringVar(&cfg.listen, "listen", "", "serve the HTTP control API on this address")
	fs.BoolVar(&cfg.debug, "debug", false, "write logs to logs/blinker.log")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if cfg.interval <= 0 {
		return config{}, fmt.Errorf("interval must be positive, got %v", cfg.interval)
	}
	if cfg.width <= 0 || cfg.height <= 0 {
		return config{}, fmt.Errorf("invalid block size %dx%d", cfg.width, cfg.height)
	}
	if cfg.freq <= 0 {
		return config{}, fmt.Errorf("frequency must be positive, got %v", cfg.freq)
	}
	runes := []rune(glyph)
	if len(runes) != 1 {
		return config{}, fmt.Errorf("glyph must be a single character, got %q", glyph)
	}
	cfg.glyph = runes[0]
	cfg.color = tcell.GetColor(color)
	if cfg.color == tcell.ColorDefault && color != "default" {
		return config{}, fmt.Errorf("unknown color %q", color)
	}
	return cfg, nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "blinkdemo: %v\n", err)
		os.Exit(2)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "blinkdemo: stdout is not a terminal")
		os.Exit(1)
	}

	if logFile := setupLogging(cfg.debug); logFile != nil {
		defer logFile.Close()
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "blinkdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	var img image.Image
	if cfg.imagePath != "" {
		var err error
		if img, err = display.LoadImage(cfg.imagePath); err != nil {
			return err
		}
	}

	var player cue.Player
	if cfg.sound {
		p, err := cue.NewSpeaker()
		if err != nil {
			// Non-fatal, the demo runs silent
			log.Printf("audio initialization failed: %v", err)
		} else {
			player = p
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	core.SetCrashScreen(screen)
	defer func() {
		core.SetCrashScreen(nil)
		screen.Fini()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loop := clock.NewLoop(0)
	metrics := status.NewRegistry()

	a, err := newApp(screen, loop, metrics, cfg, img, player, cancel)
	if err != nil {
		return err
	}
	defer a.toggle.Close()

	if cfg.listen != "" {
		srv := control.NewServer(loop, metrics)
		id := srv.Add(a.toggle)
		httpSrv := &http.Server{Addr: cfg.listen, Handler: srv.Router()}
		core.Go(func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("control server: %v", err)
			}
		})
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			httpSrv.Shutdown(shutdownCtx)
		}()
		log.Printf("control: toggle %s at http://%s/toggles/%s", toggleName, cfg.listen, id)
	}

	core.Go(func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			if !loop.Post(func() { a.handleEvent(ev) }) {
				return
			}
		}
	})

	refresh := loop.Every(statusRefresh, a.drawStatus)
	defer refresh.Cancel()

	loop.Post(func() {
		if err := a.toggle.Start(); err != nil {
			log.Printf("start: %v", err)
		}
		a.drawStatus()
	})

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
