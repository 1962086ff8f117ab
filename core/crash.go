// Package core holds process-level helpers shared by the loop and the demo.
package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// Sequences restoring a sane terminal when no screen is registered:
// show cursor, leave alternate screen, reset attributes
const emergencyReset = "\x1b[?25h\x1b[?1049l\x1b[0m"

var crashScreen atomic.Pointer[screenHolder]

type screenHolder struct {
	screen tcell.Screen
}

// SetCrashScreen registers the screen finalized by HandleCrash
// Pass nil once the screen has been finalized normally
func SetCrashScreen(s tcell.Screen) {
	if s == nil {
		crashScreen.Store(nil)
		return
	}
	crashScreen.Store(&screenHolder{screen: s})
}

// HandleCrash restores the terminal, prints the panic value with a stack trace and exits
func HandleCrash(r any) {
	if r == nil {
		return
	}

	if h := crashScreen.Swap(nil); h != nil {
		h.screen.Fini()
	} else {
		fmt.Fprint(os.Stdout, emergencyReset)
	}
	os.Stdout.Sync()

	fmt.Fprintf(os.Stderr, "\n\x1b[31mCRASH DETECTED: %v\x1b[0m\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs fn in a new goroutine with panic recovery
// Use instead of the 'go' keyword so a crash never leaves the terminal in raw mode
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
