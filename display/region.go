// Package display renders blink targets onto a tcell screen.
package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gdamore/tcell/v2"
)

// Upper half block: foreground paints the top pixel, background the bottom one
const halfBlock = '▀'

const DefaultGlyph = '█'

var ErrNilScreen = errors.New("display: nil screen")

// Region is a rectangle of cells that shows a glyph fill or an image when
// visible and the base style when hidden. It satisfies blink.ContentTarget
// and blink.Disposable.
type Region struct {
	screen     tcell.Screen
	x, y, w, h int

	glyph rune
	style tcell.Style
	base  tcell.Style

	img   image.Image
	cells []tcell.Style // w*h half-block styles, nil without image

	visible  bool
	disposed bool
}

// RegionOption configures a Region
type RegionOption func(*Region)

// WithGlyph sets the rune filling the region when no image is shown
func WithGlyph(r rune) RegionOption {
	return func(rg *Region) { rg.glyph = r }
}

// WithStyle sets the style of the glyph fill
func WithStyle(s tcell.Style) RegionOption {
	return func(rg *Region) { rg.style = s }
}

// WithBase sets the style painted while hidden, also used behind image letterboxing
func WithBase(s tcell.Style) RegionOption {
	return func(rg *Region) { rg.base = s }
}

// NewRegion creates a visible region at (x, y) spanning w×h cells and draws it
func NewRegion(screen tcell.Screen, x, y, w, h int, opts ...RegionOption) (*Region, error) {
	if screen == nil {
		return nil, ErrNilScreen
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("display: invalid region size %dx%d", w, h)
	}

	r := &Region{
		screen:  screen,
		x:       x,
		y:       y,
		w:       w,
		h:       h,
		glyph:   DefaultGlyph,
		style:   tcell.StyleDefault,
		base:    tcell.StyleDefault,
		visible: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.draw()
	return r, nil
}

// Bounds returns the region rectangle in cell coordinates
func (r *Region) Bounds() image.Rectangle {
	return image.Rect(r.x, r.y, r.x+r.w, r.y+r.h)
}

func (r *Region) Visible() bool {
	return r.visible
}

func (r *Region) SetVisible(visible bool) {
	if r.disposed {
		return
	}
	r.visible = visible
	r.draw()
}

func (r *Region) Content() image.Image {
	return r.img
}

// SetContent shows img fitted into the region; nil returns to the glyph fill
func (r *Region) SetContent(img image.Image) {
	if r.disposed {
		return
	}
	r.img = img
	r.cells = nil
	if img != nil {
		r.cells = halfBlocks(img, r.w, r.h, r.base)
	}
	if r.visible {
		r.draw()
	}
}

// Close clears the region and marks it disposed
func (r *Region) Close() {
	if r.disposed {
		return
	}
	r.visible = false
	r.draw()
	r.disposed = true
}

func (r *Region) Disposed() bool {
	return r.disposed
}

func (r *Region) draw() {
	for row := 0; row < r.h; row++ {
		for col := 0; col < r.w; col++ {
			x, y := r.x+col, r.y+row
			switch {
			case !r.visible:
				r.screen.SetContent(x, y, ' ', nil, r.base)
			case r.cells != nil:
				r.screen.SetContent(x, y, halfBlock, nil, r.cells[row*r.w+col])
			default:
				r.screen.SetContent(x, y, r.glyph, nil, r.style)
			}
		}
	}
	r.screen.Show()
}

// halfBlocks fits img into w×2h pixels, centered, and returns one style per cell
func halfBlocks(img image.Image, w, h int, base tcell.Style) []tcell.Style {
	fitted := imaging.Fit(img, w, 2*h, imaging.Lanczos)
	b := fitted.Bounds()
	offX := (w - b.Dx()) / 2
	offY := (2*h - b.Dy()) / 2

	_, baseBg, _ := base.Decompose()
	pixel := func(px, py int) tcell.Color {
		px -= offX
		py -= offY
		if px < 0 || py < 0 || px >= b.Dx() || py >= b.Dy() {
			return baseBg
		}
		c := fitted.NRGBAAt(b.Min.X+px, b.Min.Y+py)
		if c.A == 0 {
			return baseBg
		}
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	}

	styles := make([]tcell.Style, w*h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			styles[row*w+col] = base.
				Foreground(pixel(col, 2*row)).
				Background(pixel(col, 2*row+1))
		}
	}
	return styles
}
