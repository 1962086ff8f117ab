package display

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	_ "golang.org/x/image/webp"
)

// LoadImage decodes png, jpeg, gif, bmp, tiff or webp, applying EXIF orientation
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return img, nil
}

// DrawText writes text starting at (x, y) and returns the columns used
func DrawText(screen tcell.Screen, x, y int, text string, style tcell.Style) int {
	col := 0
	for _, r := range text {
		screen.SetContent(x+col, y, r, nil, style)
		col += max(runewidth.RuneWidth(r), 1)
	}
	return col
}

// ClearLine blanks w cells starting at (x, y)
func ClearLine(screen tcell.Screen, x, y, w int, style tcell.Style) {
	for i := 0; i < w; i++ {
		screen.SetContent(x+i, y, ' ', nil, style)
	}
}
