// Package render draws the operation log onto a software raster. Full
// replay and incremental drawing issue the same drawing calls in the same
// order, so they produce identical pixels.
package render

import (
	"fmt"
	"image"
	"log"

	"LocalBoard/internal/state"

	"github.com/gogpu/gg"
)

// Surface is the board raster: the background, every logged stroke in
// sequence order, and any stamps drawn since the last replay.
type Surface struct {
	dc         *gg.Context
	background gg.RGBA
}

// NewSurface creates a blank surface filled with the background color.
func NewSurface(width, height int, background string) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}
	s := &Surface{
		dc:         gg.NewContext(width, height),
		background: gg.Hex(background),
	}
	s.Blank()
	return s, nil
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

// Blank paints the whole surface with the background color.
func (s *Surface) Blank() {
	s.dc.ClearWithColor(s.background)
}

// Draw renders one stroke atop the current raster.
func (s *Surface) Draw(stroke state.Stroke) error {
	if err := strokePath(s.dc, stroke.Points, stroke.Color, stroke.Width); err != nil {
		return fmt.Errorf("draw stroke %s: %w", stroke.ID, err)
	}
	return nil
}

// Replay blanks the surface and redraws strokes in order. A stroke that
// fails to draw is logged and skipped so one bad entry cannot hide the rest.
func (s *Surface) Replay(strokes []state.Stroke) {
	s.Blank()
	for _, st := range strokes {
		if err := s.Draw(st); err != nil {
			log.Printf("[RENDER] Replay: %v", err)
		}
	}
}

// Resize changes the pixel size and blanks the surface. Callers replay the
// log afterwards.
func (s *Surface) Resize(width, height int) error {
	if err := s.dc.Resize(width, height); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	s.Blank()
	return nil
}

// Image returns a copy of the raster.
func (s *Surface) Image() *image.RGBA {
	return toRGBA(s.dc.Image())
}

// Close releases the drawing context.
func (s *Surface) Close() error {
	return s.dc.Close()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
