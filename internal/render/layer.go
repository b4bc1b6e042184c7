package render

import (
	"fmt"
	"image"

	"LocalBoard/internal/state"

	"github.com/gogpu/gg"
)

// Layer is a transparent raster for the live preview of a stroke in
// progress. It is composited above the Surface and never feeds exports.
type Layer struct {
	dc *gg.Context
}

// NewLayer creates an empty preview layer.
func NewLayer(width, height int) (*Layer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid layer size %dx%d", width, height)
	}
	l := &Layer{dc: gg.NewContext(width, height)}
	l.Reset()
	return l, nil
}

// DrawTail renders the trailing samples of a gesture.
func (l *Layer) DrawTail(tail []state.Point, color string, width float64) error {
	return strokePath(l.dc, tail, color, width)
}

// Reset makes the layer fully transparent.
func (l *Layer) Reset() {
	l.dc.ClearWithColor(gg.Transparent)
}

// Resize changes the layer size and clears it.
func (l *Layer) Resize(width, height int) error {
	if err := l.dc.Resize(width, height); err != nil {
		return fmt.Errorf("resize layer: %w", err)
	}
	l.Reset()
	return nil
}

// Image returns a copy of the layer.
func (l *Layer) Image() *image.RGBA {
	return toRGBA(l.dc.Image())
}

// Close releases the drawing context.
func (l *Layer) Close() error {
	return l.dc.Close()
}
