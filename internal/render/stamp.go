package render

import (
	"fmt"
	"strings"

	"github.com/gogpu/gg"
)

// Shape is a stamp drawn at the surface center.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
	ShapeArrow  Shape = "arrow"
)

// Shapes lists the stamps in toolbar order.
var Shapes = []Shape{ShapeCircle, ShapeSquare, ShapeArrow}

const stampRadius = 50.0

// ParseShape resolves a toolbar value to a Shape.
func ParseShape(v string) (Shape, error) {
	switch s := Shape(strings.ToLower(strings.TrimSpace(v))); s {
	case ShapeCircle, ShapeSquare, ShapeArrow:
		return s, nil
	}
	return "", fmt.Errorf("unknown stamp %q", v)
}

// Stamp outlines shape at the surface center. Stamps are raster-only: the
// next Replay or Blank removes them.
func (s *Surface) Stamp(shape Shape, color string, width float64) error {
	dc := s.dc
	cx, cy := float64(dc.Width())/2, float64(dc.Height())/2
	dc.SetHexColor(color)
	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	switch shape {
	case ShapeCircle:
		dc.DrawCircle(cx, cy, stampRadius)
	case ShapeSquare:
		dc.DrawRectangle(cx-stampRadius, cy-stampRadius, 2*stampRadius, 2*stampRadius)
	case ShapeArrow:
		dc.MoveTo(cx-stampRadius, cy)
		dc.LineTo(cx+stampRadius, cy)
		dc.MoveTo(cx+30, cy-20)
		dc.LineTo(cx+stampRadius, cy)
		dc.LineTo(cx+30, cy+20)
	default:
		return fmt.Errorf("unknown stamp %q", shape)
	}
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("stamp %s: %w", shape, err)
	}
	return nil
}
