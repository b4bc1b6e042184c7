package state

import (
	"errors"
	"math"
)

// Point is a position in normalized surface space: (0,0) is the top-left
// corner and (1,1) the bottom-right corner of the surface it was sampled on.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale maps a normalized point onto a surface of the given size.
func (p Point) Scale(width, height float64) (float64, float64) {
	return p.X * width, p.Y * height
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Style is the active drawing style of one participant.
type Style struct {
	Color  string
	Width  float64
	Eraser bool
}

const (
	DefaultColor = "#000000"
	DefaultWidth = 3.0
)

// Stroke is one immutable drawing operation. Sequence is zero until the
// stroke has been appended to a Log.
type Stroke struct {
	ID       string  `json:"id"`
	Points   []Point `json:"points"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	IsEraser bool    `json:"eraser,omitempty"`
	Origin   string  `json:"origin,omitempty"`
	Sequence uint64  `json:"sequence,omitempty"`
}

var (
	ErrEmptyStroke = errors.New("stroke has no points")
	ErrNoID        = errors.New("stroke has no id")
	ErrBadPoint    = errors.New("stroke has a non-finite point")
	ErrBadWidth    = errors.New("stroke width is not finite")
)

// Validate reports whether s may enter a Log.
func (s Stroke) Validate() error {
	if s.ID == "" {
		return ErrNoID
	}
	if len(s.Points) == 0 {
		return ErrEmptyStroke
	}
	for _, p := range s.Points {
		if !p.Valid() {
			return ErrBadPoint
		}
	}
	if math.IsNaN(s.Width) || math.IsInf(s.Width, 0) {
		return ErrBadWidth
	}
	return nil
}

// clone copies the point slice so callers can never mutate a logged stroke.
func (s Stroke) clone() Stroke {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	s.Points = pts
	return s
}
