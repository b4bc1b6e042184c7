package render

import (
	"LocalBoard/internal/state"

	"github.com/gogpu/gg"
)

// SegmentKind distinguishes the pieces of a smoothed stroke outline.
type SegmentKind int

const (
	SegMove SegmentKind = iota
	SegQuad
	SegLine
)

// Segment is one path instruction in surface pixels. Ctrl is only used by
// SegQuad.
type Segment struct {
	Kind SegmentKind
	Ctrl gg.Point
	To   gg.Point
}

// Smooth turns stroke samples into a quadratic curve: every interior sample
// becomes a control point ending at the midpoint to the next sample, and the
// path closes with a line to the final sample. Fewer than two samples yield
// no segments.
func Smooth(points []state.Point, width, height float64) []Segment {
	if len(points) < 2 {
		return nil
	}
	px := make([]gg.Point, len(points))
	for i, p := range points {
		x, y := p.Scale(width, height)
		px[i] = gg.Pt(x, y)
	}
	segs := make([]Segment, 0, len(px)+1)
	segs = append(segs, Segment{Kind: SegMove, To: px[0]})
	for i := 1; i < len(px)-1; i++ {
		mid := gg.Pt((px[i].X+px[i+1].X)/2, (px[i].Y+px[i+1].Y)/2)
		segs = append(segs, Segment{Kind: SegQuad, Ctrl: px[i], To: mid})
	}
	segs = append(segs, Segment{Kind: SegLine, To: px[len(px)-1]})
	return segs
}

func trace(dc *gg.Context, segs []Segment) {
	for _, s := range segs {
		switch s.Kind {
		case SegMove:
			dc.MoveTo(s.To.X, s.To.Y)
		case SegQuad:
			dc.QuadraticTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
		case SegLine:
			dc.LineTo(s.To.X, s.To.Y)
		}
	}
}

// strokePath draws samples with the given color and width using round caps
// and joins.
func strokePath(dc *gg.Context, points []state.Point, color string, width float64) error {
	segs := Smooth(points, float64(dc.Width()), float64(dc.Height()))
	if len(segs) == 0 {
		return nil
	}
	dc.SetHexColor(color)
	dc.SetLineWidth(width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	trace(dc, segs)
	return dc.Stroke()
}
