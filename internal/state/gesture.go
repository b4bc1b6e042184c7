package state

// PreviewTail is how many trailing samples a live preview redraws.
const PreviewTail = 3

// Gesture samples one pointer-down to pointer-up motion. Samples arrive in
// surface pixels and are stored normalized against the surface size.
type Gesture struct {
	points        []Point
	width, height float64
	active        bool
}

// Begin starts a gesture on a surface of the given pixel size.
func (g *Gesture) Begin(x, y, width, height float64) {
	g.width, g.height = width, height
	g.points = g.points[:0]
	g.active = true
	g.add(x, y)
}

// Move appends a sample and returns the trailing points to preview.
func (g *Gesture) Move(x, y float64) []Point {
	if !g.active {
		return nil
	}
	g.add(x, y)
	start := len(g.points) - PreviewTail
	if start < 0 {
		start = 0
	}
	tail := make([]Point, len(g.points)-start)
	copy(tail, g.points[start:])
	return tail
}

// End finishes the gesture and returns its samples. Taps (fewer than two
// samples) produce nothing.
func (g *Gesture) End() ([]Point, bool) {
	if !g.active {
		return nil, false
	}
	g.active = false
	if len(g.points) < 2 {
		g.points = g.points[:0]
		return nil, false
	}
	pts := make([]Point, len(g.points))
	copy(pts, g.points)
	g.points = g.points[:0]
	return pts, true
}

// Active reports whether a gesture is in progress.
func (g *Gesture) Active() bool { return g.active }

func (g *Gesture) add(x, y float64) {
	p := Point{}
	if g.width > 0 {
		p.X = x / g.width
	}
	if g.height > 0 {
		p.Y = y / g.height
	}
	if p.Valid() {
		g.points = append(g.points, p)
	}
}

// BuildStroke turns finished samples into a stroke tagged with style. Eraser
// strokes take the background color and double width.
func BuildStroke(points []Point, style Style, background, origin string) (Stroke, error) {
	if len(points) == 0 {
		return Stroke{}, ErrEmptyStroke
	}
	s := Stroke{
		ID:     NewID(),
		Points: append([]Point(nil), points...),
		Color:  style.Color,
		Width:  style.Width,
		Origin: origin,
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.Width <= 0 {
		s.Width = DefaultWidth
	}
	if style.Eraser {
		s.IsEraser = true
		s.Color = background
		s.Width *= 2
	}
	return s, nil
}
