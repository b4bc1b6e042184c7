package ui

import (
	"log"

	"LocalBoard/internal/board"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// BoardWidget shows a board's raster with the live preview on top and feeds
// pointer input back into it.
type BoardWidget struct {
	widget.BaseWidget
	board     *board.Board
	statusBar *widget.Label
	drawing   bool
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget(b *board.Board) *BoardWidget {
	w := &BoardWidget{
		board:     b,
		statusBar: widget.NewLabel("Ready"),
	}
	w.ExtendBaseWidget(w)
	b.OnChange = func() { fyne.Do(w.Refresh) }
	return w
}

// SetStatus updates the status line from any goroutine.
func (w *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { w.statusBar.SetText(text) })
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.drawing = true
	w.board.BeginStroke(float64(e.Position.X), float64(e.Position.Y))
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.finish()
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	if w.drawing {
		w.board.ExtendStroke(float64(e.Position.X), float64(e.Position.Y))
	}
}

func (w *BoardWidget) DragEnd() { w.finish() }

func (w *BoardWidget) finish() {
	if !w.drawing {
		return
	}
	w.drawing = false
	if s, ok := w.board.EndStroke(); ok {
		log.Printf("[UI] Stroke %s committed (%d points)", s.ID, len(s.Points))
	}
}

func (w *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (w *BoardWidget) MouseOut()                      {}
func (w *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: w}
	r.base = canvas.NewImageFromImage(w.board.Image())
	r.base.FillMode = canvas.ImageFillStretch
	r.base.ScaleMode = canvas.ImageScalePixels
	r.overlay = canvas.NewImageFromImage(w.board.Preview())
	r.overlay.FillMode = canvas.ImageFillStretch
	r.overlay.ScaleMode = canvas.ImageScalePixels
	r.stack = container.NewStack(r.base, r.overlay)
	return r
}

type boardWidgetRenderer struct {
	board   *BoardWidget
	base    *canvas.Image
	overlay *canvas.Image
	stack   *fyne.Container
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.stack}
}

// Layout moves the board onto a surface of the widget's size; the board
// replays its log at the new scale.
func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.stack.Resize(size)
	w, h := int(size.Width), int(size.Height)
	if w <= 0 || h <= 0 {
		return
	}
	if cw, ch := r.board.board.Size(); cw == w && ch == h {
		return
	}
	if err := r.board.board.Resize(w, h); err != nil {
		log.Printf("[UI] Resize to %dx%d failed: %v", w, h, err)
	}
}

func (r *boardWidgetRenderer) Refresh() {
	r.base.Image = r.board.board.Image()
	r.overlay.Image = r.board.board.Preview()
	r.base.Refresh()
	r.overlay.Refresh()
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Destroy() {}
