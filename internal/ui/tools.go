package ui

import (
	"fmt"
	"image/color"

	"LocalBoard/internal/board"
	"LocalBoard/internal/render"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(hexColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

var palette = []string{"#000000", "#FF0000", "#00FF00", "#0000FF", "#FFFF00"}

func hexColor(hex string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.Black
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Actions are the toolbar commands that need the window (dialogs,
// fullscreen) rather than just the board.
type Actions struct {
	Snapshot         func()
	Upload           func() // nil when there is no relay to upload to
	ToggleRecording  func() bool
	ExportPDF        func()
	ToggleFullscreen func()
}

// --- The Main Toolbar ---
func NewToolbar(b *board.Board, act Actions) fyne.CanvasObject {
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { b.SetEraser(false) }), // Pen
		widget.NewToolbarAction(theme.DeleteIcon(), func() { b.SetEraser(true) }),          // Eraser
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { b.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { b.Redo() }),
		widget.NewToolbarAction(theme.ContentClearIcon(), b.Clear),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), act.Snapshot),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), act.ExportPDF),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), act.ToggleFullscreen),
	)
	if act.Upload != nil {
		tb.Append(widget.NewToolbarAction(theme.UploadIcon(), act.Upload))
	}

	var record *widget.Button
	record = widget.NewButtonWithIcon("Record", theme.MediaRecordIcon(), func() {
		if act.ToggleRecording() {
			record.SetText("Stop")
			record.SetIcon(theme.MediaStopIcon())
		} else {
			record.SetText("Record")
			record.SetIcon(theme.MediaRecordIcon())
		}
	})

	// --- Color Palette ---
	onColorTapped := func(hex string) {
		b.SetEraser(false)
		b.SetColor(hex)
	}
	colorBox := container.NewHBox()
	for _, hex := range palette {
		colorBox.Add(newColorSwatch(hex, onColorTapped))
	}

	// --- Stamps ---
	shapes := make([]string, 0, len(render.Shapes))
	for _, s := range render.Shapes {
		shapes = append(shapes, string(s))
	}
	stamp := widget.NewSelect(shapes, nil)
	stamp.PlaceHolder = "Stamp"
	stamp.OnChanged = func(v string) {
		if v == "" {
			return
		}
		if shape, err := render.ParseShape(v); err == nil {
			_ = b.Stamp(shape)
		}
		stamp.ClearSelected()
	}

	// --- Stroke Width Slider ---
	strokeSlider := widget.NewSlider(1.0, 50.0)
	strokeSlider.SetValue(b.Style().Width)
	strokeSlider.OnChanged = b.SetWidth
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	// --- Assemble everything ---
	return container.NewHBox(
		widget.NewLabel("Tool:"),
		tb,
		record,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		stamp,
		layout.NewSpacer(),
	)
}
