// Package board is the whiteboard engine for one session. It owns the
// operation log, the local history, the raster surfaces, the recorder and the
// sync channel; every mutation of the drawing goes through a Board.
package board

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"LocalBoard/internal/export"
	"LocalBoard/internal/net"
	"LocalBoard/internal/render"
	"LocalBoard/internal/state"
)

// Options configures a Board.
type Options struct {
	Width, Height  int
	Background     string
	Style          state.Style
	Origin         string // participant id; generated when empty
	ShareClear     bool   // broadcast Clear to every participant
	RecordInterval time.Duration
	Format         export.Format
}

// Board serializes gestures, inbound sync messages, history and export
// requests under one mutex. Callbacks and network sends run outside it.
type Board struct {
	mu sync.Mutex

	origin     string
	background string
	style      state.Style
	shareClear bool
	format     export.Format
	fullscreen bool

	log     *state.Log
	history *state.History
	gesture state.Gesture
	surface *render.Surface
	preview *render.Layer

	channel  net.Channel
	recorder *export.Recorder

	// OnChange is called after the raster or the preview changed. It runs on
	// the goroutine that caused the change and never under the board lock.
	OnChange func()
	// OnConnState reports sync channel transitions.
	OnConnState func(net.ConnState)
}

// New creates a blank board.
func New(opts Options) (*Board, error) {
	if opts.Background == "" {
		opts.Background = "#FFFFFF"
	}
	if opts.Style.Color == "" {
		opts.Style.Color = state.DefaultColor
	}
	if opts.Style.Width <= 0 {
		opts.Style.Width = state.DefaultWidth
	}
	if opts.Origin == "" {
		opts.Origin = state.NewID()
	}
	if opts.Format == "" {
		opts.Format = export.FormatPNG
	}
	if opts.RecordInterval <= 0 {
		opts.RecordInterval = 200 * time.Millisecond
	}

	surface, err := render.NewSurface(opts.Width, opts.Height, opts.Background)
	if err != nil {
		return nil, err
	}
	preview, err := render.NewLayer(opts.Width, opts.Height)
	if err != nil {
		_ = surface.Close()
		return nil, err
	}
	return &Board{
		origin:     opts.Origin,
		background: opts.Background,
		style:      opts.Style,
		shareClear: opts.ShareClear,
		format:     opts.Format,
		log:        state.NewLog(),
		history:    state.NewHistory(),
		surface:    surface,
		preview:    preview,
		recorder:   export.NewRecorder(opts.RecordInterval, opts.Format),
	}, nil
}

// Attach connects the board to a sync channel. Inbound messages are applied
// as they arrive; outbound strokes are sent on gesture end.
func (b *Board) Attach(ch net.Channel) {
	b.mu.Lock()
	b.channel = ch
	b.mu.Unlock()

	ch.OnReceive(b.Receive)
	ch.OnStateChange(func(s net.ConnState) {
		log.Printf("[BOARD] Sync channel %s", s)
		if fn := b.OnConnState; fn != nil {
			fn(s)
		}
	})
}

// Origin returns the local participant id.
func (b *Board) Origin() string { return b.origin }

// Style returns the active drawing style.
func (b *Board) Style() state.Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.style
}

// SetColor sets the pen color (hex).
func (b *Board) SetColor(color string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.Color = color
}

// SetWidth sets the pen width in logical pixels.
func (b *Board) SetWidth(width float64) {
	if width <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.Width = width
}

// SetEraser switches between the pen and the eraser.
func (b *Board) SetEraser(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style.Eraser = on
}

// BeginStroke starts a gesture at surface pixel (x, y).
func (b *Board) BeginStroke(x, y float64) {
	b.mu.Lock()
	w, h := b.surface.Size()
	b.gesture.Begin(x, y, float64(w), float64(h))
	b.preview.Reset()
	b.mu.Unlock()
	b.notify()
}

// ExtendStroke adds a sample to the current gesture and redraws the preview
// from the last few samples.
func (b *Board) ExtendStroke(x, y float64) {
	b.mu.Lock()
	if !b.gesture.Active() {
		b.mu.Unlock()
		return
	}
	tail := b.gesture.Move(x, y)
	color, width := b.strokeLook()
	if err := b.preview.DrawTail(tail, color, width); err != nil {
		log.Printf("[BOARD] Preview failed: %v", err)
	}
	b.mu.Unlock()
	b.notify()
}

// EndStroke finishes the gesture. Taps produce no stroke and report false.
func (b *Board) EndStroke() (state.Stroke, bool) {
	b.mu.Lock()
	points, ok := b.gesture.End()
	b.preview.Reset()
	if !ok {
		b.mu.Unlock()
		b.notify()
		return state.Stroke{}, false
	}
	s, err := state.BuildStroke(points, b.style, b.background, b.origin)
	if err != nil {
		b.mu.Unlock()
		log.Printf("[BOARD] Discarding gesture: %v", err)
		b.notify()
		return state.Stroke{}, false
	}
	stored, err := b.commitLocked(s)
	ch := b.channel
	b.mu.Unlock()

	if err != nil {
		log.Printf("[BOARD] Discarding gesture: %v", err)
		b.notify()
		return state.Stroke{}, false
	}
	b.broadcast(ch, net.StrokeMessage(stored))
	b.notify()
	return stored, true
}

// Draw appends a locally produced stroke whose points are already
// normalized, renders it incrementally and broadcasts it.
func (b *Board) Draw(s state.Stroke) (state.Stroke, error) {
	if s.ID == "" {
		s.ID = state.NewID()
	}
	s.Origin = b.origin
	b.mu.Lock()
	stored, err := b.commitLocked(s)
	ch := b.channel
	b.mu.Unlock()
	if err != nil {
		return state.Stroke{}, err
	}
	b.broadcast(ch, net.StrokeMessage(stored))
	b.notify()
	return stored, nil
}

func (b *Board) commitLocked(s state.Stroke) (state.Stroke, error) {
	stored, err := b.log.Append(s)
	if err != nil {
		return state.Stroke{}, err
	}
	b.history.Record(stored.ID)
	if err := b.surface.Draw(stored); err != nil {
		log.Printf("[BOARD] Render stroke %s: %v", stored.ID, err)
	}
	return stored, nil
}

// Receive applies one inbound sync message. Strokes already applied (own
// echoes, journal replays) are ignored.
func (b *Board) Receive(m net.Message) {
	switch m.Type {
	case net.TypeClear:
		if m.Origin == b.origin {
			// own echo: applied at Clear time, later local strokes stay
			return
		}
		b.receiveClear(m.OwnerID)
	default:
		b.receiveStroke(m)
	}
}

func (b *Board) receiveStroke(m net.Message) {
	s, err := m.Stroke()
	if err != nil {
		log.Printf("[BOARD] Dropping inbound stroke: %v", err)
		return
	}
	b.mu.Lock()
	stored, added, err := b.log.AppendIfNew(s)
	if err != nil {
		b.mu.Unlock()
		log.Printf("[BOARD] Dropping inbound stroke: %v", err)
		return
	}
	if !added {
		b.mu.Unlock()
		return
	}
	if err := b.surface.Draw(stored); err != nil {
		log.Printf("[BOARD] Render stroke %s: %v", stored.ID, err)
	}
	b.mu.Unlock()
	b.notify()
}

func (b *Board) receiveClear(owner string) {
	if owner == "" {
		owner = state.OriginAll
	}
	b.mu.Lock()
	n := b.log.RemoveOrigin(owner)
	b.surface.Replay(b.log.Strokes())
	b.mu.Unlock()
	log.Printf("[BOARD] Remote clear for %s removed %d strokes", owner, n)
	b.notify()
}

// Undo removes the most recent local stroke still on the board. It reports
// false when there is nothing to undo.
func (b *Board) Undo() bool {
	b.mu.Lock()
	_, ok := b.history.Undo(b.log)
	if ok {
		b.surface.Replay(b.log.Strokes())
	}
	b.mu.Unlock()
	if ok {
		b.notify()
	}
	return ok
}

// Redo re-appends the most recently undone stroke under a new sequence. It
// reports false when the redo stack is empty.
func (b *Board) Redo() bool {
	b.mu.Lock()
	s, ok := b.history.Redo(b.log)
	if ok {
		if err := b.surface.Draw(s); err != nil {
			log.Printf("[BOARD] Render stroke %s: %v", s.ID, err)
		}
	}
	b.mu.Unlock()
	if ok {
		b.notify()
	}
	return ok
}

// CanUndo reports whether Undo has a candidate.
func (b *Board) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanUndo()
}

// CanRedo reports whether Redo has a candidate.
func (b *Board) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanRedo()
}

// Clear empties the log and blanks the surface. With ShareClear the clear is
// broadcast to every participant.
func (b *Board) Clear() {
	b.mu.Lock()
	b.log.Clear()
	b.history.Reset()
	b.surface.Blank()
	ch, share := b.channel, b.shareClear
	b.mu.Unlock()

	if share {
		m := net.ClearMessage(state.OriginAll)
		m.Origin = b.origin
		b.broadcast(ch, m)
	}
	b.notify()
}

// ReplayAll redraws the surface from the log.
func (b *Board) ReplayAll() {
	b.mu.Lock()
	b.surface.Replay(b.log.Strokes())
	b.mu.Unlock()
	b.notify()
}

// Size returns the surface size in pixels.
func (b *Board) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Size()
}

// Resize reallocates both surfaces and replays the log at the new size.
func (b *Board) Resize(width, height int) error {
	b.mu.Lock()
	err := b.resizeLocked(width, height, false)
	b.mu.Unlock()
	if err == nil {
		b.notify()
	}
	return err
}

func (b *Board) resizeLocked(width, height int, force bool) error {
	w, h := b.surface.Size()
	if w == width && h == height {
		if force {
			b.surface.Replay(b.log.Strokes())
		}
		return nil
	}
	if err := b.surface.Resize(width, height); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	if err := b.preview.Resize(width, height); err != nil {
		return fmt.Errorf("resize preview: %w", err)
	}
	b.surface.Replay(b.log.Strokes())
	return nil
}

// SetFullscreen records the fullscreen flag and moves the board onto a
// surface of the given size. The log is replayed even when the size did not
// change.
func (b *Board) SetFullscreen(on bool, width, height int) error {
	b.mu.Lock()
	b.fullscreen = on
	err := b.resizeLocked(width, height, true)
	b.mu.Unlock()
	if err == nil {
		b.notify()
	}
	return err
}

// Fullscreen reports the fullscreen flag.
func (b *Board) Fullscreen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullscreen
}

// Stamp outlines shape at the surface center in the active style. Stamps
// are not logged, not synced and vanish on the next replay.
func (b *Board) Stamp(shape render.Shape) error {
	b.mu.Lock()
	color, width := b.style.Color, b.style.Width
	err := b.surface.Stamp(shape, color, width)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.notify()
	return nil
}

// Strokes returns a copy of the log in sequence order.
func (b *Board) Strokes() []state.Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.Strokes()
}

// Len returns the number of strokes in the log.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.log.Len()
}

// Image returns a copy of the base raster.
func (b *Board) Image() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Image()
}

// Preview returns a copy of the transparent preview layer.
func (b *Board) Preview() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preview.Image()
}

// Snapshot encodes the current raster as whiteboard_snapshot.<ext>.
func (b *Board) Snapshot() (export.Artifact, error) {
	img := b.Image()
	a, err := export.Snapshot(img, b.format)
	if err != nil {
		log.Printf("[EXPORT] Snapshot failed: %v", err)
		return export.Artifact{}, err
	}
	return a, nil
}

// ExportPDF renders the log as vector paths into whiteboard.pdf.
func (b *Board) ExportPDF() (export.Artifact, error) {
	b.mu.Lock()
	strokes := b.log.Strokes()
	w, h := b.surface.Size()
	b.mu.Unlock()

	a, err := export.PDF(strokes, float64(w), float64(h), b.background)
	if err != nil {
		log.Printf("[EXPORT] PDF failed: %v", err)
		return export.Artifact{}, err
	}
	return a, nil
}

// StartRecording begins sampling the raster. It reports false when a
// recording is already running.
func (b *Board) StartRecording() bool {
	return b.recorder.Start(b.frame)
}

// StopRecording ends the recording and packages the frames. It reports false
// when no recording was running.
func (b *Board) StopRecording() (export.Artifact, bool, error) {
	a, ok, err := b.recorder.Stop()
	if err != nil {
		log.Printf("[EXPORT] Recording archive failed: %v", err)
	}
	return a, ok, err
}

// Recording reports whether a recording is running.
func (b *Board) Recording() bool { return b.recorder.Recording() }

func (b *Board) frame() (image.Image, error) {
	return b.Image(), nil
}

// Close stops any recording and releases the surfaces.
func (b *Board) Close() error {
	if _, _, err := b.recorder.Stop(); err != nil {
		log.Printf("[BOARD] Dropping unfinished recording: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.surface.Close(), b.preview.Close())
}

func (b *Board) strokeLook() (string, float64) {
	color, width := b.style.Color, b.style.Width
	if color == "" {
		color = state.DefaultColor
	}
	if width <= 0 {
		width = state.DefaultWidth
	}
	if b.style.Eraser {
		return b.background, width * 2
	}
	return color, width
}

func (b *Board) broadcast(ch net.Channel, m net.Message) {
	if ch == nil {
		return
	}
	if err := ch.Send(m); err != nil {
		if errors.Is(err, net.ErrDisconnected) {
			log.Printf("[BOARD] Offline, %s kept locally", m.Type)
			return
		}
		log.Printf("[BOARD] Broadcast %s failed: %v", m.Type, err)
	}
}

func (b *Board) notify() {
	if fn := b.OnChange; fn != nil {
		fn()
	}
}
