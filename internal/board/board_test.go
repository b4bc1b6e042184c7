package board

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"testing"
	"time"

	"LocalBoard/internal/export"
	"LocalBoard/internal/net"
	"LocalBoard/internal/render"
	"LocalBoard/internal/state"
)

// memChannel is an in-memory Channel. Tests deliver inbound messages by hand,
// which lets them duplicate, reorder or drop traffic.
type memChannel struct {
	mu        sync.Mutex
	state     net.ConnState
	sent      []net.Message
	onReceive func(net.Message)
	onState   func(net.ConnState)
}

func newMemChannel() *memChannel { return &memChannel{state: net.Connected} }

func (c *memChannel) Send(m net.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != net.Connected {
		return net.ErrDisconnected
	}
	c.sent = append(c.sent, m)
	return nil
}

func (c *memChannel) OnReceive(fn func(net.Message))       { c.onReceive = fn }
func (c *memChannel) OnStateChange(fn func(net.ConnState)) { c.onState = fn }
func (c *memChannel) Close() error                         { c.setState(net.Disconnected); return nil }

func (c *memChannel) State() net.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *memChannel) setState(s net.ConnState) {
	c.mu.Lock()
	c.state = s
	fn := c.onState
	c.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (c *memChannel) deliver(m net.Message) { c.onReceive(m) }

func (c *memChannel) messages() []net.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]net.Message(nil), c.sent...)
}

func newTestBoard(t *testing.T, opts Options) (*Board, *memChannel) {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 100, 100
	}
	if opts.Origin == "" {
		opts.Origin = "alice"
	}
	b, err := New(opts)
	if err != nil {
		t.Fatalf("new board: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	ch := newMemChannel()
	b.Attach(ch)
	return b, ch
}

// gesture draws through the pointer path; coordinates are surface pixels.
func gesture(b *Board, pts ...[2]float64) (state.Stroke, bool) {
	b.BeginStroke(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		b.ExtendStroke(p[0], p[1])
	}
	return b.EndStroke()
}

func remote(id, origin string, pts ...state.Point) net.Message {
	return net.Message{Type: net.TypeStroke, ID: id, Origin: origin, Points: pts, Color: "#FF0000", Width: 4}
}

func samePixels(a, b *image.RGBA) bool { return bytes.Equal(a.Pix, b.Pix) }

func TestLocalThenRemoteScenario(t *testing.T) {
	b, ch := newTestBoard(t, Options{})

	local, ok := gesture(b, [2]float64{0, 0}, [2]float64{10, 10})
	if !ok {
		t.Fatal("gesture produced no stroke")
	}
	if b.Len() != 1 || local.Sequence != 1 {
		t.Fatalf("len=%d seq=%d, want 1/1", b.Len(), local.Sequence)
	}
	if local.Points[1] != (state.Point{X: 0.1, Y: 0.1}) {
		t.Fatalf("points not normalized: %+v", local.Points)
	}
	sent := ch.messages()
	if len(sent) != 1 || sent[0].ID != local.ID {
		t.Fatalf("sent = %+v", sent)
	}

	ch.deliver(remote("r1", "bob", state.Point{X: 0.5, Y: 0.1}, state.Point{X: 0.9, Y: 0.9}))
	strokes := b.Strokes()
	if len(strokes) != 2 || strokes[0].ID != local.ID || strokes[1].ID != "r1" || strokes[1].Sequence != 2 {
		t.Fatalf("log = %+v", strokes)
	}

	incremental := b.Image()
	b.ReplayAll()
	if !samePixels(incremental, b.Image()) {
		t.Fatal("incremental render differs from replay")
	}
}

func TestReplayDeterminism(t *testing.T) {
	b, ch := newTestBoard(t, Options{Width: 120, Height: 80})
	for i := 0; i < 12; i++ {
		f := float64(i)
		if i%3 == 0 {
			ch.deliver(remote(fmt.Sprintf("r%d", i), "bob",
				state.Point{X: f / 12, Y: 0.2}, state.Point{X: 0.5, Y: f / 12}, state.Point{X: 0.9, Y: 0.7}))
			continue
		}
		b.SetEraser(i%4 == 0)
		gesture(b, [2]float64{f * 5, 10}, [2]float64{60, f * 4}, [2]float64{100, 70 - f})
	}
	incremental := b.Image()
	b.ReplayAll()
	if !samePixels(incremental, b.Image()) {
		t.Fatal("replay differs from incremental rendering")
	}
}

func TestUndoRedoInverse(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	before := b.Image()

	a, _ := gesture(b, [2]float64{20, 80}, [2]float64{80, 30}, [2]float64{90, 90})
	after := b.Image()

	if !b.Undo() {
		t.Fatal("undo reported nothing to undo")
	}
	if !samePixels(before, b.Image()) || b.Len() != 1 {
		t.Fatal("undo did not restore the previous render")
	}
	if !b.Redo() {
		t.Fatal("redo reported nothing to redo")
	}
	if !samePixels(after, b.Image()) || b.Len() != 2 {
		t.Fatal("redo did not restore the render")
	}
	strokes := b.Strokes()
	if last := strokes[len(strokes)-1]; last.ID != a.ID || last.Sequence <= a.Sequence {
		t.Fatalf("redone stroke = %+v, want id %s with a newer sequence than %d", last, a.ID, a.Sequence)
	}
}

func TestUndoSkipsRemoteStrokes(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	mine, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	ch.deliver(remote("r1", "bob", state.Point{X: 0.1, Y: 0.9}, state.Point{X: 0.9, Y: 0.9}))

	if !b.Undo() {
		t.Fatal("undo failed")
	}
	strokes := b.Strokes()
	if len(strokes) != 1 || strokes[0].ID != "r1" {
		t.Fatalf("undo did not remove %s: %+v", mine.ID, strokes)
	}
	if b.Undo() {
		t.Fatal("undo touched a remote stroke")
	}
	if len(ch.messages()) != 1 {
		t.Fatal("undo was broadcast")
	}
}

func TestRedoInvalidatedByNewStroke(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	b.Undo()
	gesture(b, [2]float64{30, 30}, [2]float64{60, 60})
	if b.CanRedo() || b.Redo() {
		t.Fatal("redo survived a new local stroke")
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d", b.Len())
	}
}

func TestEmptyHistoryIsNoop(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	if b.Undo() || b.Redo() {
		t.Fatal("undo/redo on empty history reported work")
	}
}

func TestDeduplication(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	own, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})

	ch.deliver(net.StrokeMessage(own))
	m := remote("r1", "bob", state.Point{X: 0.2, Y: 0.2}, state.Point{X: 0.8, Y: 0.3})
	ch.deliver(m)
	once := b.Image()
	ch.deliver(m)
	ch.deliver(m)

	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
	if !samePixels(once, b.Image()) {
		t.Fatal("duplicate delivery changed the raster")
	}
}

func TestReplayedJournalDoesNotResurrectUndo(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	s, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	b.Undo()

	// reconnect: the relay replays its journal, echo included
	ch.deliver(net.StrokeMessage(s))
	if b.Len() != 0 {
		t.Fatal("journal replay resurrected an undone stroke")
	}
}

func TestOutOfOrderDeliveryUsesArrivalOrder(t *testing.T) {
	x := remote("x", "bob", state.Point{X: 0.1, Y: 0.1}, state.Point{X: 0.9, Y: 0.9})
	y := remote("y", "carol", state.Point{X: 0.9, Y: 0.1}, state.Point{X: 0.1, Y: 0.9})

	first, ch1 := newTestBoard(t, Options{})
	second, ch2 := newTestBoard(t, Options{Origin: "dave"})
	ch1.deliver(x)
	ch1.deliver(y)
	ch2.deliver(y)
	ch2.deliver(x)

	a, b := first.Strokes(), second.Strokes()
	if a[0].ID != "x" || b[0].ID != "y" || a[1].Sequence != 2 || b[1].Sequence != 2 {
		t.Fatalf("arrival order not kept: %+v / %+v", a, b)
	}

	// the same total order converges to the same raster
	third, ch3 := newTestBoard(t, Options{Origin: "erin"})
	ch3.deliver(x)
	ch3.deliver(y)
	if !samePixels(first.Image(), third.Image()) {
		t.Fatal("same delivery order rendered differently")
	}
}

func TestMalformedInboundIsDropped(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	ch.deliver(net.Message{Type: net.TypeStroke, ID: "empty"})
	ch.deliver(net.Message{Type: "undo", ID: "u", Points: []state.Point{{X: 0, Y: 0}}})
	ch.deliver(remote("", "bob", state.Point{X: 0.5, Y: 0.5}))
	if b.Len() != 0 {
		t.Fatalf("len = %d", b.Len())
	}
	s, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	if s.Sequence != 1 {
		t.Fatalf("malformed input advanced the sequence: %d", s.Sequence)
	}
}

func TestRemoteStrokeWithoutID(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	m, err := net.DecodeMessage([]byte(`{"points":[{"x":0,"y":0},{"x":0.1,"y":0.1}],"color":"#000","width":2}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ch.deliver(m)
	strokes := b.Strokes()
	if len(strokes) != 1 || strokes[0].ID == "" || strokes[0].Sequence != 1 {
		t.Fatalf("log = %+v", strokes)
	}
}

func TestNonFiniteStrokesRejected(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	m, err := net.DecodeMessage([]byte(`{"id":"a","points":[{"x":"NaN","y":0.1},{"x":0.5,"y":0.5}],"width":"Inf"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ch.deliver(m)
	strokes := b.Strokes()
	if len(strokes) != 1 || len(strokes[0].Points) != 1 || strokes[0].Width != state.DefaultWidth {
		t.Fatalf("log = %+v", strokes)
	}
	if _, err := net.EncodeMessage(net.StrokeMessage(strokes[0])); err != nil {
		t.Fatalf("logged stroke does not re-encode: %v", err)
	}

	ch.deliver(net.Message{Type: net.TypeStroke, ID: "n", Points: []state.Point{{X: math.NaN(), Y: 0}}, Width: 2})
	bad := state.Stroke{Points: []state.Point{{X: 0.1, Y: 0.1}, {X: math.Inf(1), Y: 0.2}}, Color: "#000", Width: 2}
	if _, err := b.Draw(bad); !errors.Is(err, state.ErrBadPoint) {
		t.Fatalf("draw err = %v, want ErrBadPoint", err)
	}
	if b.Len() != 1 || len(ch.messages()) != 0 {
		t.Fatalf("non-finite stroke reached the log or channel: len=%d sent=%d", b.Len(), len(ch.messages()))
	}
}

func TestDisconnectedKeepsDrawing(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	var states []net.ConnState
	b.OnConnState = func(s net.ConnState) { states = append(states, s) }
	ch.setState(net.Disconnected)

	if _, ok := gesture(b, [2]float64{10, 10}, [2]float64{50, 20}); !ok {
		t.Fatal("drawing failed while offline")
	}
	if b.Len() != 1 || len(ch.messages()) != 0 {
		t.Fatalf("len=%d sent=%d", b.Len(), len(ch.messages()))
	}
	if len(states) != 1 || states[0] != net.Disconnected {
		t.Fatalf("states = %v", states)
	}

	ch.setState(net.Connected)
	gesture(b, [2]float64{20, 20}, [2]float64{60, 30})
	if len(ch.messages()) != 1 {
		t.Fatal("broadcast did not resume after reconnect")
	}
}

func TestClearResetsState(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	blank := b.Image()
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	ch.deliver(remote("r1", "bob", state.Point{X: 0.2, Y: 0.2}, state.Point{X: 0.8, Y: 0.3}))

	b.Clear()
	if b.Len() != 0 || !samePixels(blank, b.Image()) {
		t.Fatal("clear left strokes behind")
	}
	b.ReplayAll()
	if !samePixels(blank, b.Image()) {
		t.Fatal("replay after clear is not blank")
	}
	if b.Undo() {
		t.Fatal("undo after clear restored a stroke")
	}
	if n := len(ch.messages()); n != 1 {
		t.Fatalf("local clear was broadcast: %d messages", n)
	}
}

func TestSharedClear(t *testing.T) {
	b, ch := newTestBoard(t, Options{ShareClear: true})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	b.Clear()
	sent := ch.messages()
	if last := sent[len(sent)-1]; last.Type != net.TypeClear || last.OwnerID != state.OriginAll || last.Origin != "alice" {
		t.Fatalf("clear message = %+v", last)
	}
}

func TestOwnClearEchoKeepsLaterStrokes(t *testing.T) {
	b, ch := newTestBoard(t, Options{ShareClear: true})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	b.Clear()
	clear := ch.messages()[1]

	after, _ := gesture(b, [2]float64{20, 80}, [2]float64{80, 30})
	ch.deliver(clear)
	if strokes := b.Strokes(); len(strokes) != 1 || strokes[0].ID != after.ID {
		t.Fatalf("own clear echo removed a later stroke: %+v", strokes)
	}

	peer := net.ClearMessage(state.OriginAll)
	peer.Origin = "bob"
	ch.deliver(peer)
	if b.Len() != 0 {
		t.Fatal("clear from another participant ignored")
	}
}

func TestRemoteClearByOwner(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	mine, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	ch.deliver(remote("r1", "bob", state.Point{X: 0.2, Y: 0.2}, state.Point{X: 0.8, Y: 0.3}))

	ch.deliver(net.ClearMessage("bob"))
	strokes := b.Strokes()
	if len(strokes) != 1 || strokes[0].ID != mine.ID {
		t.Fatalf("log after owner clear = %+v", strokes)
	}

	ch.deliver(net.ClearMessage(state.OriginAll))
	if b.Len() != 0 {
		t.Fatal("clear all kept strokes")
	}
}

func TestTapProducesNothing(t *testing.T) {
	b, ch := newTestBoard(t, Options{})
	b.BeginStroke(10, 10)
	if _, ok := b.EndStroke(); ok {
		t.Fatal("tap produced a stroke")
	}
	if _, ok := b.EndStroke(); ok {
		t.Fatal("end without begin produced a stroke")
	}
	if b.Len() != 0 || len(ch.messages()) != 0 {
		t.Fatal("tap reached the log or the channel")
	}
}

func TestPreviewStaysOffTheBase(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	base := b.Image()
	b.BeginStroke(10, 10)
	b.ExtendStroke(40, 40)
	b.ExtendStroke(80, 20)

	if !samePixels(base, b.Image()) {
		t.Fatal("preview drew onto the base raster")
	}
	if !hasInk(b.Preview()) {
		t.Fatal("preview layer is empty during a gesture")
	}
	b.EndStroke()
	if hasInk(b.Preview()) {
		t.Fatal("preview survived gesture end")
	}
}

func TestEraserStroke(t *testing.T) {
	b, _ := newTestBoard(t, Options{Background: "#FFFFFF", Style: state.Style{Color: "#000000", Width: 3}})
	b.SetEraser(true)
	s, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	if !s.IsEraser || s.Color != "#FFFFFF" || s.Width != 6 {
		t.Fatalf("eraser stroke = %+v", s)
	}
}

func TestResizeReplaysAtNewScale(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	s, _ := gesture(b, [2]float64{10, 10}, [2]float64{50, 80}, [2]float64{90, 20})
	if err := b.Resize(200, 150); err != nil {
		t.Fatalf("resize: %v", err)
	}

	fresh, ch := newTestBoard(t, Options{Width: 200, Height: 150, Origin: "bob"})
	ch.deliver(net.StrokeMessage(s))
	if !samePixels(fresh.Image(), b.Image()) {
		t.Fatal("resized board differs from a board drawn at that size")
	}
	if w, h := b.Size(); w != 200 || h != 150 {
		t.Fatalf("size = %dx%d", w, h)
	}
}

func TestFullscreenReplaysAndDropsStamps(t *testing.T) {
	b, _ := newTestBoard(t, Options{})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	logged := b.Image()

	if err := b.Stamp(render.ShapeCircle); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if b.Len() != 1 || samePixels(logged, b.Image()) {
		t.Fatal("stamp reached the log or did not draw")
	}
	if err := b.SetFullscreen(true, 100, 100); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	if !b.Fullscreen() || !samePixels(logged, b.Image()) {
		t.Fatal("fullscreen did not replay the log")
	}
}

func TestSnapshotAndPDF(t *testing.T) {
	b, _ := newTestBoard(t, Options{Format: export.FormatJPEG})
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})

	snap, err := b.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Name != "whiteboard_snapshot.jpg" || len(snap.Data) == 0 {
		t.Fatalf("snapshot = %s (%d bytes)", snap.Name, len(snap.Data))
	}
	pdf, err := b.ExportPDF()
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if pdf.Name != export.PDFName || !bytes.HasPrefix(pdf.Data, []byte("%PDF")) {
		t.Fatalf("pdf = %s", pdf.Name)
	}
}

func TestRecording(t *testing.T) {
	b, _ := newTestBoard(t, Options{RecordInterval: 10 * time.Millisecond})
	if _, ok, _ := b.StopRecording(); ok {
		t.Fatal("stop while idle reported a recording")
	}
	if !b.StartRecording() {
		t.Fatal("start failed")
	}
	if b.StartRecording() {
		t.Fatal("second start was not a no-op")
	}
	gesture(b, [2]float64{10, 10}, [2]float64{50, 20})
	time.Sleep(60 * time.Millisecond)

	a, ok, err := b.StopRecording()
	if err != nil || !ok {
		t.Fatalf("stop: ok=%v err=%v", ok, err)
	}
	if b.Recording() {
		t.Fatal("still recording after stop")
	}
	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) < 2 {
		t.Fatalf("only %d frames captured", len(zr.File))
	}
	for i, f := range zr.File {
		if want := fmt.Sprintf("frame%d.png", i); f.Name != want {
			t.Fatalf("entry %d = %s, want %s", i, f.Name, want)
		}
	}
}

func hasInk(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return true
		}
	}
	return false
}
