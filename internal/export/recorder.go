package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"log"
	"sync"
	"time"
)

// RecordingName is the file name of a finished recording.
const RecordingName = "recording.zip"

// FrameSource returns a copy of the current board raster.
type FrameSource func() (image.Image, error)

// Recorder samples a FrameSource at a fixed interval while recording. It is
// a two-state machine: Idle -> Recording -> Idle.
type Recorder struct {
	interval time.Duration
	format   Format

	mu     sync.Mutex
	active bool
	frames [][]byte
	stop   chan struct{}
	done   chan struct{}

	// newTicker is replaced in tests to drive ticks by hand.
	newTicker func(time.Duration) (<-chan time.Time, func())
}

// NewRecorder creates an idle recorder.
func NewRecorder(interval time.Duration, format Format) *Recorder {
	return &Recorder{
		interval: interval,
		format:   format,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Frames returns how many frames the current recording holds.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Start begins sampling source: one frame right away, then one per interval.
// Starting while already recording does nothing and returns false.
func (r *Recorder) Start(source FrameSource) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return false
	}
	r.active = true
	r.frames = nil
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	ticks, stopTicker := r.newTicker(r.interval)
	go r.run(source, ticks, stopTicker, r.stop, r.done)
	log.Printf("[EXPORT] Recording started (every %s)", r.interval)
	return true
}

func (r *Recorder) run(source FrameSource, ticks <-chan time.Time, stopTicker func(), stop, done chan struct{}) {
	defer close(done)
	defer stopTicker()
	r.capture(source)
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			r.capture(source)
		}
	}
}

func (r *Recorder) capture(source FrameSource) {
	img, err := source()
	if err != nil {
		log.Printf("[EXPORT] Frame capture failed: %v", err)
		return
	}
	var buf bytes.Buffer
	if err := Encode(&buf, img, r.format); err != nil {
		log.Printf("[EXPORT] Frame dropped: %v", err)
		return
	}
	r.mu.Lock()
	r.frames = append(r.frames, buf.Bytes())
	r.mu.Unlock()
}

// Stop ends the recording and packages every captured frame. Stopping while
// idle does nothing and returns false. Stop must not be called from inside
// the FrameSource.
func (r *Recorder) Stop() (Artifact, bool, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return Artifact{}, false, nil
	}
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.active = false
	r.mu.Unlock()

	log.Printf("[EXPORT] Recording stopped with %d frames", len(frames))
	a, err := Archive(frames, r.format)
	return a, true, err
}

// Archive packages encoded frames into a zip with one entry per frame,
// named frame0.<ext>, frame1.<ext>, ... in capture order.
func Archive(frames [][]byte, f Format) (Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, frame := range frames {
		w, err := zw.Create(fmt.Sprintf("frame%d.%s", i, f.Ext()))
		if err != nil {
			return Artifact{}, fmt.Errorf("%w: zip entry %d: %v", ErrEncode, i, err)
		}
		if _, err := w.Write(frame); err != nil {
			return Artifact{}, fmt.Errorf("%w: zip entry %d: %v", ErrEncode, i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("%w: zip: %v", ErrEncode, err)
	}
	return Artifact{Name: RecordingName, ContentType: "application/zip", Data: buf.Bytes()}, nil
}
