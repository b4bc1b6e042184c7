package net

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"LocalBoard/internal/db"
	"LocalBoard/internal/state"

	"github.com/gorilla/websocket"
)

const (
	SnapshotPath = "/whiteboard/snapshot"
	StrokesPath  = "/whiteboard/strokes"

	maxSnapshotBytes = 32 << 20
)

// Journal is the relay's durable record of broadcast strokes.
type Journal interface {
	AppendStroke(ctx context.Context, rec db.StrokeRecord) (bool, error)
	ListStrokes(ctx context.Context) ([]db.StrokeRecord, error)
	DeleteStrokes(ctx context.Context, origin string, all bool) (int64, error)
	RecordSnapshot(ctx context.Context, filename string, at time.Time) (int64, error)
}

// Relay is the central broadcaster. It gives every participant the same
// total order: journal append and fan-out happen under one lock, and a
// joining participant is sent the journal before it sees live traffic.
type Relay struct {
	peers     *PeerManager
	journal   Journal
	outputDir string
	upgrader  websocket.Upgrader
	order     sync.Mutex
	now       func() time.Time
}

// NewRelay creates a relay journaling to j and saving uploaded snapshots
// under outputDir.
func NewRelay(j Journal, outputDir string) *Relay {
	return &Relay{
		peers:     NewPeerManager(),
		journal:   j,
		outputDir: outputDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Peers returns how many participants are connected.
func (r *Relay) Peers() int { return r.peers.Len() }

// Handler routes the relay endpoints.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+RelayPath, r.serveWS)
	mux.HandleFunc("POST "+SnapshotPath, r.serveSnapshot)
	mux.HandleFunc("GET "+StrokesPath, r.serveStrokes)
	return mux
}

func (r *Relay) serveWS(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("[RELAY] Upgrade failed: %v", err)
		return
	}
	ctx := req.Context()
	peer := &Peer{Conn: conn}
	if err := r.join(ctx, peer); err != nil {
		log.Printf("[RELAY] Catch-up for %s failed: %v", peer.addr(), err)
		_ = conn.Close()
		return
	}
	defer r.peers.Remove(peer)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[RELAY] Peer %s disconnected: %v", peer.addr(), err)
			return
		}
		msg, err := DecodeMessage(data)
		if err != nil {
			log.Printf("[RELAY] Dropping message from %s: %v", peer.addr(), err)
			continue
		}
		if err := r.Publish(ctx, msg); err != nil {
			log.Printf("[RELAY] Publish from %s: %v", peer.addr(), err)
		}
	}
}

// join replays the journal to peer and then registers it, atomically with
// respect to Publish.
func (r *Relay) join(ctx context.Context, peer *Peer) error {
	r.order.Lock()
	defer r.order.Unlock()
	records, err := r.journal.ListStrokes(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := peer.write(rec.Payload); err != nil {
			return fmt.Errorf("replay %s: %w", rec.StrokeID, err)
		}
	}
	r.peers.Add(peer)
	log.Printf("[RELAY] Sent %d journaled strokes to %s", len(records), peer.addr())
	return nil
}

// Publish journals msg and fans it out to every participant. Strokes
// without an id get one here so that every participant de-duplicates the
// same way; a stroke id the journal already holds is not sent again.
func (r *Relay) Publish(ctx context.Context, msg Message) error {
	r.order.Lock()
	defer r.order.Unlock()

	switch msg.Type {
	case TypeClear:
		n, err := r.journal.DeleteStrokes(ctx, msg.OwnerID, msg.OwnerID == state.OriginAll)
		if err != nil {
			return err
		}
		log.Printf("[RELAY] Clear for %s dropped %d journaled strokes", msg.OwnerID, n)
	default:
		if msg.ID == "" {
			msg.ID = state.NewID()
		}
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if msg.Type != TypeClear {
		inserted, err := r.journal.AppendStroke(ctx, db.StrokeRecord{
			StrokeID:  msg.ID,
			Origin:    msg.Origin,
			Payload:   data,
			CreatedAt: r.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			log.Printf("[RELAY] Stroke %s already relayed, ignoring", msg.ID)
			return nil
		}
	}
	r.peers.Broadcast(data)
	return nil
}

type snapshotRequest struct {
	Snapshot string `json:"snapshot"`
}

type snapshotResponse struct {
	Filename string `json:"filename"`
}

func (r *Relay) serveSnapshot(w http.ResponseWriter, req *http.Request) {
	var body snapshotRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, maxSnapshotBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	filename, err := r.SaveSnapshot(req.Context(), body.Snapshot)
	if err != nil {
		log.Printf("[RELAY] Snapshot upload failed: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, errBadDataURL) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshotResponse{Filename: filename})
}

var errBadDataURL = errors.New("snapshot is not a base64 data url")

// SaveSnapshot stores an image data URL as <outputDir>/snapshot_<stamp>.<ext>
// and returns the file path.
func (r *Relay) SaveSnapshot(ctx context.Context, dataURL string) (string, error) {
	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", errBadDataURL
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errBadDataURL, err)
	}
	ext := "png"
	if strings.Contains(header, "image/jpeg") || strings.Contains(header, "image/jpg") {
		ext = "jpg"
	}
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	at := r.now()
	filename := filepath.Join(r.outputDir, fmt.Sprintf("snapshot_%s.%s", at.Format("20060102_150405"), ext))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := r.journal.RecordSnapshot(ctx, filename, at); err != nil {
		return "", err
	}
	log.Printf("[RELAY] Snapshot saved to %s", filename)
	return filename, nil
}

func (r *Relay) serveStrokes(w http.ResponseWriter, req *http.Request) {
	records, err := r.journal.ListStrokes(req.Context())
	if err != nil {
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	out := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		out = append(out, json.RawMessage(rec.Payload))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
