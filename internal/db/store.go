// Package db is the relay journal: every stroke the relay has broadcast, in
// broadcast order, plus a record of uploaded snapshots.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// StrokeRecord is one journaled stroke. Payload is the encoded sync message
// exactly as it was broadcast.
type StrokeRecord struct {
	Seq       int64
	StrokeID  string
	Origin    string
	Payload   []byte
	CreatedAt time.Time
}

// SnapshotRecord is one uploaded snapshot file.
type SnapshotRecord struct {
	ID        int64
	Filename  string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendStroke journals a stroke. It reports false, without error, when a
// stroke with the same id is already journaled.
func (s *Store) AppendStroke(ctx context.Context, rec StrokeRecord) (bool, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO strokes(stroke_id, origin, payload, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(stroke_id) DO NOTHING
`, rec.StrokeID, rec.Origin, string(rec.Payload), ts(rec.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("append stroke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append stroke: %w", err)
	}
	return n == 1, nil
}

// ListStrokes returns the journal in broadcast order.
func (s *Store) ListStrokes(ctx context.Context) ([]StrokeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, stroke_id, origin, payload, created_at FROM strokes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list strokes: %w", err)
	}
	defer rows.Close()
	out := make([]StrokeRecord, 0)
	for rows.Next() {
		var (
			rec       StrokeRecord
			payload   string
			createdAt string
		)
		if err := rows.Scan(&rec.Seq, &rec.StrokeID, &rec.Origin, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan stroke: %w", err)
		}
		rec.Payload = []byte(payload)
		rec.CreatedAt = parseTS(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list strokes: %w", err)
	}
	return out, nil
}

// GetStroke returns one journaled stroke by id.
func (s *Store) GetStroke(ctx context.Context, strokeID string) (StrokeRecord, error) {
	var (
		rec       StrokeRecord
		payload   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT seq, stroke_id, origin, payload, created_at FROM strokes WHERE stroke_id = ?`, strokeID).
		Scan(&rec.Seq, &rec.StrokeID, &rec.Origin, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StrokeRecord{}, ErrNotFound
	}
	if err != nil {
		return StrokeRecord{}, fmt.Errorf("get stroke: %w", err)
	}
	rec.Payload = []byte(payload)
	rec.CreatedAt = parseTS(createdAt)
	return rec, nil
}

// DeleteStrokes removes the strokes of origin, or every stroke when all is
// true, and returns how many rows went.
func (s *Store) DeleteStrokes(ctx context.Context, origin string, all bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if all {
		res, err = s.db.ExecContext(ctx, `DELETE FROM strokes`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM strokes WHERE origin = ?`, origin)
	}
	if err != nil {
		return 0, fmt.Errorf("delete strokes: %w", err)
	}
	return res.RowsAffected()
}

// RecordSnapshot notes an uploaded snapshot file.
func (s *Store) RecordSnapshot(ctx context.Context, filename string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(filename, created_at) VALUES (?, ?)`, filename, ts(at.UTC()))
	if err != nil {
		return 0, fmt.Errorf("record snapshot: %w", err)
	}
	return res.LastInsertId()
}

// ListSnapshots returns uploaded snapshots, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT snapshot_id, filename, created_at FROM snapshots ORDER BY snapshot_id`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	out := make([]SnapshotRecord, 0)
	for rows.Next() {
		var (
			rec       SnapshotRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.CreatedAt = parseTS(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
