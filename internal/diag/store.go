// Package diag records per-session pipeline diagnostics in a local sqlite
// database. Everything here is best-effort: a write failure is logged and
// dropped, because diagnostics must never slow down or crash the guidance
// pipeline.
package diag

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lumenassist/pathsense/internal/monitoring"
)

// Store writes frame and event diagnostics for one pipeline session.
// A nil *Store is valid and discards everything.
type Store struct {
	db        *sql.DB
	SessionID string
}

// Open creates or opens the diagnostics database at path and starts a new
// session.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open diagnostics db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id        TEXT PRIMARY KEY,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS frames (
			session_id        TEXT,
			frame_id          TEXT,
			unix_nanos        BIGINT,
			detections        BIGINT,
			tracked           BIGINT,
			process_micros    BIGINT
		);
		CREATE TABLE IF NOT EXISTS events (
			session_id        TEXT,
			kind              TEXT,
			detail            TEXT,
			unix_nanos        BIGINT
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create diagnostics schema: %w", err)
	}

	s := &Store{db: db, SessionID: uuid.NewString()}
	if _, err := db.Exec(`INSERT INTO sessions (session_id) VALUES (?)`, s.SessionID); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record session: %w", err)
	}
	return s, nil
}

// RecordFrame logs one processed frame.
func (s *Store) RecordFrame(frameID string, timestamp time.Time, detections, tracked int, processTime time.Duration) {
	if s == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO frames (session_id, frame_id, unix_nanos, detections, tracked, process_micros) VALUES (?, ?, ?, ?, ?, ?)`,
		s.SessionID, frameID, timestamp.UnixNano(), detections, tracked, processTime.Microseconds(),
	)
	if err != nil {
		monitoring.Logf("diag: failed to record frame %s: %v", frameID, err)
	}
}

// RecordEvent logs a named pipeline event (announcement, dropped frame,
// effector failure, cadence change).
func (s *Store) RecordEvent(kind, detail string, timestamp time.Time) {
	if s == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO events (session_id, kind, detail, unix_nanos) VALUES (?, ?, ?, ?)`,
		s.SessionID, kind, detail, timestamp.UnixNano(),
	)
	if err != nil {
		monitoring.Logf("diag: failed to record event %s: %v", kind, err)
	}
}

// EventCount returns how many events of the given kind this session has
// recorded. Used by tests and the stats endpoint.
func (s *Store) EventCount(kind string) (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM events WHERE session_id = ? AND kind = ?`,
		s.SessionID, kind,
	).Scan(&n)
	return n, err
}

// FrameCount returns how many frames this session has recorded.
func (s *Store) FrameCount() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM frames WHERE session_id = ?`,
		s.SessionID,
	).Scan(&n)
	return n, err
}

// Close closes the underlying database. Safe on nil.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
