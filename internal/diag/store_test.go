package diag

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "diag.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordFrameAndCount(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	s.RecordFrame("frame-1", now, 12, 3, 4*time.Millisecond)
	s.RecordFrame("frame-2", now.Add(40*time.Millisecond), 10, 3, 5*time.Millisecond)

	n, err := s.FrameCount()
	if err != nil {
		t.Fatalf("FrameCount: %v", err)
	}
	if n != 2 {
		t.Errorf("FrameCount() = %d, want 2", n)
	}
}

func TestRecordEventAndCount(t *testing.T) {
	s := openTestStore(t)

	now := time.Now()
	s.RecordEvent("frame_dropped", "", now)
	s.RecordEvent("announcement", "Caution: person ahead", now)
	s.RecordEvent("frame_dropped", "", now)

	n, err := s.EventCount("frame_dropped")
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 2 {
		t.Errorf("EventCount(frame_dropped) = %d, want 2", n)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	first.RecordEvent("announcement", "x", time.Now())
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer second.Close()

	if first.SessionID == second.SessionID {
		t.Error("sessions must have distinct IDs")
	}
	n, err := second.EventCount("announcement")
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 0 {
		t.Errorf("new session sees %d events from old session, want 0", n)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var s *Store
	s.RecordFrame("frame-1", time.Now(), 1, 1, time.Millisecond)
	s.RecordEvent("announcement", "", time.Now())
	if n, err := s.FrameCount(); err != nil || n != 0 {
		t.Errorf("nil store FrameCount = %d, %v", n, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store Close: %v", err)
	}
}
