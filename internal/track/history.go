package track

import (
	"time"

	"github.com/lumenassist/pathsense/internal/depth"
)

// FrameRecord summarises one processed frame for diagnostics. The depth map
// reference keeps the most recent maps alive for inspection; records beyond
// the history capacity are overwritten, releasing the map.
type FrameRecord struct {
	FrameID         string
	Timestamp       time.Time
	Depth           *depth.DepthMap
	DetectionCount  int
	TrackedCount    int
	ProcessDuration time.Duration
}

// History maintains a bounded ring of recent frame records. It exists only
// for diagnostics; nothing in the tracking path reads it.
type History struct {
	records  []*FrameRecord
	capacity int
	head     int // next write position
	size     int
}

// NewHistory creates a frame history ring with the specified capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 5 // Default
	}
	return &History{
		records:  make([]*FrameRecord, capacity),
		capacity: capacity,
	}
}

// Add stores a new record, overwriting the oldest if at capacity.
func (h *History) Add(record *FrameRecord) {
	h.records[h.head] = record
	h.head = (h.head + 1) % h.capacity
	if h.size < h.capacity {
		h.size++
	}
}

// Previous returns the record N steps back from the most recent.
// Previous(1) returns the most recently added record. Returns nil if the
// requested record doesn't exist.
func (h *History) Previous(n int) *FrameRecord {
	if n < 1 || n > h.size {
		return nil
	}
	idx := (h.head - n + h.capacity) % h.capacity
	return h.records[idx]
}

// Size returns the current number of records in history.
func (h *History) Size() int {
	return h.size
}

// Capacity returns the maximum number of records that can be stored.
func (h *History) Capacity() int {
	return h.capacity
}

// Clear removes all records from history.
func (h *History) Clear() {
	for i := range h.records {
		h.records[i] = nil
	}
	h.head = 0
	h.size = 0
}

// All returns all records in history from oldest to newest.
func (h *History) All() []*FrameRecord {
	if h.size == 0 {
		return nil
	}
	result := make([]*FrameRecord, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - h.size + i + h.capacity) % h.capacity
		result[i] = h.records[idx]
	}
	return result
}
