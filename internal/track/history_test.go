package track

import (
	"testing"
	"time"
)

func record(id string) *FrameRecord {
	return &FrameRecord{FrameID: id, Timestamp: time.Now()}
}

func TestHistoryAddAndPrevious(t *testing.T) {
	h := NewHistory(3)

	h.Add(record("a"))
	h.Add(record("b"))

	if h.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", h.Size())
	}
	if got := h.Previous(1); got == nil || got.FrameID != "b" {
		t.Errorf("Previous(1) = %v, want b", got)
	}
	if got := h.Previous(2); got == nil || got.FrameID != "a" {
		t.Errorf("Previous(2) = %v, want a", got)
	}
	if got := h.Previous(3); got != nil {
		t.Errorf("Previous(3) = %v, want nil", got)
	}
}

func TestHistoryOverwritesOldest(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Add(record(id))
	}

	if h.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", h.Size())
	}

	all := h.All()
	want := []string{"b", "c", "d"}
	for i, id := range want {
		if all[i].FrameID != id {
			t.Errorf("All()[%d] = %s, want %s", i, all[i].FrameID, id)
		}
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(2)
	h.Add(record("a"))
	h.Clear()

	if h.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", h.Size())
	}
	if h.All() != nil {
		t.Error("All() after Clear should be nil")
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	if h.Capacity() != 5 {
		t.Errorf("Capacity() = %d, want default 5", h.Capacity())
	}
}
