package detect

import (
	"context"
	"sync"
)

// Mock is a scriptable detector for tests and replay runs. Each call
// returns the next queued result; once the queue is exhausted it repeats
// the last entry.
type Mock struct {
	mu      sync.Mutex
	results [][]Detection
	errs    []error
	calls   int
}

// NewMock creates a Mock with no queued results. A fresh Mock returns
// zero detections until results are queued.
func NewMock() *Mock {
	return &Mock{}
}

// Queue appends a result to the script.
func (m *Mock) Queue(dets []Detection, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, dets)
	m.errs = append(m.errs, err)
}

// Calls returns how many times Detect has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect implements Detector.
func (m *Mock) Detect(_ context.Context, _ []byte) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.results) == 0 {
		return nil, nil
	}
	idx := m.calls - 1
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	return m.results[idx], m.errs[idx]
}
