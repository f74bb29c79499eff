// Package depth converts dense per-pixel depth maps into coarse obstacle
// candidates. A DepthMap is immutable once built and owned by the frame
// cycle that produced it; sampling never retains state across calls.
package depth

import (
	"time"
)

// DepthMap is a dense grid of per-pixel distance readings in meters.
// A reading of 0 marks an invalid sample (no return from the sensor).
type DepthMap struct {
	Width     int
	Height    int
	Depths    []float32 // row-major, len == Width*Height
	Timestamp time.Time
}

// NewDepthMap builds a DepthMap over the given readings. The readings slice
// is used directly, not copied; callers must not mutate it afterwards.
func NewDepthMap(width, height int, depths []float32, timestamp time.Time) *DepthMap {
	return &DepthMap{
		Width:     width,
		Height:    height,
		Depths:    depths,
		Timestamp: timestamp,
	}
}

// At returns the depth at pixel (x, y), or 0 if out of bounds.
func (m *DepthMap) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	idx := y*m.Width + x
	if idx >= len(m.Depths) {
		return 0
	}
	return m.Depths[idx]
}

// DetectedObstacle is a raw per-frame obstacle candidate. It exists only
// within one tracking update call and never persists across frames.
type DetectedObstacle struct {
	ID string

	// Position in meters, camera frame: X right, Y up, Z forward.
	X float64
	Y float64
	Z float64

	// Straight-line distance from the sensor in meters.
	Distance float64

	// Approximate footprint size in meters.
	Size float64

	// Label assigned by the object detector, or "obstacle" when the
	// candidate came from depth alone.
	Label string
}
