// Package detect defines the object-detector boundary of the pipeline.
// Loading and compiling the underlying model is out of scope; the pipeline
// only requires a call returning labelled detections for a frame image.
package detect

import (
	"context"
	"errors"
)

// ErrNoDetector is returned when a chain has no configured providers.
var ErrNoDetector = errors.New("detect: no detector configured")

// ErrUnavailable indicates the detector cannot serve this frame. It is a
// recoverable condition: the pipeline falls back or continues on depth alone.
var ErrUnavailable = errors.New("detect: detector unavailable")

// Bounds is a normalized bounding box in image coordinates, origin top-left.
type Bounds struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// CenterX returns the normalized horizontal centre of the box.
func (b Bounds) CenterX() float64 { return b.X + b.W/2 }

// Detection is a single detector output for one frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Detector produces detections for a frame image. Implementations must be
// safe for sequential reuse; the pipeline never calls Detect concurrently.
type Detector interface {
	// Detect returns the detections for one frame image. Zero detections
	// is a valid result, not an error.
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}
