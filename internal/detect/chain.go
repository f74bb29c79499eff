package detect

import (
	"context"

	"github.com/lumenassist/pathsense/internal/monitoring"
)

// Chain implements Detector by trying a primary on-device model first and
// falling back to a built-in detector when the primary fails. The ordering
// is fixed at setup; call sites never branch on detector identity.
type Chain struct {
	detectors []Detector
}

// NewChain creates a detector chain that tries detectors in order.
// At least one detector is required.
func NewChain(detectors ...Detector) (*Chain, error) {
	if len(detectors) == 0 {
		return nil, ErrNoDetector
	}
	return &Chain{detectors: detectors}, nil
}

// Detect tries each detector until one succeeds. A fallback success is
// logged so model degradation is visible in diagnostics.
func (c *Chain) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	var lastErr error

	for i, d := range c.detectors {
		dets, err := d.Detect(ctx, image)
		if err == nil {
			if i > 0 {
				monitoring.Logf("detect: fallback detector %d served frame (%d detections)", i, len(dets))
			}
			return dets, nil
		}

		lastErr = err
		monitoring.Logf("detect: detector %d failed: %v", i, err)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
