package depth

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// SamplerConfig holds configuration parameters for the depth sampler.
type SamplerConfig struct {
	GridCols         int     // Number of sampling grid columns
	GridRows         int     // Number of sampling grid rows
	MaxRange         float64 // Readings at or beyond this range are ignored (meters)
	MinValidFraction float64 // Minimum fraction of valid samples for a cell to emit
	HorizontalFOV    float64 // Horizontal field of view (radians)
	VerticalFOV      float64 // Vertical field of view (radians)
}

// DefaultSamplerConfig returns default sampler configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		GridCols:         16,
		GridRows:         16,
		MaxRange:         5.0,
		MinValidFraction: 0.25,
		HorizontalFOV:    60 * math.Pi / 180,
		VerticalFOV:      45 * math.Pi / 180,
	}
}

// Sampler reduces a dense depth map to a coarse grid of obstacle candidates.
type Sampler struct {
	Config SamplerConfig
}

// NewSampler creates a sampler with the specified configuration.
func NewSampler(config SamplerConfig) *Sampler {
	if config.GridCols < 1 {
		config.GridCols = 16
	}
	if config.GridRows < 1 {
		config.GridRows = 16
	}
	return &Sampler{Config: config}
}

// Sample averages valid depths per grid cell and emits a DetectedObstacle at
// each cell whose valid-sample fraction exceeds the configured minimum. An
// entirely invalid map yields an empty list, never an error.
func (s *Sampler) Sample(m *DepthMap) []DetectedObstacle {
	if m == nil || m.Width < 1 || m.Height < 1 || len(m.Depths) == 0 {
		return nil
	}

	cols := s.Config.GridCols
	rows := s.Config.GridRows

	cellW := float64(m.Width) / float64(cols)
	cellH := float64(m.Height) / float64(rows)

	obstacles := make([]DetectedObstacle, 0, 8)
	valid := make([]float64, 0, int(cellW*cellH)+1)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			x0 := int(float64(col) * cellW)
			x1 := int(float64(col+1) * cellW)
			y0 := int(float64(row) * cellH)
			y1 := int(float64(row+1) * cellH)
			if x1 > m.Width {
				x1 = m.Width
			}
			if y1 > m.Height {
				y1 = m.Height
			}

			valid = valid[:0]
			total := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					total++
					d := float64(m.At(x, y))
					if d > 0 && d < s.Config.MaxRange {
						valid = append(valid, d)
					}
				}
			}

			if total == 0 {
				continue
			}
			if float64(len(valid))/float64(total) <= s.Config.MinValidFraction {
				continue
			}

			meanDepth := stat.Mean(valid, nil)
			obstacles = append(obstacles, s.reproject(row, col, rows, cols, meanDepth))
		}
	}

	return obstacles
}

// reproject converts a grid cell and its mean depth into a 3D obstacle
// candidate at the cell centre using a pinhole approximation.
func (s *Sampler) reproject(row, col, rows, cols int, d float64) DetectedObstacle {
	u := (float64(col) + 0.5) / float64(cols)
	v := (float64(row) + 0.5) / float64(rows)

	bearing := (u - 0.5) * s.Config.HorizontalFOV
	elevation := (0.5 - v) * s.Config.VerticalFOV

	x := d * math.Sin(bearing)
	y := d * math.Sin(elevation)
	z := d * math.Cos(bearing)

	cellAngle := s.Config.HorizontalFOV / float64(cols)

	return DetectedObstacle{
		ID:       fmt.Sprintf("cell_r%d_c%d", row, col),
		X:        x,
		Y:        y,
		Z:        z,
		Distance: d,
		Size:     2 * d * math.Tan(cellAngle/2),
		Label:    "obstacle",
	}
}
