// Package guide converts tracked obstacles into directional and intensity
// cues for audio and haptic output. Output is recomputed fresh each cycle;
// no state is carried between calls.
package guide

import (
	"math"

	"github.com/lumenassist/pathsense/internal/track"
)

// Category classifies a guidance cue for haptic and speech selection.
type Category string

const (
	CategoryStatic          Category = "static"
	CategoryMoving          Category = "moving"
	CategoryImmediateDanger Category = "immediate-danger"
)

// Guidance is a single directional cue derived from one tracked obstacle.
type Guidance struct {
	// Direction in radians, 0 = straight ahead, negative left.
	Direction float64

	Distance  float64
	Intensity float64 // in [0, 1]
	Category  Category
	Label     string
}

// GeneratorConfig holds configuration parameters for the guidance generator.
type GeneratorConfig struct {
	Range          float64 // Obstacles beyond this range produce no guidance (meters)
	MovingSpeed    float64 // Speed above which an obstacle counts as moving (m/s)
	DangerDistance float64 // Distance below which an obstacle is immediate danger (meters)
}

// DefaultGeneratorConfig returns default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Range:          2.0,
		MovingSpeed:    0.5,
		DangerDistance: 0.5,
	}
}

// Generator derives guidance cues from the tracked snapshot.
type Generator struct {
	Config GeneratorConfig
}

// NewGenerator creates a generator with the specified configuration.
func NewGenerator(config GeneratorConfig) *Generator {
	return &Generator{Config: config}
}

// Generate emits one cue per tracked obstacle within range. Intensity is
// three-tier by distance; category precedence is moving over
// immediate-danger over static.
func (g *Generator) Generate(obstacles []track.TrackedObstacle) []Guidance {
	var result []Guidance

	for _, o := range obstacles {
		if o.Distance >= g.Config.Range {
			continue
		}

		var intensity float64
		switch {
		case o.Distance < 0.5:
			intensity = 1.0
		case o.Distance < 1.0:
			intensity = 0.7
		default:
			intensity = 0.4
		}

		category := CategoryStatic
		if o.Distance < g.Config.DangerDistance {
			category = CategoryImmediateDanger
		}
		if o.Speed() > g.Config.MovingSpeed {
			category = CategoryMoving
		}

		result = append(result, Guidance{
			Direction: math.Atan2(o.X, o.Z),
			Distance:  o.Distance,
			Intensity: intensity,
			Category:  category,
			Label:     o.Label,
		})
	}

	return result
}
