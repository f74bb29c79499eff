// Package path projects tracked obstacles forward in time to flag collision
// risk and recommend a steering direction. The recommendation is a heuristic
// side comparison, not an optimal planner.
package path

import (
	"math"
	"time"

	"github.com/lumenassist/pathsense/internal/track"
)

// Severity ranks the urgency of a path warning.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Warning flags a tracked obstacle predicted to enter the walking corridor.
type Warning struct {
	ObstacleID string
	X, Y, Z    float64

	// TimeToImpact is distance over closing speed, in seconds. +Inf when
	// the closing speed is degenerate.
	TimeToImpact float64

	Severity Severity
}

// Analysis is the aggregate result of one analyzer pass. Recomputed every
// cycle from the tracked snapshot, never persisted.
type Analysis struct {
	ClearPath bool
	Warnings  []Warning

	// RecommendedDirection is a steering suggestion in radians: negative
	// left, positive right, 0 when tied or nothing is nearby.
	RecommendedDirection float64
}

// AnalyzerConfig holds configuration parameters for the path analyzer.
type AnalyzerConfig struct {
	MinMovingSpeed   float64       // Obstacles slower than this are ignored (m/s)
	Horizon          time.Duration // Forward-projection horizon
	LateralClearance float64       // Corridor half-width (meters)
	ForwardClearance float64       // Corridor depth (meters)
	NearbyRange      float64       // Range for the side-comparison heuristic (meters)
	CriticalTTI      time.Duration // Warnings closer than this escalate to critical
}

// DefaultAnalyzerConfig returns default analyzer configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinMovingSpeed:   0.1,
		Horizon:          time.Second,
		LateralClearance: 1.0,
		ForwardClearance: 2.0,
		NearbyRange:      3.0,
		CriticalTTI:      500 * time.Millisecond,
	}
}

// Analyzer projects tracked obstacles along their velocity vectors.
// It is stateless between calls.
type Analyzer struct {
	Config AnalyzerConfig
}

// NewAnalyzer creates an analyzer with the specified configuration.
func NewAnalyzer(config AnalyzerConfig) *Analyzer {
	return &Analyzer{Config: config}
}

// steerAngle is the magnitude of the recommended steering adjustment.
const steerAngle = 45 * math.Pi / 180

// Analyze runs one predictive pass over the tracked snapshot.
func (a *Analyzer) Analyze(obstacles []track.TrackedObstacle) Analysis {
	horizon := a.Config.Horizon.Seconds()
	var warnings []Warning

	for _, o := range obstacles {
		speed := o.Speed()
		if speed <= a.Config.MinMovingSpeed {
			continue
		}

		px := o.X + o.VX*horizon
		pz := o.Z + o.VZ*horizon

		if math.Abs(px) >= a.Config.LateralClearance || pz >= a.Config.ForwardClearance {
			continue
		}

		// Guard the division even though the speed filter above makes a
		// near-zero closing speed unreachable here.
		tti := math.Inf(1)
		if speed > 1e-9 {
			tti = o.Distance / speed
		}

		severity := SeverityHigh
		if tti < a.Config.CriticalTTI.Seconds() {
			severity = SeverityCritical
		}

		warnings = append(warnings, Warning{
			ObstacleID:   o.ID,
			X:            o.X,
			Y:            o.Y,
			Z:            o.Z,
			TimeToImpact: tti,
			Severity:     severity,
		})
	}

	return Analysis{
		ClearPath:            len(warnings) == 0,
		Warnings:             warnings,
		RecommendedDirection: a.recommendDirection(obstacles),
	}
}

// recommendDirection compares obstacle counts within the nearby range on the
// left half-plane (x < 0) against the right (x > 0) and suggests the side
// with fewer obstacles, or straight ahead on a tie or an empty field.
func (a *Analyzer) recommendDirection(obstacles []track.TrackedObstacle) float64 {
	var left, right int
	for _, o := range obstacles {
		if o.Distance >= a.Config.NearbyRange {
			continue
		}
		switch {
		case o.X < 0:
			left++
		case o.X > 0:
			right++
		}
	}

	switch {
	case left == 0 && right == 0:
		return 0
	case left < right:
		return -steerAngle
	case right < left:
		return steerAngle
	default:
		return 0
	}
}
