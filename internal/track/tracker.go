// Package track associates per-frame obstacle candidates into persistent
// obstacle identities with estimated velocity and confidence.
package track

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lumenassist/pathsense/internal/depth"
)

// Confidence constants. Confidence starts at InitialConfidence on creation,
// increases by ConfidenceStep per consecutive match capped at 1.0, and never
// decreases on match. Occlusion is tolerated via the tracking timeout rather
// than an explicit decay.
const (
	InitialConfidence = 0.3
	ConfidenceStep    = 0.1
)

// TrackerConfig holds configuration parameters for the obstacle tracker.
type TrackerConfig struct {
	MatchingThreshold float64       // Maximum association distance (meters)
	TrackingTimeout   time.Duration // Unseen obstacles older than this are dropped
}

// DefaultTrackerConfig returns default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MatchingThreshold: 0.5,
		TrackingTimeout:   2 * time.Second,
	}
}

// TrackedObstacle is an obstacle with a persistent identity across frames.
// Instances are owned exclusively by the Tracker; Update returns copies.
type TrackedObstacle struct {
	ID    string
	Label string

	// Position in meters, camera frame: X right, Y up, Z forward.
	X float64
	Y float64
	Z float64

	// Velocity vector in m/s.
	VX float64
	VY float64
	VZ float64

	Distance float64
	Size     float64

	FirstSeen      time.Time
	LastSeen       time.Time
	DetectionCount int
	Confidence     float64
}

// Speed returns the velocity magnitude in m/s.
func (o *TrackedObstacle) Speed() float64 {
	return math.Sqrt(o.VX*o.VX + o.VY*o.VY + o.VZ*o.VZ)
}

// Bearing returns the obstacle direction in radians, 0 = straight ahead,
// negative left, positive right.
func (o *TrackedObstacle) Bearing() float64 {
	return math.Atan2(o.X, o.Z)
}

// Tracker manages obstacle identities across frames. Its state is
// single-writer: Update must not be called concurrently, which the
// pipeline's frame admission guard enforces. The mutex protects the
// snapshot accessors that run on other goroutines.
type Tracker struct {
	mu        sync.Mutex
	obstacles map[string]*TrackedObstacle
	nextID    int64
	config    TrackerConfig
}

// NewTracker creates a tracker with the specified configuration.
func NewTracker(config TrackerConfig) *Tracker {
	if config.MatchingThreshold <= 0 {
		config.MatchingThreshold = 0.5
	}
	if config.TrackingTimeout <= 0 {
		config.TrackingTimeout = 2 * time.Second
	}
	return &Tracker{
		obstacles: make(map[string]*TrackedObstacle),
		nextID:    1,
		config:    config,
	}
}

// Update associates the frame's detections with existing obstacles and
// returns a snapshot of the tracked set. Association is greedy nearest
// match, not an optimal assignment: each tracked obstacle takes the closest
// unconsumed detection within the matching threshold. Crossing obstacles
// can in principle swap matches; the simplification is deliberate.
//
// Result ordering is not contractually meaningful to callers.
func (t *Tracker) Update(detections []depth.DetectedObstacle, timestamp time.Time) []TrackedObstacle {
	t.mu.Lock()
	defer t.mu.Unlock()

	consumed := make([]bool, len(detections))

	// Step 1: match existing obstacles to their nearest unconsumed detection.
	for _, obstacle := range t.obstacles {
		bestIdx := -1
		bestDist := t.config.MatchingThreshold

		for i, det := range detections {
			if consumed[i] {
				continue
			}
			d := euclidean(obstacle.X, obstacle.Y, obstacle.Z, det.X, det.Y, det.Z)
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			t.applyMatch(obstacle, detections[bestIdx], timestamp)
			consumed[bestIdx] = true
		}
	}

	// Step 2: evict obstacles unseen longer than the timeout. Unmatched
	// obstacles inside the timeout survive unchanged (occlusion tolerance).
	for id, obstacle := range t.obstacles {
		if timestamp.Sub(obstacle.LastSeen) > t.config.TrackingTimeout {
			delete(t.obstacles, id)
		}
	}

	// Step 3: remaining detections become new obstacles.
	for i, det := range detections {
		if consumed[i] {
			continue
		}
		t.initObstacle(det, timestamp)
	}

	return t.snapshotLocked()
}

// applyMatch folds a matched detection into an existing obstacle. A zero or
// negative time delta (clock anomaly) skips the velocity update for this
// cycle rather than dividing by zero.
func (t *Tracker) applyMatch(obstacle *TrackedObstacle, det depth.DetectedObstacle, timestamp time.Time) {
	dt := timestamp.Sub(obstacle.LastSeen).Seconds()
	if dt > 0 {
		obstacle.VX = (det.X - obstacle.X) / dt
		obstacle.VY = (det.Y - obstacle.Y) / dt
		obstacle.VZ = (det.Z - obstacle.Z) / dt
	}

	obstacle.X = det.X
	obstacle.Y = det.Y
	obstacle.Z = det.Z
	obstacle.Distance = det.Distance
	obstacle.Size = det.Size
	if det.Label != "" && det.Label != "obstacle" {
		obstacle.Label = det.Label
	}

	obstacle.LastSeen = timestamp
	obstacle.DetectionCount++
	obstacle.Confidence = math.Min(1.0, obstacle.Confidence+ConfidenceStep)
}

// initObstacle creates a new tracked obstacle from an unmatched detection.
func (t *Tracker) initObstacle(det depth.DetectedObstacle, timestamp time.Time) *TrackedObstacle {
	id := fmt.Sprintf("obstacle_%d", t.nextID)
	t.nextID++

	label := det.Label
	if label == "" {
		label = "obstacle"
	}

	obstacle := &TrackedObstacle{
		ID:             id,
		Label:          label,
		X:              det.X,
		Y:              det.Y,
		Z:              det.Z,
		Distance:       det.Distance,
		Size:           det.Size,
		FirstSeen:      timestamp,
		LastSeen:       timestamp,
		DetectionCount: 1,
		Confidence:     InitialConfidence,
	}
	t.obstacles[id] = obstacle
	return obstacle
}

// Snapshot returns copies of the currently tracked obstacles.
func (t *Tracker) Snapshot() []TrackedObstacle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []TrackedObstacle {
	result := make([]TrackedObstacle, 0, len(t.obstacles))
	for _, obstacle := range t.obstacles {
		result = append(result, *obstacle)
	}
	return result
}

// Count returns the number of currently tracked obstacles.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.obstacles)
}

// Clear removes all tracked obstacles. Used on pipeline restart.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.obstacles = make(map[string]*TrackedObstacle)
}

func euclidean(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	dz := z2 - z1
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
