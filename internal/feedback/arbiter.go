package feedback

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumenassist/pathsense/internal/guide"
	"github.com/lumenassist/pathsense/internal/monitoring"
	"github.com/lumenassist/pathsense/internal/timeutil"
	"github.com/lumenassist/pathsense/internal/track"
	"github.com/lumenassist/pathsense/internal/units"
)

// ArbiterConfig holds configuration parameters for the feedback arbiter.
type ArbiterConfig struct {
	AlertRange            float64       // Obstacles beyond this range are never announced (meters)
	MinInterval           time.Duration // Unconditional debounce between obstacle announcements
	MaxAnnounced          int           // Obstacles named per announcement
	InterruptDistance     float64       // Closest-obstacle distance that escalates to an interrupting utterance (meters)
	GuidanceMinIntensity  float64       // Spatial guidance below this intensity is ignored
	GuidanceMinInterval   time.Duration // Debounce for the spatial-guidance path
	StrongPatternDistance float64       // Haptic tier boundaries (meters)
	MediumPatternDistance float64
}

// DefaultArbiterConfig returns default arbiter configuration.
func DefaultArbiterConfig() ArbiterConfig {
	return ArbiterConfig{
		AlertRange:            10.0,
		MinInterval:           1500 * time.Millisecond,
		MaxAnnounced:          3,
		InterruptDistance:     1.0,
		GuidanceMinIntensity:  0.7,
		GuidanceMinInterval:   time.Second,
		StrongPatternDistance: 0.5,
		MediumPatternDistance: 2.0,
	}
}

// Arbiter owns all announcement state. Debounce windows are wall-clock
// reads through the injected Clock, not scheduled events, so gating is
// evaluated synchronously on each would-be announcement.
type Arbiter struct {
	config ArbiterConfig
	speech Speech
	haptic Haptic
	clock  timeutil.Clock

	mu               sync.Mutex
	lastAnnouncement time.Time
	lastSignatures   map[string]struct{}
	lastGuidance     time.Time
}

// NewArbiter creates an arbiter dispatching to the given effectors.
// A nil clock defaults to the real clock; nil effectors are treated as
// absent hardware and every dispatch to them is dropped with a log line.
func NewArbiter(config ArbiterConfig, speech Speech, haptic Haptic, clock timeutil.Clock) *Arbiter {
	if config.MaxAnnounced < 1 {
		config.MaxAnnounced = 3
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Arbiter{
		config:         config,
		speech:         speech,
		haptic:         haptic,
		clock:          clock,
		lastSignatures: make(map[string]struct{}),
	}
}

// AnnounceObstacles converts the tracked snapshot into at most one spoken
// utterance and one haptic pattern. Returns true when an announcement was
// dispatched.
//
// Gating order is deliberate: the debounce interval is checked before
// content, so even brand-new obstacles stay silent inside the window.
func (a *Arbiter) AnnounceObstacles(obstacles []track.TrackedObstacle) bool {
	candidates := make([]track.TrackedObstacle, 0, len(obstacles))
	for _, o := range obstacles {
		if o.Distance < a.config.AlertRange {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if now.Sub(a.lastAnnouncement) < a.config.MinInterval {
		return false
	}

	signatures := make(map[string]struct{}, len(candidates))
	for _, o := range candidates {
		signatures[signature(o)] = struct{}{}
	}
	if isSubset(signatures, a.lastSignatures) {
		return false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	named := candidates
	if len(named) > a.config.MaxAnnounced {
		named = named[:a.config.MaxAnnounced]
	}

	closest := named[0]
	urgent := closest.Distance < a.config.InterruptDistance

	priority := PriorityNormal
	if urgent {
		priority = PriorityHigh
	}

	if err := a.speak(sentence(named), priority, urgent); err != nil {
		monitoring.Logf("feedback: speech dispatch failed: %v", err)
	}
	if err := a.playObstaclePattern(closest); err != nil {
		monitoring.Logf("feedback: haptic dispatch failed: %v", err)
	}

	a.lastAnnouncement = now
	a.lastSignatures = signatures
	return true
}

// AnnounceSpatialGuidance speaks the single most urgent guidance cue above
// the intensity threshold and fires a warning haptic when any cue is
// immediate danger. This path has its own looser gating and does not share
// the obstacle announcement signature state.
func (a *Arbiter) AnnounceSpatialGuidance(guidance []guide.Guidance) bool {
	urgentCues := make([]guide.Guidance, 0, len(guidance))
	danger := false
	for _, g := range guidance {
		if g.Intensity > a.config.GuidanceMinIntensity {
			urgentCues = append(urgentCues, g)
		}
		if g.Category == guide.CategoryImmediateDanger {
			danger = true
		}
	}
	if len(urgentCues) == 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if now.Sub(a.lastGuidance) < a.config.GuidanceMinInterval {
		return false
	}

	most := urgentCues[0]
	for _, g := range urgentCues[1:] {
		if g.Intensity > most.Intensity || (g.Intensity == most.Intensity && g.Distance < most.Distance) {
			most = g
		}
	}

	label := most.Label
	if label == "" {
		label = "obstacle"
	}
	text := fmt.Sprintf("Warning: %s %s, %s",
		label, units.DescribeDirection(most.Direction), units.DescribeDistance(most.Distance))

	interrupt := most.Category == guide.CategoryImmediateDanger
	if err := a.speak(text, PriorityHigh, interrupt); err != nil {
		monitoring.Logf("feedback: guidance speech dispatch failed: %v", err)
	}

	if danger {
		if err := a.play(Pattern{Name: "warning", Intensity: 1.0}); err != nil {
			monitoring.Logf("feedback: warning haptic dispatch failed: %v", err)
		}
	}

	a.lastGuidance = now
	return true
}

// Reset clears all announcement state. Used on pipeline restart.
func (a *Arbiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAnnouncement = time.Time{}
	a.lastGuidance = time.Time{}
	a.lastSignatures = make(map[string]struct{})
}

func (a *Arbiter) speak(text string, priority Priority, interrupt bool) error {
	if a.speech == nil {
		return fmt.Errorf("speech effector not available")
	}
	return a.speech.Speak(text, priority, interrupt)
}

func (a *Arbiter) play(pattern Pattern) error {
	if a.haptic == nil {
		return fmt.Errorf("haptic effector not available")
	}
	return a.haptic.Play(pattern)
}

// playObstaclePattern fires the haptic pattern for the single closest
// obstacle, keyed by distance tier and direction.
func (a *Arbiter) playObstaclePattern(o track.TrackedObstacle) error {
	name := "pulse-light"
	intensity := 0.4
	switch {
	case o.Distance < a.config.StrongPatternDistance:
		name = "pulse-strong"
		intensity = 1.0
	case o.Distance < a.config.MediumPatternDistance:
		name = "pulse-medium"
		intensity = 0.7
	}
	return a.play(Pattern{
		Name:        name,
		Intensity:   intensity,
		Direction:   o.Bearing(),
		Directional: true,
	})
}

// signature is the coarse (label, rounded-distance) key used to detect
// materially new obstacle content.
func signature(o track.TrackedObstacle) string {
	label := o.Label
	if label == "" {
		label = "obstacle"
	}
	return fmt.Sprintf("%s@%d", label, units.SignatureDistance(o.Distance))
}

// isSubset reports whether every key of a is present in b.
func isSubset(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// sentence builds the spoken summary for the named obstacles, closest first.
func sentence(named []track.TrackedObstacle) string {
	parts := make([]string, 0, len(named))
	for _, o := range named {
		label := o.Label
		if label == "" {
			label = "obstacle"
		}
		parts = append(parts, fmt.Sprintf("%s %s, %s",
			label, units.DescribeDirection(o.Bearing()), units.DescribeDistance(o.Distance)))
	}
	return "Caution: " + strings.Join(parts, "; ")
}
