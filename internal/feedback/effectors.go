// Package feedback converts guidance and tracked obstacles into at most one
// spoken utterance and one haptic pattern per cycle, with strict rate
// limiting so the user is never flooded with redundant alerts.
package feedback

import "github.com/lumenassist/pathsense/internal/monitoring"

// Priority ranks a spoken utterance for the speech effector.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the lowercase priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Speech is the spoken-output effector. Dispatch is fire-and-forget: a
// failed call is logged and dropped, never retried mid-cycle.
type Speech interface {
	// Speak queues an utterance. interrupt requests cutting off any
	// in-progress speech; effectors may ignore it.
	Speak(text string, priority Priority, interrupt bool) error
}

// Pattern is a named haptic pattern with optional directionality.
type Pattern struct {
	Name        string
	Intensity   float64
	Direction   float64
	Directional bool
}

// Haptic is the vibration effector. Implementations must no-op safely when
// the hardware is unsupported.
type Haptic interface {
	Play(pattern Pattern) error
}

// LogSpeech writes utterances to the diagnostic log instead of speaking
// them. Used in dev mode and replay runs.
type LogSpeech struct{}

// Speak implements Speech.
func (LogSpeech) Speak(text string, priority Priority, interrupt bool) error {
	monitoring.Logf("speech [%s interrupt=%v]: %s", priority, interrupt, text)
	return nil
}

// NullHaptic discards all patterns. Used when no haptic hardware is present.
type NullHaptic struct{}

// Play implements Haptic.
func (NullHaptic) Play(Pattern) error { return nil }
