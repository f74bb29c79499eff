package feedback

import "sync"

// Utterance records one Speak call on a MockSpeech.
type Utterance struct {
	Text      string
	Priority  Priority
	Interrupt bool
}

// MockSpeech records utterances for assertions. Setting Err makes every
// Speak call fail, simulating absent hardware.
type MockSpeech struct {
	mu         sync.Mutex
	Err        error
	utterances []Utterance
}

// Speak implements Speech.
func (m *MockSpeech) Speak(text string, priority Priority, interrupt bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.utterances = append(m.utterances, Utterance{Text: text, Priority: priority, Interrupt: interrupt})
	return nil
}

// Utterances returns a copy of all recorded utterances.
func (m *MockSpeech) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Utterance, len(m.utterances))
	copy(result, m.utterances)
	return result
}

// MockHaptic records played patterns for assertions.
type MockHaptic struct {
	mu       sync.Mutex
	Err      error
	patterns []Pattern
}

// Play implements Haptic.
func (m *MockHaptic) Play(pattern Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.patterns = append(m.patterns, pattern)
	return nil
}

// Patterns returns a copy of all recorded patterns.
func (m *MockHaptic) Patterns() []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Pattern, len(m.patterns))
	copy(result, m.patterns)
	return result
}
