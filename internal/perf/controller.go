// Package perf adapts the pipeline's frame cadence to the device's power
// and thermal state. The controller is pull-based: the frame-acquisition
// loop reads the current target on each cycle; nothing here blocks or
// pushes into the tracking pipeline.
package perf

import (
	"sync"
	"time"

	"github.com/lumenassist/pathsense/internal/monitoring"
)

// ThermalLevel mirrors the host platform's thermal pressure ladder.
type ThermalLevel int

const (
	ThermalNominal ThermalLevel = iota
	ThermalFair
	ThermalSerious
	ThermalCritical
)

// String returns the lowercase thermal level name.
func (l ThermalLevel) String() string {
	switch l {
	case ThermalNominal:
		return "nominal"
	case ThermalFair:
		return "fair"
	case ThermalSerious:
		return "serious"
	case ThermalCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// TelemetrySnapshot is one periodic reading from the power/thermal
// telemetry collaborator.
type TelemetrySnapshot struct {
	BatteryFraction float64 // 0..1, negative when unknown
	Charging        bool
	Thermal         ThermalLevel
	LowPowerMode    bool
}

// ControllerConfig holds configuration parameters for the controller.
type ControllerConfig struct {
	BaseHz             float64 // Target cadence with no constraints active
	FloorHz            float64 // Hard minimum cadence
	LowBatteryFraction float64 // Battery level that triggers the midpoint clamp
	MaxConcurrent      int     // Concurrency limit when unconstrained
}

// DefaultControllerConfig returns default controller configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		BaseHz:             25.0,
		FloorHz:            10.0,
		LowBatteryFraction: 0.2,
		MaxConcurrent:      1,
	}
}

// Controller degrades the target cadence from base toward floor as power
// and thermal constraints activate. The most restrictive active constraint
// wins.
type Controller struct {
	config ControllerConfig

	mu        sync.Mutex
	telemetry TelemetrySnapshot
}

// NewController creates a controller with the specified configuration.
func NewController(config ControllerConfig) *Controller {
	if config.BaseHz <= 0 {
		config.BaseHz = 25.0
	}
	if config.FloorHz <= 0 || config.FloorHz > config.BaseHz {
		config.FloorHz = config.BaseHz
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	return &Controller{
		config: config,
		telemetry: TelemetrySnapshot{
			BatteryFraction: -1, // unknown until first observation
		},
	}
}

// Observe records a new telemetry snapshot. Cadence changes are logged so
// throttling shows up in diagnostics.
func (c *Controller) Observe(snapshot TelemetrySnapshot) {
	c.mu.Lock()
	before := c.targetLocked()
	c.telemetry = snapshot
	after := c.targetLocked()
	c.mu.Unlock()

	if before != after {
		monitoring.Logf("perf: target cadence %.1fHz -> %.1fHz (thermal=%s battery=%.0f%% charging=%v lowpower=%v)",
			before, after, snapshot.Thermal, snapshot.BatteryFraction*100, snapshot.Charging, snapshot.LowPowerMode)
	}
}

// TargetHz returns the current target frame cadence.
func (c *Controller) TargetHz() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetLocked()
}

func (c *Controller) targetLocked() float64 {
	base := c.config.BaseHz
	floor := c.config.FloorHz
	target := base

	clamp := func(hz float64) {
		if hz < target {
			target = hz
		}
	}

	if c.telemetry.Thermal == ThermalSerious {
		clamp(floor + 2)
	}
	if c.telemetry.Thermal == ThermalCritical || c.telemetry.LowPowerMode {
		clamp(floor)
	}
	if c.telemetry.BatteryFraction >= 0 &&
		c.telemetry.BatteryFraction < c.config.LowBatteryFraction &&
		!c.telemetry.Charging {
		clamp((base + floor) / 2)
	}

	if target < floor {
		target = floor
	}
	return target
}

// FrameInterval returns the target interval between frames.
func (c *Controller) FrameInterval() time.Duration {
	hz := c.TargetHz()
	return time.Duration(float64(time.Second) / hz)
}

// MaxConcurrentFrames returns the frame admission limit: 1 while any
// constraint is active, otherwise the configured value.
func (c *Controller) MaxConcurrentFrames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.targetLocked() < c.config.BaseHz {
		return 1
	}
	return c.config.MaxConcurrent
}
