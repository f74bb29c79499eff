package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for pipeline tuning
// parameters. All fields are pointers so a partial JSON file can override
// only the values it names; the Get* methods provide fallback defaults for
// anything left unset.
type TuningConfig struct {
	// Depth sampler params
	GridCols         *int     `json:"grid_cols,omitempty"`
	GridRows         *int     `json:"grid_rows,omitempty"`
	MaxRangeMeters   *float64 `json:"max_range_m,omitempty"`
	MinValidFraction *float64 `json:"min_valid_fraction,omitempty"`
	HorizontalFOVDeg *float64 `json:"horizontal_fov_deg,omitempty"`
	VerticalFOVDeg   *float64 `json:"vertical_fov_deg,omitempty"`

	// Tracker params
	MatchingThresholdMeters *float64 `json:"matching_threshold_m,omitempty"`
	TrackingTimeout         *string  `json:"tracking_timeout,omitempty"` // duration string like "2s"

	// Path analyzer params
	PredictionHorizon *string  `json:"prediction_horizon,omitempty"` // duration string like "1s"
	MinMovingSpeed    *float64 `json:"min_moving_speed_mps,omitempty"`

	// Guidance params
	GuidanceRangeMeters *float64 `json:"guidance_range_m,omitempty"`

	// Feedback arbiter params
	AlertRangeMeters        *float64 `json:"alert_range_m,omitempty"`
	MinAnnouncementInterval *string  `json:"min_announcement_interval,omitempty"` // duration string like "1500ms"
	MaxAnnouncedObstacles   *int     `json:"max_announced_obstacles,omitempty"`

	// Performance controller params
	BaseRateHz          *float64 `json:"base_rate_hz,omitempty"`
	FloorRateHz         *float64 `json:"floor_rate_hz,omitempty"`
	LowBatteryFraction  *float64 `json:"low_battery_fraction,omitempty"`
	MaxConcurrentFrames *int     `json:"max_concurrent_frames,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.GridCols != nil && *c.GridCols < 1 {
		return fmt.Errorf("grid_cols must be >= 1, got %d", *c.GridCols)
	}
	if c.GridRows != nil && *c.GridRows < 1 {
		return fmt.Errorf("grid_rows must be >= 1, got %d", *c.GridRows)
	}
	if c.MaxRangeMeters != nil && *c.MaxRangeMeters <= 0 {
		return fmt.Errorf("max_range_m must be positive, got %f", *c.MaxRangeMeters)
	}
	if c.MinValidFraction != nil {
		if *c.MinValidFraction < 0 || *c.MinValidFraction > 1 {
			return fmt.Errorf("min_valid_fraction must be between 0 and 1, got %f", *c.MinValidFraction)
		}
	}
	if c.MatchingThresholdMeters != nil && *c.MatchingThresholdMeters <= 0 {
		return fmt.Errorf("matching_threshold_m must be positive, got %f", *c.MatchingThresholdMeters)
	}
	if c.TrackingTimeout != nil && *c.TrackingTimeout != "" {
		if _, err := time.ParseDuration(*c.TrackingTimeout); err != nil {
			return fmt.Errorf("invalid tracking_timeout '%s': %w", *c.TrackingTimeout, err)
		}
	}
	if c.PredictionHorizon != nil && *c.PredictionHorizon != "" {
		if _, err := time.ParseDuration(*c.PredictionHorizon); err != nil {
			return fmt.Errorf("invalid prediction_horizon '%s': %w", *c.PredictionHorizon, err)
		}
	}
	if c.MinAnnouncementInterval != nil && *c.MinAnnouncementInterval != "" {
		if _, err := time.ParseDuration(*c.MinAnnouncementInterval); err != nil {
			return fmt.Errorf("invalid min_announcement_interval '%s': %w", *c.MinAnnouncementInterval, err)
		}
	}
	if c.MaxAnnouncedObstacles != nil && *c.MaxAnnouncedObstacles < 1 {
		return fmt.Errorf("max_announced_obstacles must be >= 1, got %d", *c.MaxAnnouncedObstacles)
	}
	if c.LowBatteryFraction != nil {
		if *c.LowBatteryFraction < 0 || *c.LowBatteryFraction > 1 {
			return fmt.Errorf("low_battery_fraction must be between 0 and 1, got %f", *c.LowBatteryFraction)
		}
	}
	if c.BaseRateHz != nil && c.FloorRateHz != nil && *c.FloorRateHz > *c.BaseRateHz {
		return fmt.Errorf("floor_rate_hz (%f) must not exceed base_rate_hz (%f)", *c.FloorRateHz, *c.BaseRateHz)
	}
	if c.MaxConcurrentFrames != nil && *c.MaxConcurrentFrames < 1 {
		return fmt.Errorf("max_concurrent_frames must be >= 1, got %d", *c.MaxConcurrentFrames)
	}
	return nil
}

// GetGridCols returns the grid_cols value or the default.
func (c *TuningConfig) GetGridCols() int {
	if c.GridCols == nil {
		return 16
	}
	return *c.GridCols
}

// GetGridRows returns the grid_rows value or the default.
func (c *TuningConfig) GetGridRows() int {
	if c.GridRows == nil {
		return 16
	}
	return *c.GridRows
}

// GetMaxRangeMeters returns the max_range_m value or the default.
func (c *TuningConfig) GetMaxRangeMeters() float64 {
	if c.MaxRangeMeters == nil {
		return 5.0
	}
	return *c.MaxRangeMeters
}

// GetMinValidFraction returns the min_valid_fraction value or the default.
func (c *TuningConfig) GetMinValidFraction() float64 {
	if c.MinValidFraction == nil {
		return 0.25
	}
	return *c.MinValidFraction
}

// GetHorizontalFOVDeg returns the horizontal_fov_deg value or the default.
func (c *TuningConfig) GetHorizontalFOVDeg() float64 {
	if c.HorizontalFOVDeg == nil {
		return 60.0
	}
	return *c.HorizontalFOVDeg
}

// GetVerticalFOVDeg returns the vertical_fov_deg value or the default.
func (c *TuningConfig) GetVerticalFOVDeg() float64 {
	if c.VerticalFOVDeg == nil {
		return 45.0
	}
	return *c.VerticalFOVDeg
}

// GetMatchingThresholdMeters returns the matching_threshold_m value or the default.
func (c *TuningConfig) GetMatchingThresholdMeters() float64 {
	if c.MatchingThresholdMeters == nil {
		return 0.5
	}
	return *c.MatchingThresholdMeters
}

// GetTrackingTimeout parses and returns the tracking timeout as a time.Duration.
func (c *TuningConfig) GetTrackingTimeout() time.Duration {
	if c.TrackingTimeout == nil || *c.TrackingTimeout == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.TrackingTimeout)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetPredictionHorizon parses and returns the prediction horizon as a time.Duration.
func (c *TuningConfig) GetPredictionHorizon() time.Duration {
	if c.PredictionHorizon == nil || *c.PredictionHorizon == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.PredictionHorizon)
	if err != nil {
		return time.Second
	}
	return d
}

// GetMinMovingSpeed returns the min_moving_speed_mps value or the default.
func (c *TuningConfig) GetMinMovingSpeed() float64 {
	if c.MinMovingSpeed == nil {
		return 0.1
	}
	return *c.MinMovingSpeed
}

// GetGuidanceRangeMeters returns the guidance_range_m value or the default.
func (c *TuningConfig) GetGuidanceRangeMeters() float64 {
	if c.GuidanceRangeMeters == nil {
		return 2.0
	}
	return *c.GuidanceRangeMeters
}

// GetAlertRangeMeters returns the alert_range_m value or the default.
func (c *TuningConfig) GetAlertRangeMeters() float64 {
	if c.AlertRangeMeters == nil {
		return 10.0
	}
	return *c.AlertRangeMeters
}

// GetMinAnnouncementInterval parses and returns the announcement debounce interval.
func (c *TuningConfig) GetMinAnnouncementInterval() time.Duration {
	if c.MinAnnouncementInterval == nil || *c.MinAnnouncementInterval == "" {
		return 1500 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.MinAnnouncementInterval)
	if err != nil {
		return 1500 * time.Millisecond
	}
	return d
}

// GetMaxAnnouncedObstacles returns the max_announced_obstacles value or the default.
func (c *TuningConfig) GetMaxAnnouncedObstacles() int {
	if c.MaxAnnouncedObstacles == nil {
		return 3
	}
	return *c.MaxAnnouncedObstacles
}

// GetBaseRateHz returns the base_rate_hz value or the default.
func (c *TuningConfig) GetBaseRateHz() float64 {
	if c.BaseRateHz == nil {
		return 25.0
	}
	return *c.BaseRateHz
}

// GetFloorRateHz returns the floor_rate_hz value or the default.
func (c *TuningConfig) GetFloorRateHz() float64 {
	if c.FloorRateHz == nil {
		return 10.0
	}
	return *c.FloorRateHz
}

// GetLowBatteryFraction returns the low_battery_fraction value or the default.
func (c *TuningConfig) GetLowBatteryFraction() float64 {
	if c.LowBatteryFraction == nil {
		return 0.2
	}
	return *c.LowBatteryFraction
}

// GetMaxConcurrentFrames returns the max_concurrent_frames value or the default.
func (c *TuningConfig) GetMaxConcurrentFrames() int {
	if c.MaxConcurrentFrames == nil {
		return 1
	}
	return *c.MaxConcurrentFrames
}
