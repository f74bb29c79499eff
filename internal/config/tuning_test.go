package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetGridCols(); got != 16 {
		t.Errorf("GetGridCols() = %d, want 16", got)
	}
	if got := cfg.GetGridRows(); got != 16 {
		t.Errorf("GetGridRows() = %d, want 16", got)
	}
	if got := cfg.GetMatchingThresholdMeters(); got != 0.5 {
		t.Errorf("GetMatchingThresholdMeters() = %v, want 0.5", got)
	}
	if got := cfg.GetTrackingTimeout(); got != 2*time.Second {
		t.Errorf("GetTrackingTimeout() = %v, want 2s", got)
	}
	if got := cfg.GetMinAnnouncementInterval(); got != 1500*time.Millisecond {
		t.Errorf("GetMinAnnouncementInterval() = %v, want 1.5s", got)
	}
	if got := cfg.GetAlertRangeMeters(); got != 10.0 {
		t.Errorf("GetAlertRangeMeters() = %v, want 10.0", got)
	}
	if got := cfg.GetMaxAnnouncedObstacles(); got != 3 {
		t.Errorf("GetMaxAnnouncedObstacles() = %d, want 3", got)
	}
	if got := cfg.GetBaseRateHz(); got != 25.0 {
		t.Errorf("GetBaseRateHz() = %v, want 25", got)
	}
	if got := cfg.GetFloorRateHz(); got != 10.0 {
		t.Errorf("GetFloorRateHz() = %v, want 10", got)
	}
	if got := cfg.GetMaxConcurrentFrames(); got != 1 {
		t.Errorf("GetMaxConcurrentFrames() = %d, want 1", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{
		"grid_cols": 8,
		"tracking_timeout": "3s",
		"alert_range_m": 6.0
	}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if got := cfg.GetGridCols(); got != 8 {
		t.Errorf("GetGridCols() = %d, want 8", got)
	}
	if got := cfg.GetTrackingTimeout(); got != 3*time.Second {
		t.Errorf("GetTrackingTimeout() = %v, want 3s", got)
	}
	if got := cfg.GetAlertRangeMeters(); got != 6.0 {
		t.Errorf("GetAlertRangeMeters() = %v, want 6.0", got)
	}
	// Unset fields keep defaults.
	if got := cfg.GetGridRows(); got != 16 {
		t.Errorf("GetGridRows() = %d, want default 16", got)
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"grid_cols": `)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"zero grid cols", `{"grid_cols": 0}`},
		{"negative range", `{"max_range_m": -1}`},
		{"fraction above one", `{"min_valid_fraction": 1.5}`},
		{"bad duration", `{"tracking_timeout": "soon"}`},
		{"floor above base", `{"base_rate_hz": 10, "floor_rate_hz": 25}`},
		{"zero concurrency", `{"max_concurrent_frames": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.contents)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}
