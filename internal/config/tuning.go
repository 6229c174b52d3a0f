// Package config loads the JSON tuning file for the assessment pipeline.
//
// All fields are pointers so a partial config file only overrides what it
// names; the Get* accessors supply defaults for everything else, and the
// typed builders hand ready-made component configs to main.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/session"
)

// TuningConfig represents the root configuration for tuning parameters.
type TuningConfig struct {
	// Selector params
	MaxTrackingDistance *float64 `json:"max_tracking_distance,omitempty"`

	// Classifier params
	MinKeypointScore *float64 `json:"min_keypoint_score,omitempty"`
	SmoothingWindow  *int     `json:"smoothing_window,omitempty"`
	SmoothingMinHits *int     `json:"smoothing_min_hits,omitempty"`
	HandRaiseMargin  *float64 `json:"hand_raise_margin,omitempty"`
	LegRaiseMargin   *float64 `json:"leg_raise_margin,omitempty"`
	LeanMargin       *float64 `json:"lean_margin,omitempty"`
	SquatDepthMargin *float64 `json:"squat_depth_margin,omitempty"`
	JackSpreadFactor *float64 `json:"jack_spread_factor,omitempty"`

	// Session params
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "50ms"
	SourceName    *string `json:"source_name,omitempty"`

	// Backend params
	BackendURL *string `json:"backend_url,omitempty"`
	PoseURL    *string `json:"pose_url,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must have
// a .json extension and stay under the max file size. Fields omitted from
// the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
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
	if c.MaxTrackingDistance != nil {
		if *c.MaxTrackingDistance <= 0 || *c.MaxTrackingDistance > 2 {
			return fmt.Errorf("max_tracking_distance must be in (0, 2], got %f", *c.MaxTrackingDistance)
		}
	}
	if c.MinKeypointScore != nil {
		if *c.MinKeypointScore < 0 || *c.MinKeypointScore > 1 {
			return fmt.Errorf("min_keypoint_score must be between 0 and 1, got %f", *c.MinKeypointScore)
		}
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be >= 1, got %d", *c.SmoothingWindow)
	}
	if c.SmoothingMinHits != nil && *c.SmoothingMinHits < 1 {
		return fmt.Errorf("smoothing_min_hits must be >= 1, got %d", *c.SmoothingMinHits)
	}
	if c.SmoothingWindow != nil && c.SmoothingMinHits != nil && *c.SmoothingMinHits > *c.SmoothingWindow {
		return fmt.Errorf("smoothing_min_hits (%d) must not exceed smoothing_window (%d)",
			*c.SmoothingMinHits, *c.SmoothingWindow)
	}
	if c.FrameInterval != nil && *c.FrameInterval != "" {
		if _, err := time.ParseDuration(*c.FrameInterval); err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
	}
	return nil
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// GetMaxTrackingDistance returns the max_tracking_distance value or the default.
func (c *TuningConfig) GetMaxTrackingDistance() float64 {
	if c.MaxTrackingDistance == nil {
		return pose.DefaultSelectorConfig().MaxTrackingDistance
	}
	return *c.MaxTrackingDistance
}

// GetSourceName returns the source_name value or the default.
func (c *TuningConfig) GetSourceName() string {
	if c.SourceName == nil || *c.SourceName == "" {
		return session.DefaultConfig().Source
	}
	return *c.SourceName
}

// GetBackendURL returns the backend_url value or "" when unset.
func (c *TuningConfig) GetBackendURL() string {
	if c.BackendURL == nil {
		return ""
	}
	return *c.BackendURL
}

// GetPoseURL returns the pose_url value or the default local model server.
func (c *TuningConfig) GetPoseURL() string {
	if c.PoseURL == nil || *c.PoseURL == "" {
		return "http://127.0.0.1:9090/detect"
	}
	return *c.PoseURL
}

// SelectorConfig builds the selector configuration with overrides applied.
func (c *TuningConfig) SelectorConfig() pose.SelectorConfig {
	sc := pose.DefaultSelectorConfig()
	sc.MaxTrackingDistance = c.GetMaxTrackingDistance()
	return sc
}

// ClassifierConfig builds the classifier configuration with overrides applied.
func (c *TuningConfig) ClassifierConfig() pose.ClassifierConfig {
	cc := pose.DefaultClassifierConfig()
	if c.MinKeypointScore != nil {
		cc.MinKeypointScore = *c.MinKeypointScore
	}
	if c.SmoothingWindow != nil {
		cc.SmoothingWindow = *c.SmoothingWindow
	}
	if c.SmoothingMinHits != nil {
		cc.SmoothingMinHits = *c.SmoothingMinHits
	}
	if c.HandRaiseMargin != nil {
		cc.HandRaiseMargin = *c.HandRaiseMargin
	}
	if c.LegRaiseMargin != nil {
		cc.LegRaiseMargin = *c.LegRaiseMargin
	}
	if c.LeanMargin != nil {
		cc.LeanMargin = *c.LeanMargin
	}
	if c.SquatDepthMargin != nil {
		cc.SquatDepthMargin = *c.SquatDepthMargin
	}
	if c.JackSpreadFactor != nil {
		cc.JackSpreadFactor = *c.JackSpreadFactor
	}
	return cc
}

// SessionConfig builds the session configuration with overrides applied.
func (c *TuningConfig) SessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.FrameInterval = c.GetFrameInterval()
	sc.Source = c.GetSourceName()
	return sc
}
