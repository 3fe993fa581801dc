package analytics

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// PopularityWeights defines the component weights for the location
// popularity score.
type PopularityWeights struct {
	Interactions float64 `json:"interactions"` // Weight for interaction volume (default: 0.5)
	UniqueUsers  float64 `json:"unique_users"` // Weight for unique-user reach (default: 0.3)
	Growth       float64 `json:"growth"`       // Weight for period-over-period growth (default: 0.2)
}

// ReliabilityWeights defines the component weights for the network
// reliability score.
type ReliabilityWeights struct {
	Speed   float64 `json:"speed"`   // Weight for download throughput (default: 0.6)
	Latency float64 `json:"latency"` // Weight for latency headroom (default: 0.4)
}

// Weights holds all scoring weight configurations.
type Weights struct {
	Popularity  PopularityWeights  `json:"popularity"`
	Reliability ReliabilityWeights `json:"reliability"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the default scoring weight configuration. The
// components these weigh are each normalized to [0, 1] before weighting,
// so both composite scores stay in [0, 1].
func DefaultWeights() *Weights {
	return &Weights{
		Popularity: PopularityWeights{
			Interactions: 0.5,
			UniqueUsers:  0.3,
			Growth:       0.2,
		},
		Reliability: ReliabilityWeights{
			Speed:   0.6,
			Latency: 0.4,
		},
	}
}

// LoadCalibration loads scoring weights from a JSON calibration file.
// Partial configurations are merged with defaults. On any error the
// defaults are returned alongside the error so callers can degrade
// gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultWeights(), &config.Weights)
	slog.Info("loaded scoring calibration",
		"path", filePath,
		"version", config.Version)
	return merged, nil
}

// MergeCalibration merges override weights into base weights. Only
// non-zero override values are applied, which allows partial calibration
// files.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.Popularity.Interactions != 0 {
		result.Popularity.Interactions = override.Popularity.Interactions
	}
	if override.Popularity.UniqueUsers != 0 {
		result.Popularity.UniqueUsers = override.Popularity.UniqueUsers
	}
	if override.Popularity.Growth != 0 {
		result.Popularity.Growth = override.Popularity.Growth
	}

	if override.Reliability.Speed != 0 {
		result.Reliability.Speed = override.Reliability.Speed
	}
	if override.Reliability.Latency != 0 {
		result.Reliability.Latency = override.Reliability.Latency
	}

	return &result
}
