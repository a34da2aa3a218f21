package main

import (
	"github.com/pthm-cable/sentinel/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable guard parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Perception
			{Name: "awareness_gain", Path: "perception.awareness_gain", Min: 0.05, Max: 1.0, Default: 0.25},
			{Name: "awareness_decay", Path: "perception.awareness_decay", Min: 0.005, Max: 0.2, Default: 0.025},
			{Name: "vision_angle", Path: "perception.vision_angle", Min: 45, Max: 180, Default: 90},
			// Occupancy
			{Name: "alpha", Path: "occupancy.alpha", Min: 0.1, Max: 1.0, Default: 0.75},
			{Name: "proximity_radius", Path: "occupancy.proximity_radius", Min: 0, Max: 500, Default: 200},
			// Spatial
			{Name: "sample_dimensions", Path: "spatial.sample_dimensions", Min: 600, Max: 3000, Default: 2000},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Perception.AwarenessGain = c[0]
	cfg.Perception.AwarenessDecay = c[1]
	cfg.Perception.VisionAngle = c[2]
	cfg.Occupancy.Alpha = c[3]
	cfg.Occupancy.ProximityRadius = c[4]
	cfg.Spatial.SampleDimensions = c[5]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Perception.AwarenessGain,
		cfg.Perception.AwarenessDecay,
		cfg.Perception.VisionAngle,
		cfg.Occupancy.Alpha,
		cfg.Occupancy.ProximityRadius,
		cfg.Spatial.SampleDimensions,
	}
}
