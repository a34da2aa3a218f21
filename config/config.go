// Package config provides configuration loading and access for the guard AI.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Path       PathConfig       `yaml:"path"`
	Perception PerceptionConfig `yaml:"perception"`
	Occupancy  OccupancyConfig  `yaml:"occupancy"`
	Spatial    SpatialConfig    `yaml:"spatial"`
	Agents     AgentsConfig     `yaml:"agents"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig describes the navigation grid.
type WorldConfig struct {
	CellSize float64 `yaml:"cell_size"` // World units per cell
	OriginX  float64 `yaml:"origin_x"`  // World position of cell (0,0)'s corner
	OriginY  float64 `yaml:"origin_y"`
	Map      string  `yaml:"map"` // ASCII map, one character per cell
}

// PathConfig holds planner and follower parameters.
type PathConfig struct {
	ArrivalDistance     float64 `yaml:"arrival_distance"`      // Goal test radius (grid space units)
	LineSamples         int     `yaml:"line_samples"`          // Interpolation points for smoothing
	MaxReconstructSteps int     `yaml:"max_reconstruct_steps"` // Distance-field descent cap
	WanderRadius        float64 `yaml:"wander_radius"`         // Half-size of the random destination box
	WanderAttempts      int     `yaml:"wander_attempts"`       // Sampling attempts before giving up
}

// PerceptionConfig holds the awareness model parameters.
type PerceptionConfig struct {
	VisionAngle    float64 `yaml:"vision_angle"`    // Full cone angle in degrees
	VisionDistance float64 `yaml:"vision_distance"` // World units
	AwarenessGain  float64 `yaml:"awareness_gain"`  // Per tick with clear LOS
	AwarenessDecay float64 `yaml:"awareness_decay"` // Per tick without
}

// OccupancyConfig holds belief map parameters.
type OccupancyConfig struct {
	Alpha           float64 `yaml:"alpha"`            // Fraction spread to orthogonal neighbours
	ProximityRadius float64 `yaml:"proximity_radius"` // Cells this close to the last known position count as seen
	DiagonalSpread  bool    `yaml:"diagonal_spread"`  // Spread alpha/sqrt(2) to diagonal neighbours
}

// SpatialConfig holds position selection parameters.
type SpatialConfig struct {
	SampleDimensions float64                 `yaml:"sample_dimensions"` // Side of the evaluation window (world units)
	SearchFunction   string                  `yaml:"search_function"`   // Function used while the target is hidden
	FlankFunction    string                  `yaml:"flank_function"`    // Function for guards not chasing a seen target; empty = all chase
	Functions        []SpatialFunctionConfig `yaml:"functions"`
}

// SpatialFunctionConfig is a named, ordered list of layers.
type SpatialFunctionConfig struct {
	Name   string        `yaml:"name"`
	Layers []LayerConfig `yaml:"layers"`
}

// LayerConfig defines one utility layer.
type LayerConfig struct {
	Input string      `yaml:"input"` // none, target_range, path_distance, line_of_sight, occupancy
	Op    string      `yaml:"op"`    // none, add, multiply
	Curve CurveConfig `yaml:"curve"`
}

// CurveConfig is response curve data.
type CurveConfig struct {
	Mode string     `yaml:"mode"` // linear, constant, cubic
	Keys []CurveKey `yaml:"keys"`
}

// CurveKey is one (x, y) control point.
type CurveKey struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// AgentsConfig holds host simulation parameters for guards and the intruder.
type AgentsConfig struct {
	GuardSpeed    float64    `yaml:"guard_speed"`    // World units per tick
	IntruderSpeed float64    `yaml:"intruder_speed"` // World units per tick
	BodyRadius    float64    `yaml:"body_radius"`    // Agents block sight within this radius
	CatchRadius   float64    `yaml:"catch_radius"`   // Guard within this distance ends the run
	IntruderRoute [][2]int   `yaml:"intruder_route"` // Cell waypoints, looped
	MaxGuards     int        `yaml:"max_guards"`     // 0 = one per spawn marker
	Spawns        []CellSpec `yaml:"spawns"`         // Extra guard spawns beyond map markers
}

// CellSpec is a cell coordinate in config files.
type CellSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow    int `yaml:"perf_window"`    // Ticks averaged by the perf collector
	StatsInterval int `yaml:"stats_interval"` // Ticks between stats rows
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	MapRows       []string // World.Map split into rows
	CatchRadiusSq float64
	FunctionIndex map[string]int // name -> index into Spatial.Functions
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse merges the given YAML over the embedded defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		// Unmarshal into same struct - only overwrites fields present in data
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: clone marshal: %v", err))
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(fmt.Sprintf("config: clone unmarshal: %v", err))
	}
	out.computeDerived()
	return out
}

// Validate checks value ranges and cross references.
func (c *Config) Validate() error {
	var errs []error
	if c.World.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("world.cell_size must be positive, got %v", c.World.CellSize))
	}
	if strings.TrimSpace(c.World.Map) == "" {
		errs = append(errs, errors.New("world.map is empty"))
	}
	if c.Path.LineSamples < 2 {
		errs = append(errs, fmt.Errorf("path.line_samples must be at least 2, got %d", c.Path.LineSamples))
	}
	if c.Path.MaxReconstructSteps < 1 {
		errs = append(errs, fmt.Errorf("path.max_reconstruct_steps must be positive, got %d", c.Path.MaxReconstructSteps))
	}
	if c.Perception.VisionAngle <= 0 || c.Perception.VisionAngle > 360 {
		errs = append(errs, fmt.Errorf("perception.vision_angle must be in (0, 360], got %v", c.Perception.VisionAngle))
	}
	if c.Agents.GuardSpeed <= 0 || c.Agents.IntruderSpeed <= 0 {
		errs = append(errs, errors.New("agents: speeds must be positive"))
	}
	if c.Occupancy.Alpha <= 0 || c.Occupancy.Alpha > 1 {
		errs = append(errs, fmt.Errorf("occupancy.alpha must be in (0, 1], got %v", c.Occupancy.Alpha))
	}

	names := make(map[string]bool, len(c.Spatial.Functions))
	for _, fn := range c.Spatial.Functions {
		if names[fn.Name] {
			errs = append(errs, fmt.Errorf("spatial function %q defined twice", fn.Name))
		}
		names[fn.Name] = true
		for i, l := range fn.Layers {
			for k := 1; k < len(l.Curve.Keys); k++ {
				if l.Curve.Keys[k].X <= l.Curve.Keys[k-1].X {
					errs = append(errs, fmt.Errorf("spatial function %q layer %d: curve keys must have increasing x", fn.Name, i))
					break
				}
			}
		}
	}
	if c.Spatial.SearchFunction != "" && !names[c.Spatial.SearchFunction] {
		errs = append(errs, fmt.Errorf("spatial.search_function %q is not defined", c.Spatial.SearchFunction))
	}

	if c.Spatial.FlankFunction != "" && !names[c.Spatial.FlankFunction] {
		errs = append(errs, fmt.Errorf("spatial.flank_function %q is not defined", c.Spatial.FlankFunction))
	}

	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MapRows = nil
	for _, row := range strings.Split(c.World.Map, "\n") {
		if strings.TrimSpace(row) == "" {
			continue
		}
		c.Derived.MapRows = append(c.Derived.MapRows, strings.TrimRight(row, " \t\r"))
	}

	c.Derived.CatchRadiusSq = c.Agents.CatchRadius * c.Agents.CatchRadius

	c.Derived.FunctionIndex = make(map[string]int, len(c.Spatial.Functions))
	for i, fn := range c.Spatial.Functions {
		c.Derived.FunctionIndex[fn.Name] = i
	}
}

// Function returns the named spatial function config.
func (c *Config) Function(name string) (SpatialFunctionConfig, bool) {
	i, ok := c.Derived.FunctionIndex[name]
	if !ok {
		return SpatialFunctionConfig{}, false
	}
	return c.Spatial.Functions[i], true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
