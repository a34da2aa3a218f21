// Package game hosts a headless guard-versus-intruder simulation on an ark
// ECS world and drives the decision systems once per tick.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/components"
	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/grid"
	"github.com/pthm-cable/sentinel/systems"
	"github.com/pthm-cable/sentinel/telemetry"
)

// IdleTurnRate is how far a guard with nowhere to go turns per tick (radians).
const IdleTurnRate = 0.05

// ErrNoIntruder is returned when the map has no intruder spawn.
var ErrNoIntruder = errors.New("map has no intruder spawn")

// Options configures a game instance.
type Options struct {
	Seed          int64
	OutputDir     string // empty disables CSV and snapshot output
	StatsInterval int    // ticks per stats window; 0 uses config
	LogStats      bool   // log each stats window via slog

	// StatsCallback, if set, receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// guardAgent bundles the per-guard controllers.
type guardAgent struct {
	entity     ecs.Entity
	perception *systems.Perception
	follower   *systems.PathFollower
	search     *systems.SpatialComponent
	flank      *systems.SpatialComponent // nil when no flank function is configured
	failing    bool                      // last spatial query failed
}

// Game holds the complete simulation state.
type Game struct {
	cfg  *config.Config
	rng  *rand.Rand
	seed int64

	world       *ecs.World
	guardMapper *ecs.Map5[components.Position, components.Velocity, components.Rotation, components.Body, components.Guard]
	intrMapper  *ecs.Map5[components.Position, components.Velocity, components.Rotation, components.Body, components.Intruder]
	bodyFilter  *ecs.Filter2[components.Position, components.Body]

	posMap   *ecs.Map1[components.Position]
	velMap   *ecs.Map1[components.Velocity]
	rotMap   *ecs.Map1[components.Rotation]
	bodyMap  *ecs.Map1[components.Body]
	intrMap  *ecs.Map1[components.Intruder]
	guardMap *ecs.Map1[components.Guard]

	grid     *grid.Grid
	planner  *systems.PathPlanner
	bodies   *systems.BodyGrid
	occluder systems.BodyOccluder
	tracker  *systems.TargetTracker
	registry *systems.SystemRegistry

	guards           []*guardAgent
	intruder         ecs.Entity
	intruderFollower *systems.PathFollower
	route            []r2.Vec

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	ledger    *telemetry.GuardLedger
	output    *telemetry.OutputManager
	logStats  bool
	onStats   func(telemetry.WindowStats)

	tick       int32
	caught     bool
	catcher    int
	lastResets int
	neighbors  []systems.Neighbor
}

// New builds a game from cfg: parses the map, spawns guards on guard
// markers and extra spawns, and the intruder on the first intruder marker.
func New(cfg *config.Config, opts Options) (*Game, error) {
	origin := r2.Vec{X: cfg.World.OriginX, Y: cfg.World.OriginY}
	g0, err := grid.ParseASCII(cfg.Derived.MapRows, cfg.World.CellSize, origin)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}
	if len(g0.IntruderSpawns) == 0 {
		return nil, ErrNoIntruder
	}

	functions, err := systems.LoadSpatialFunctions(cfg)
	if err != nil {
		return nil, fmt.Errorf("loading spatial functions: %w", err)
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		seed:        opts.Seed,
		world:       world,
		guardMapper: ecs.NewMap5[components.Position, components.Velocity, components.Rotation, components.Body, components.Guard](world),
		intrMapper:  ecs.NewMap5[components.Position, components.Velocity, components.Rotation, components.Body, components.Intruder](world),
		bodyFilter:  ecs.NewFilter2[components.Position, components.Body](world),
		posMap:      ecs.NewMap1[components.Position](world),
		velMap:      ecs.NewMap1[components.Velocity](world),
		rotMap:      ecs.NewMap1[components.Rotation](world),
		bodyMap:     ecs.NewMap1[components.Body](world),
		intrMap:     ecs.NewMap1[components.Intruder](world),
		guardMap:    ecs.NewMap1[components.Guard](world),
		grid:        g0,
		registry:    systems.NewSystemRegistry(),
		logStats:    opts.LogStats,
		onStats:     opts.StatsCallback,
		catcher:     -1,
	}

	g.planner = systems.NewPathPlanner(g0, cfg.Path.ArrivalDistance)
	g.planner.LineSamples = cfg.Path.LineSamples

	b := g0.Bounds()
	g.bodies = systems.NewBodyGrid(g0.Origin(), b.Width(), b.Height(), g0.CellSize())
	g.occluder = systems.BodyOccluder{
		GridOccluder: systems.GridOccluder{Grid: g0, Samples: cfg.Path.LineSamples},
		Bodies:       g.bodies,
	}
	g.tracker = systems.NewTargetTracker(uuid.New(), g0, systems.OccupancyParams{
		Alpha:           cfg.Occupancy.Alpha,
		ProximityRadius: cfg.Occupancy.ProximityRadius,
		DiagonalSpread:  cfg.Occupancy.DiagonalSpread,
	})

	if err := g.buildRoute(); err != nil {
		return nil, err
	}
	if err := g.spawnGuards(functions); err != nil {
		return nil, err
	}
	g.spawnIntruder()
	g.updateBodies()

	interval := opts.StatsInterval
	if interval <= 0 {
		interval = cfg.Telemetry.StatsInterval
	}
	g.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	g.collector = telemetry.NewCollector(int32(interval))
	g.ledger = telemetry.NewGuardLedger(len(g.guards))

	g.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	slog.Info("game created",
		"seed", opts.Seed,
		"grid_w", b.Width(),
		"grid_h", b.Height(),
		"guards", len(g.guards),
		"target", g.tracker.ID(),
		"systems", len(g.registry.All()),
	)
	return g, nil
}

// buildRoute converts the configured intruder waypoints to world positions.
func (g *Game) buildRoute() error {
	for i, wp := range g.cfg.Agents.IntruderRoute {
		c := grid.CellRef{X: wp[0], Y: wp[1]}
		if !g.grid.IsTraversable(c) {
			return fmt.Errorf("intruder route point %d %v is not traversable", i, c)
		}
		g.route = append(g.route, g.grid.CellPosition(c))
	}
	return nil
}

// guardCells returns spawn cells from map markers then config, capped by
// max_guards.
func (g *Game) guardCells() ([]grid.CellRef, error) {
	cells := append([]grid.CellRef(nil), g.grid.GuardSpawns...)
	for _, s := range g.cfg.Agents.Spawns {
		c := grid.CellRef{X: s.X, Y: s.Y}
		if !g.grid.IsTraversable(c) {
			return nil, fmt.Errorf("guard spawn %v is not traversable", c)
		}
		cells = append(cells, c)
	}
	if n := g.cfg.Agents.MaxGuards; n > 0 && len(cells) > n {
		cells = cells[:n]
	}
	return cells, nil
}

func (g *Game) spawnGuards(functions map[string]*systems.SpatialFunction) error {
	cells, err := g.guardCells()
	if err != nil {
		return err
	}

	cfg := g.cfg
	vision := systems.VisionParams{Angle: cfg.Perception.VisionAngle, Distance: cfg.Perception.VisionDistance}
	search := functions[cfg.Spatial.SearchFunction]
	flank := functions[cfg.Spatial.FlankFunction]

	for i, c := range cells {
		pos := components.Position{}
		pos.Set(g.grid.CellPosition(c))
		rot := components.Rotation{Heading: g.rng.Float64() * 2 * math.Pi}
		e := g.guardMapper.NewEntity(
			&pos,
			&components.Velocity{},
			&rot,
			&components.Body{Radius: cfg.Agents.BodyRadius, MaxSpeed: cfg.Agents.GuardSpeed, Role: components.RoleGuard},
			&components.Guard{Index: i},
		)

		follower := systems.NewPathFollower(g.planner)
		agent := &guardAgent{
			entity:     e,
			perception: systems.NewPerception(vision, cfg.Perception.AwarenessGain, cfg.Perception.AwarenessDecay),
			follower:   follower,
			search:     g.spatialComponent(fmt.Sprintf("guard-%d/search", i), follower, search),
		}
		if flank != nil {
			agent.flank = g.spatialComponent(fmt.Sprintf("guard-%d/flank", i), follower, flank)
		}
		g.guards = append(g.guards, agent)
	}
	return nil
}

func (g *Game) spatialComponent(name string, f *systems.PathFollower, fn *systems.SpatialFunction) *systems.SpatialComponent {
	s := systems.NewSpatialComponent(name, g.grid, f, fn)
	if g.cfg.Spatial.SampleDimensions > 0 {
		s.SampleDimensions = g.cfg.Spatial.SampleDimensions
	}
	if g.cfg.Path.MaxReconstructSteps > 0 {
		s.MaxReconstructSteps = g.cfg.Path.MaxReconstructSteps
	}
	return s
}

func (g *Game) spawnIntruder() {
	pos := components.Position{}
	pos.Set(g.grid.CellPosition(g.grid.IntruderSpawns[0]))
	g.intruder = g.intrMapper.NewEntity(
		&pos,
		&components.Velocity{},
		&components.Rotation{},
		&components.Body{Radius: g.cfg.Agents.BodyRadius, MaxSpeed: g.cfg.Agents.IntruderSpeed, Role: components.RoleIntruder},
		&components.Intruder{},
	)
	g.intruderFollower = systems.NewPathFollower(g.planner)
}

// pose builds the kinematic snapshot of e.
func (g *Game) pose(e ecs.Entity) systems.Pose {
	return systems.Pose{
		Entity:   e,
		Position: g.posMap.Get(e).Vec(),
		Velocity: g.velMap.Get(e).Vec(),
		Forward:  g.rotMap.Get(e).Forward(),
	}
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 { return g.tick }

// Caught reports whether a guard has reached the intruder.
func (g *Game) Caught() bool { return g.caught }

// Catcher returns the index of the guard that caught the intruder, or -1.
func (g *Game) Catcher() int { return g.catcher }

// Tracker returns the intruder's belief tracker.
func (g *Game) Tracker() *systems.TargetTracker { return g.tracker }

// Grid returns the navigation grid.
func (g *Game) Grid() *grid.Grid { return g.grid }

// Stats returns per-guard statistics so far.
func (g *Game) Stats() []telemetry.GuardStats { return g.ledger.All() }

// NumGuards returns the number of guards.
func (g *Game) NumGuards() int { return len(g.guards) }

// GuardPosition returns guard i's world position.
func (g *Game) GuardPosition(i int) r2.Vec { return g.posMap.Get(g.guards[i].entity).Vec() }

// GuardPathState returns guard i's follower state.
func (g *Game) GuardPathState(i int) systems.PathState { return g.guards[i].follower.State }

// Awareness returns guard i's awareness of the intruder.
func (g *Game) Awareness(i int) float64 {
	return g.guards[i].perception.Awareness(g.tracker.ID())
}

// IntruderPosition returns the intruder's world position.
func (g *Game) IntruderPosition() r2.Vec { return g.posMap.Get(g.intruder).Vec() }

// Run steps until the intruder is caught or maxTicks ticks have run
// (0 means no limit).
func (g *Game) Run(maxTicks int) {
	for !g.caught && (maxTicks <= 0 || int(g.tick) < maxTicks) {
		g.Step()
	}
}

// Close writes the final snapshot and belief map, then closes output files.
func (g *Game) Close() error {
	if g.output == nil {
		return nil
	}
	if path, err := g.output.WriteSnapshot(g.createSnapshot()); err != nil {
		slog.Error("failed to save snapshot", "error", err)
	} else {
		slog.Info("snapshot saved", "path", path, "tick", g.tick)
	}
	if err := g.output.WriteGridMap("belief", g.tracker.Belief()); err != nil {
		slog.Error("failed to write belief map", "error", err)
	}
	return g.output.Close()
}
