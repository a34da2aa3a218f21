package systems

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/grid"
)

var (
	ErrNoFunction   = errors.New("systems: no spatial function assigned")
	ErrNoGrid       = errors.New("systems: no grid available")
	ErrNoCandidate  = errors.New("systems: no reachable candidate cell")
	ErrUnknownInput = errors.New("systems: unknown spatial input")
	ErrUnknownOp    = errors.New("systems: unknown spatial op")
)

// SpatialInput selects the raw signal a layer reads.
type SpatialInput uint8

const (
	InputNone         SpatialInput = iota
	InputTargetRange               // world distance from the cell to the target
	InputPathDistance              // distance field value, 0 if unreachable
	InputLineOfSight               // 1 if the cell sees the target, else 0
	InputOccupancy                 // belief that the target is in the cell
)

var inputNames = map[string]SpatialInput{
	"none":          InputNone,
	"target_range":  InputTargetRange,
	"path_distance": InputPathDistance,
	"line_of_sight": InputLineOfSight,
	"occupancy":     InputOccupancy,
}

// ParseSpatialInput converts a config name to a SpatialInput.
func ParseSpatialInput(s string) (SpatialInput, error) {
	in, ok := inputNames[s]
	if !ok {
		return InputNone, fmt.Errorf("%w: %q", ErrUnknownInput, s)
	}
	return in, nil
}

// SpatialOp combines a layer's value with the accumulated score.
type SpatialOp uint8

const (
	OpNone     SpatialOp = iota // overwrite with 0
	OpAdd                       // score += value
	OpMultiply                  // score *= value
)

// ParseSpatialOp converts a config name to a SpatialOp.
func ParseSpatialOp(s string) (SpatialOp, error) {
	switch s {
	case "none", "":
		return OpNone, nil
	case "add":
		return OpAdd, nil
	case "multiply":
		return OpMultiply, nil
	}
	return OpNone, fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

// Layer is one step of a spatial function.
type Layer struct {
	Input SpatialInput
	Op    SpatialOp
	Curve ResponseCurve
}

// SpatialFunction is a named, ordered list of layers.
type SpatialFunction struct {
	Name   string
	Layers []Layer
}

// SpatialFunctionFromConfig builds a function from its YAML description.
func SpatialFunctionFromConfig(fc config.SpatialFunctionConfig) (*SpatialFunction, error) {
	fn := &SpatialFunction{Name: fc.Name, Layers: make([]Layer, 0, len(fc.Layers))}
	for i, lc := range fc.Layers {
		in, err := ParseSpatialInput(lc.Input)
		if err != nil {
			return nil, fmt.Errorf("function %q layer %d: %w", fc.Name, i, err)
		}
		op, err := ParseSpatialOp(lc.Op)
		if err != nil {
			return nil, fmt.Errorf("function %q layer %d: %w", fc.Name, i, err)
		}
		curve, err := CurveFromConfig(lc.Curve)
		if err != nil {
			return nil, fmt.Errorf("function %q layer %d: %w", fc.Name, i, err)
		}
		fn.Layers = append(fn.Layers, Layer{Input: in, Op: op, Curve: curve})
	}
	return fn, nil
}

// LoadSpatialFunctions builds every function defined in cfg, keyed by name.
func LoadSpatialFunctions(cfg *config.Config) (map[string]*SpatialFunction, error) {
	out := make(map[string]*SpatialFunction, len(cfg.Spatial.Functions))
	for _, fc := range cfg.Spatial.Functions {
		fn, err := SpatialFunctionFromConfig(fc)
		if err != nil {
			return nil, err
		}
		out[fc.Name] = fn
	}
	return out, nil
}

// EvalContext carries what layers read besides the maps themselves.
type EvalContext struct {
	Grid     *grid.Grid
	Self     Pose
	Target   Pose               // Where the target is believed to be
	Occluder Occluder           // nil means every sightline is clear
	Belief   *grid.Map[float64] // nil reads as 0 everywhere
}

// Evaluate scores every traversable cell of window. The window is reset to
// 0 first, so repeated calls with the same inputs give the same result.
func Evaluate(ctx EvalContext, layers []Layer, window, dist *grid.Map[float64]) {
	window.Fill(0)
	values := window.Values()
	for i := range values {
		c := window.CellAtIndex(i)
		if !ctx.Grid.IsTraversable(c) {
			continue
		}
		for _, l := range layers {
			v := l.Curve.Eval(rawInput(ctx, l.Input, c, dist))
			switch l.Op {
			case OpNone:
				values[i] = 0
			case OpAdd:
				values[i] += v
			case OpMultiply:
				values[i] *= v
			}
		}
	}
}

func rawInput(ctx EvalContext, in SpatialInput, c grid.CellRef, dist *grid.Map[float64]) float64 {
	switch in {
	case InputTargetRange:
		return r2.Norm(r2.Sub(ctx.Grid.CellPosition(c), ctx.Target.Position))
	case InputPathDistance:
		if dist == nil {
			return 0
		}
		d, err := dist.Get(c)
		if err != nil || d == Unreachable {
			return 0
		}
		return d
	case InputLineOfSight:
		if ctx.Occluder == nil {
			return 1
		}
		if ctx.Occluder.Occluded(ctx.Grid.CellPosition(c), ctx.Target.Position, ctx.Self.Entity, ctx.Target.Entity) {
			return 0
		}
		return 1
	case InputOccupancy:
		if ctx.Belief == nil {
			return 0
		}
		p, err := ctx.Belief.Get(c)
		if err != nil {
			return 0
		}
		return p
	default:
		return 0
	}
}

// SelectBest returns the highest scoring cell of window that dist marks
// reachable. Cells are scanned row-major and ties keep the earlier cell.
func SelectBest(window, dist *grid.Map[float64]) (grid.CellRef, bool) {
	var best grid.CellRef
	bestVal, found := 0.0, false
	for i, v := range window.Values() {
		c := window.CellAtIndex(i)
		d, err := dist.Get(c)
		if err != nil || !IsReachable(d) {
			continue
		}
		if !found || v > bestVal {
			best, bestVal, found = c, v, true
		}
	}
	return best, found
}

// DefaultSampleDimensions is the side length of the evaluation window.
const DefaultSampleDimensions = 20000.0

// SpatialComponent picks positions for one agent by scoring the cells
// around it with a spatial function.
type SpatialComponent struct {
	Name             string
	Grid             *grid.Grid
	Follower         *PathFollower
	Function         *SpatialFunction
	SampleDimensions float64

	// MaxReconstructSteps caps the route rebuilt to the chosen cell. A
	// longer route sends the follower straight at the cell.
	MaxReconstructSteps int

	// Results of the last successful ChoosePosition
	LastScores *grid.Map[float64]
	LastField  *grid.Map[float64]

	warned map[error]bool
}

// NewSpatialComponent creates a component. fn may be assigned later.
func NewSpatialComponent(name string, g *grid.Grid, follower *PathFollower, fn *SpatialFunction) *SpatialComponent {
	return &SpatialComponent{
		Name:                name,
		Grid:                g,
		Follower:            follower,
		Function:            fn,
		SampleDimensions:    DefaultSampleDimensions,
		MaxReconstructSteps: MaxReconstructSteps,
		warned:              make(map[error]bool),
	}
}

// ChoosePosition scores the window around ctx.Self and returns the best
// reachable cell. With pathfind set the follower is pointed at it: along a
// smoothed route when one can be rebuilt, straight at the cell when the
// route is too long to rebuild, and Finished when the route is shorter than
// two cells or cannot be rebuilt.
func (s *SpatialComponent) ChoosePosition(ctx EvalContext, pathfind bool) (grid.CellRef, error) {
	if s.Function == nil {
		return grid.CellRef{}, s.fail(ErrNoFunction)
	}
	if s.Grid == nil {
		return grid.CellRef{}, s.fail(ErrNoGrid)
	}
	if ctx.Grid == nil {
		ctx.Grid = s.Grid
	}

	self := ctx.Self.Position
	window, ok := s.Grid.BoundsAround(self, s.SampleDimensions/2)
	if !ok {
		return grid.CellRef{}, s.fail(ErrNoCandidate)
	}
	selfCell := s.Grid.CellAt(self)

	dist := BuildDistanceField(s.Grid, window, selfCell)
	scores := grid.NewMap(window, 0.0)
	Evaluate(ctx, s.Function.Layers, scores, dist)

	best, ok := SelectBest(scores, dist)
	if !ok {
		return grid.CellRef{}, s.fail(ErrNoCandidate)
	}
	s.LastScores, s.LastField = scores, dist

	if pathfind && s.Follower != nil {
		dest := s.Grid.CellPosition(best)
		maxSteps := s.MaxReconstructSteps
		if maxSteps <= 0 {
			maxSteps = MaxReconstructSteps
		}
		path, err := reconstructPath(dist, s.Grid, selfCell, best, maxSteps)
		switch {
		case errors.Is(err, ErrReconstructionCap):
			s.Follower.SetStep(PathStep{Point: dest, Cell: best}, dest, PathActive)
		case err != nil || len(path) < 2:
			s.Follower.SetStep(PathStep{Point: self, Cell: selfCell}, dest, PathFinished)
		default:
			s.Follower.SetStep(s.Follower.planner.SmoothPath(path, self), dest, PathActive)
		}
	}
	return best, nil
}

// fail logs err the first time this component hits it.
func (s *SpatialComponent) fail(err error) error {
	if s.warned == nil {
		s.warned = make(map[error]bool)
	}
	if !s.warned[err] {
		s.warned[err] = true
		slog.Warn("spatial component cannot choose position", "component", s.Name, "err", err)
	}
	return err
}
