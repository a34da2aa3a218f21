package systems

import (
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

// TargetState is the tracker's knowledge of its target.
type TargetState uint8

const (
	TargetUnknown   TargetState = iota // never observed
	TargetHidden                       // observed before, not in view now
	TargetImmediate                    // some observer has full awareness
)

func (s TargetState) String() string {
	switch s {
	case TargetUnknown:
		return "unknown"
	case TargetHidden:
		return "hidden"
	case TargetImmediate:
		return "immediate"
	default:
		return "invalid"
	}
}

// LastKnownState is the tracker's best estimate of the target.
type LastKnownState struct {
	State    TargetState
	Position r2.Vec // True position while Immediate, belief peak while Hidden
	Velocity r2.Vec // Last observed velocity
}

// OccupancyParams tunes belief maintenance.
type OccupancyParams struct {
	Alpha           float64 // Fraction of a cell's belief spread to orthogonal neighbours
	ProximityRadius float64 // Cells this close to the last known position are checked regardless of cone
	DiagonalSpread  bool    // Also spread Alpha/sqrt(2) to diagonal neighbours
}

// DefaultOccupancyParams returns alpha 0.75, a 200 unit proximity radius and
// diagonal spreading.
func DefaultOccupancyParams() OccupancyParams {
	return OccupancyParams{
		Alpha:           0.75,
		ProximityRadius: 200,
		DiagonalSpread:  true,
	}
}

// Observer is one searcher as seen by a tracker.
type Observer struct {
	Pose
	Vision    VisionParams
	Awareness float64 // Awareness of this tracker's target
}

// TargetTracker maintains a probability map of where one target might be.
type TargetTracker struct {
	id     uuid.UUID
	grid   *grid.Grid
	params OccupancyParams

	belief  *grid.Map[float64]
	scratch *grid.Map[float64] // visibility map, then diffusion snapshot
	contrib []float64

	last LastKnownState

	// Resets counts degenerate renormalisations that fell back to uniform.
	Resets int
}

// NewTargetTracker creates a tracker over the whole grid. A nil id is
// replaced with a fresh random one.
func NewTargetTracker(id uuid.UUID, g *grid.Grid, params OccupancyParams) *TargetTracker {
	if id == uuid.Nil {
		id = uuid.New()
	}
	b := g.Bounds()
	return &TargetTracker{
		id:      id,
		grid:    g,
		params:  params,
		belief:  grid.NewMap(b, 0.0),
		scratch: grid.NewMap(b, 0.0),
		contrib: make([]float64, b.Area()),
	}
}

// ID returns the target's identifier.
func (t *TargetTracker) ID() uuid.UUID { return t.id }

// State returns the current knowledge state.
func (t *TargetTracker) State() TargetState { return t.last.State }

// LastKnown returns the current estimate.
func (t *TargetTracker) LastKnown() LastKnownState { return t.last }

// Belief returns the live belief map. Callers must not write to it.
func (t *TargetTracker) Belief() *grid.Map[float64] { return t.belief }

// IsKnown reports whether the target has ever been observed.
func (t *TargetTracker) IsKnown() bool { return t.last.State != TargetUnknown }

// Tick advances the tracker by one step. truth is the target's actual pose;
// it is only read when some observer is fully aware of the target.
func (t *TargetTracker) Tick(observers []Observer, truth Pose, occ Occluder) TargetState {
	prev := t.last.State

	immediate := false
	for _, o := range observers {
		if o.Awareness >= 1.0 {
			immediate = true
			break
		}
	}

	switch {
	case immediate:
		t.last.State = TargetImmediate
		t.last.Position = truth.Position
		t.last.Velocity = truth.Velocity
		t.SetPosition(truth.Position)
	case t.IsKnown():
		t.last.State = TargetHidden
		t.Update(observers, occ, truth.Entity)
	}

	if t.IsKnown() {
		t.Diffuse()
	}

	if t.last.State != prev {
		slog.Debug("target state changed", "target", t.id, "from", prev, "to", t.last.State)
	}
	return t.last.State
}

// SetPosition collapses the belief onto the cell containing p.
func (t *TargetTracker) SetPosition(p r2.Vec) {
	c := t.grid.CellAt(p)
	if !t.belief.Bounds().Contains(c) {
		t.resetUniform()
		return
	}
	t.belief.Fill(0)
	t.belief.SetAt(c, 1)
}

// Update removes belief from every cell an observer can currently see and
// renormalises the rest over traversable cells. The new belief peak becomes
// the last known position. ignore lists entities that never block sight.
func (t *TargetTracker) Update(observers []Observer, occ Occluder, ignore ...ecs.Entity) {
	b := t.belief.Bounds()
	visible := t.scratch
	visible.Fill(0)
	proxSq := t.params.ProximityRadius * t.params.ProximityRadius

	for _, o := range observers {
		halfCos := halfAngleCos(o.Vision.Angle)
		rangeSq := o.Vision.Distance * o.Vision.Distance
		skip := append([]ecs.Entity{o.Entity}, ignore...)

		b.Each(func(c grid.CellRef) {
			if visible.At(c) == 1 || !t.grid.IsTraversable(c) {
				return
			}
			p := t.grid.CellPosition(c)
			dir := r2.Sub(p, o.Position)
			inView := r2.Dot(dir, dir) <= rangeSq && withinCone(o.Forward, dir, halfCos)
			nearLast := distanceSq(p, t.last.Position) <= proxSq
			if !inView && !nearLast {
				return
			}
			if occ != nil && occ.Occluded(o.Position, p, skip...) {
				return
			}
			visible.SetAt(c, 1)
		})
	}

	values := t.belief.Values()
	for i, v := range visible.Values() {
		if v == 1 {
			values[i] = 0
		}
	}

	sum := floats.Sum(values)
	if sum <= 0 {
		t.resetUniform()
		return
	}

	maxVal, maxIdx := -1.0, -1
	for i := range values {
		if !t.grid.IsTraversable(t.belief.CellAtIndex(i)) {
			continue
		}
		values[i] /= sum
		if values[i] > maxVal {
			maxVal, maxIdx = values[i], i
		}
	}
	if maxIdx >= 0 {
		t.last.Position = t.grid.CellPosition(t.belief.CellAtIndex(maxIdx))
	}
}

// Diffuse spreads belief into less certain neighbours.
//
// All reads come from a snapshot taken before the pass, so the result does
// not depend on iteration order. A traversable source p spreads Alpha*p to
// each traversable orthogonal neighbour whose snapshot value is below p, and
// Alpha*p/sqrt(2) to diagonal neighbours when DiagonalSpread is set. Where
// several sources reach the same cell the largest contribution is kept. The
// whole map is renormalised afterwards.
func (t *TargetTracker) Diffuse() {
	values := t.belief.Values()
	snap := t.scratch.Values()
	copy(snap, values)
	for i := range t.contrib {
		t.contrib[i] = -1
	}

	b := t.belief.Bounds()
	alpha := t.params.Alpha
	spread := func(c grid.CellRef, p float64, offsets [4]grid.Offset, amount float64) {
		for _, d := range offsets {
			n := c.Add(d.DX, d.DY)
			if !b.Contains(n) || !t.grid.IsTraversable(n) {
				continue
			}
			ni := t.belief.Index(n)
			if p > snap[ni] && amount > t.contrib[ni] {
				t.contrib[ni] = amount
			}
		}
	}

	for i, p := range snap {
		if p <= 0 {
			continue
		}
		c := t.belief.CellAtIndex(i)
		if !t.grid.IsTraversable(c) {
			continue
		}
		spread(c, p, grid.Orthogonal, alpha*p)
		if t.params.DiagonalSpread {
			spread(c, p, grid.Diagonal, alpha*p/math.Sqrt2)
		}
	}

	for i, v := range t.contrib {
		if v >= 0 {
			values[i] = v
		}
	}

	sum := floats.Sum(values)
	if sum <= 0 {
		t.resetUniform()
		return
	}
	floats.Scale(1/sum, values)
}

// resetUniform spreads belief evenly over traversable cells.
func (t *TargetTracker) resetUniform() {
	cells := t.grid.TraversableCells(t.belief.Bounds())
	t.belief.Fill(0)
	t.Resets++
	slog.Debug("occupancy belief reset to uniform", "target", t.id, "resets", t.Resets)
	if len(cells) == 0 {
		return
	}
	u := 1 / float64(len(cells))
	for _, c := range cells {
		t.belief.SetAt(c, u)
	}
}
