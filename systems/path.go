package systems

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

// PathState is the follower's lifecycle state.
type PathState uint8

const (
	PathNone     PathState = iota // no destination set
	PathInvalid                   // destination is off the grid
	PathActive                    // moving toward Step()
	PathFinished                  // within arrival distance, or nothing to do
)

func (s PathState) String() string {
	switch s {
	case PathNone:
		return "none"
	case PathInvalid:
		return "invalid"
	case PathActive:
		return "active"
	case PathFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Wander defaults for RandomAccessiblePosition.
const (
	DefaultWanderRadius   = 2000.0
	DefaultWanderAttempts = 10000
)

// PathFollower replans toward a destination every refresh and exposes a
// single aim point. It holds no route between refreshes.
type PathFollower struct {
	planner *PathPlanner

	State       PathState
	destination r2.Vec
	destCell    grid.CellRef
	hasDest     bool

	step   PathStep
	halted bool
}

// NewPathFollower creates a follower that plans with p.
func NewPathFollower(p *PathPlanner) *PathFollower {
	return &PathFollower{planner: p}
}

// SetDestination stores dest and plans from pos immediately.
// A destination outside the grid leaves the follower Invalid.
func (f *PathFollower) SetDestination(pos, dest r2.Vec) PathState {
	f.destination = dest
	f.State = PathInvalid
	f.hasDest = false

	c := f.planner.grid.CellAt(dest)
	if !f.planner.grid.Bounds().Contains(c) {
		return f.State
	}
	f.destCell = c
	f.hasDest = true
	return f.Refresh(pos)
}

// Refresh replans from pos. It is meant to be called once per tick.
func (f *PathFollower) Refresh(pos r2.Vec) PathState {
	if !f.hasDest {
		return f.State
	}

	if r2.Norm(r2.Sub(f.destination, pos)) <= f.planner.ArrivalDistance {
		f.State = PathFinished
		return f.State
	}

	f.State = PathActive
	g := f.planner.grid
	start := g.CellAt(pos)

	path, err := f.planner.FindPath(start, f.destCell)
	switch {
	case errors.Is(err, ErrNoPath):
		f.halt(pos)
	case len(path) < 2:
		// Too short to smooth; hold at the agent's own cell.
		f.step = PathStep{Point: pos, Cell: start}
		f.halted = false
	default:
		step := f.planner.SmoothPath(path, pos)
		if g.IsTraversable(step.Cell) {
			f.step = step
			f.halted = false
		} else {
			f.halt(pos)
		}
	}
	return f.State
}

func (f *PathFollower) halt(pos r2.Vec) {
	f.step = PathStep{Point: pos, Cell: f.planner.grid.CellAt(pos)}
	f.halted = true
}

// SetStep overrides the aim point, for callers that plan on their own.
func (f *PathFollower) SetStep(step PathStep, dest r2.Vec, state PathState) {
	f.step = step
	f.destination = dest
	f.destCell = f.planner.grid.CellAt(dest)
	f.hasDest = false
	f.halted = false
	f.State = state
}

// Step returns the current aim point.
func (f *PathFollower) Step() PathStep {
	return f.step
}

// Halted reports whether the last refresh found no route and the follower is
// holding position.
func (f *PathFollower) Halted() bool {
	return f.halted
}

// Destination returns the last destination set.
func (f *PathFollower) Destination() r2.Vec {
	return f.destination
}

// Direction returns the unit vector from pos toward the aim point, or the
// zero vector when there is nothing to follow.
func (f *PathFollower) Direction(pos r2.Vec) r2.Vec {
	if f.State != PathActive {
		return r2.Vec{}
	}
	d := r2.Sub(f.step.Point, pos)
	if r2.Norm(d) < 1e-9 {
		return r2.Vec{}
	}
	return r2.Unit(d)
}

// Clear forgets the destination.
func (f *PathFollower) Clear() {
	*f = PathFollower{planner: f.planner}
}

// RandomAccessiblePosition samples uniformly in a square of half-size radius
// around pos until it hits a traversable cell. ok is false when every
// attempt failed.
func (f *PathFollower) RandomAccessiblePosition(rng *rand.Rand, pos r2.Vec, radius float64, attempts int) (r2.Vec, bool) {
	if radius <= 0 {
		radius = DefaultWanderRadius
	}
	if attempts <= 0 {
		attempts = DefaultWanderAttempts
	}
	for i := 0; i < attempts; i++ {
		candidate := r2.Vec{
			X: pos.X + (rng.Float64()*2-1)*radius,
			Y: pos.Y + (rng.Float64()*2-1)*radius,
		}
		if f.planner.grid.IsTraversableWorld(candidate) {
			return candidate, true
		}
	}
	return r2.Vec{}, false
}
