package systems

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

func openTracker(w, h int, params OccupancyParams) (*grid.Grid, *TargetTracker) {
	g := grid.NewGrid(w, h, 100, r2.Vec{}, grid.FlagTraversable)
	return g, NewTargetTracker(uuid.New(), g, params)
}

func beliefAt(t *TargetTracker, x, y int) float64 {
	return t.Belief().At(grid.CellRef{X: x, Y: y})
}

func TestTrackerStartsUnknown(t *testing.T) {
	g, tr := openTracker(3, 3, DefaultOccupancyParams())

	state := tr.Tick([]Observer{{Awareness: 0.5}}, Pose{Position: g.CellPosition(grid.CellRef{})}, nil)

	assert.Equal(t, TargetUnknown, state)
	assert.False(t, tr.IsKnown())
	assert.Zero(t, floats.Sum(tr.Belief().Values()))
	assert.NotEqual(t, uuid.Nil, NewTargetTracker(uuid.Nil, g, DefaultOccupancyParams()).ID())
}

// TestObservationCollapse verifies direct observation puts all mass on one cell.
func TestObservationCollapse(t *testing.T) {
	g, tr := openTracker(5, 5, DefaultOccupancyParams())
	tr.Belief().Fill(0.04)

	tr.SetPosition(g.CellPosition(grid.CellRef{X: 3, Y: 1}))

	ones := 0
	tr.Belief().Each(func(c grid.CellRef, v float64) {
		switch v {
		case 1:
			ones++
			assert.Equal(t, grid.CellRef{X: 3, Y: 1}, c)
		case 0:
		default:
			t.Errorf("cell %v = %v, want 0 or 1", c, v)
		}
	})
	assert.Equal(t, 1, ones)
}

// TestImmediateTick verifies the full tick while the target is in view.
func TestImmediateTick(t *testing.T) {
	g, tr := openTracker(5, 5, DefaultOccupancyParams())
	truth := Pose{Position: g.CellPosition(grid.CellRef{X: 2, Y: 2}), Velocity: r2.Vec{X: 3}}

	state := tr.Tick([]Observer{{Awareness: 0.2}, {Awareness: 1}}, truth, nil)

	assert.Equal(t, TargetImmediate, state)
	assert.Equal(t, truth.Position, tr.LastKnown().Position)
	assert.Equal(t, truth.Velocity, tr.LastKnown().Velocity)
	assert.InDelta(t, 1.0, floats.Sum(tr.Belief().Values()), 1e-9)
	assert.Greater(t, beliefAt(tr, 2, 2), beliefAt(tr, 2, 1))
}

// TestDiffuseRatios verifies orthogonal and diagonal spread from a point.
func TestDiffuseRatios(t *testing.T) {
	_, tr := openTracker(5, 5, DefaultOccupancyParams())
	tr.Belief().SetAt(grid.CellRef{X: 2, Y: 2}, 1)

	tr.Diffuse()

	centre := beliefAt(tr, 2, 2)
	require.Greater(t, centre, 0.0)
	assert.InDelta(t, 0.75, beliefAt(tr, 2, 1)/centre, 1e-12)
	assert.InDelta(t, 0.75, beliefAt(tr, 3, 2)/centre, 1e-12)
	assert.InDelta(t, 0.75/math.Sqrt2, beliefAt(tr, 3, 3)/centre, 1e-12)
	assert.Zero(t, beliefAt(tr, 0, 0))
	assert.InDelta(t, 1.0, floats.Sum(tr.Belief().Values()), 1e-9)
}

func TestDiffuseWithoutDiagonals(t *testing.T) {
	params := DefaultOccupancyParams()
	params.DiagonalSpread = false
	_, tr := openTracker(5, 5, params)
	tr.Belief().SetAt(grid.CellRef{X: 2, Y: 2}, 1)

	tr.Diffuse()

	assert.Zero(t, beliefAt(tr, 3, 3))
	assert.Zero(t, beliefAt(tr, 1, 1))
	assert.InDelta(t, 0.75, beliefAt(tr, 1, 2)/beliefAt(tr, 2, 2), 1e-12)
}

// TestDiffuseLargestContributionWins verifies a cell reached by two sources
// takes the larger share regardless of scan order.
func TestDiffuseLargestContributionWins(t *testing.T) {
	params := DefaultOccupancyParams()
	params.DiagonalSpread = false

	for _, mirrored := range []bool{false, true} {
		_, tr := openTracker(5, 5, params)
		strong, weak := grid.CellRef{X: 1, Y: 2}, grid.CellRef{X: 3, Y: 2}
		if mirrored {
			strong, weak = weak, strong
		}
		tr.Belief().SetAt(strong, 0.5)
		tr.Belief().SetAt(weak, 0.3)

		tr.Diffuse()

		ratio := beliefAt(tr, 2, 2) / tr.Belief().At(strong)
		assert.InDelta(t, 0.75, ratio, 1e-12, "mirrored=%v", mirrored)
	}
}

// TestDiffuseRespectsWalls verifies blocked cells never gain belief.
func TestDiffuseRespectsWalls(t *testing.T) {
	g := grid.MustParseASCII(100,
		".....",
		".###.",
		".~...",
	)
	tr := NewTargetTracker(uuid.New(), g, DefaultOccupancyParams())
	tr.SetPosition(g.CellPosition(grid.CellRef{}))

	for i := 0; i < 10; i++ {
		tr.Diffuse()
		tr.Belief().Each(func(c grid.CellRef, v float64) {
			if !g.IsTraversable(c) {
				assert.Zero(t, v, "blocked cell %v", c)
			}
		})
		assert.InDelta(t, 1.0, floats.Sum(tr.Belief().Values()), 1e-9)
	}
}

// TestHiddenUpdate verifies visibility subtraction moves the estimate to the
// most likely unseen cell.
func TestHiddenUpdate(t *testing.T) {
	g := grid.MustParseASCII(100, ".......")
	params := DefaultOccupancyParams()
	params.ProximityRadius = 50
	tr := NewTargetTracker(uuid.New(), g, params)

	guard := Pose{Position: g.CellPosition(grid.CellRef{X: 6}), Forward: r2.Vec{X: -1}}
	vision := VisionParams{Angle: 90, Distance: 300}
	truth := Pose{Position: g.CellPosition(grid.CellRef{X: 0})}

	tr.Tick([]Observer{{Pose: guard, Vision: vision, Awareness: 1}}, truth, nil)
	state := tr.Tick([]Observer{{Pose: guard, Vision: vision, Awareness: 0}}, truth, nil)

	assert.Equal(t, TargetHidden, state)
	assert.Equal(t, g.CellPosition(grid.CellRef{X: 1}), tr.LastKnown().Position)
	assert.InDelta(t, 0.4, beliefAt(tr, 1, 0), 1e-9)
	assert.InDelta(t, 0.3, beliefAt(tr, 0, 0), 1e-9)
	assert.InDelta(t, 0.3, beliefAt(tr, 2, 0), 1e-9)
	assert.InDelta(t, 1.0, floats.Sum(tr.Belief().Values()), 1e-9)
	assert.Zero(t, tr.Resets)
}

// TestHiddenUpdateOccluded verifies cells behind walls keep their belief.
func TestHiddenUpdateOccluded(t *testing.T) {
	g := grid.MustParseASCII(100,
		"...#...",
		"...#...",
	)
	params := DefaultOccupancyParams()
	params.ProximityRadius = 0
	tr := NewTargetTracker(uuid.New(), g, params)
	for _, c := range g.TraversableCells(g.Bounds()) {
		tr.Belief().SetAt(c, 1.0/12)
	}
	tr.last.State = TargetHidden

	guard := Pose{Position: g.CellPosition(grid.CellRef{X: 0, Y: 0}), Forward: r2.Vec{X: 1}}
	obs := []Observer{{Pose: guard, Vision: VisionParams{Angle: 180, Distance: 1000}}}
	tr.Update(obs, GridOccluder{Grid: g})

	for x := 4; x < 7; x++ {
		assert.Greater(t, beliefAt(tr, x, 0), 0.0, "cell (%d,0) is behind the wall", x)
	}
	assert.Zero(t, beliefAt(tr, 1, 0))
	assert.InDelta(t, 1.0, floats.Sum(tr.Belief().Values()), 1e-9)
}

// TestDegenerateUpdateResets verifies an all-visible map falls back to uniform.
func TestDegenerateUpdateResets(t *testing.T) {
	g, tr := openTracker(3, 3, DefaultOccupancyParams())
	guard := Pose{Position: g.CellPosition(grid.CellRef{X: 1, Y: 1}), Forward: r2.Vec{X: 1}}
	vision := VisionParams{Angle: 360, Distance: 1000}
	truth := Pose{Position: guard.Position}

	tr.Tick([]Observer{{Pose: guard, Vision: vision, Awareness: 1}}, truth, nil)
	tr.Tick([]Observer{{Pose: guard, Vision: vision}}, truth, nil)

	assert.Equal(t, 1, tr.Resets)
	for _, v := range tr.Belief().Values() {
		assert.False(t, math.IsNaN(v))
		assert.InDelta(t, 1.0/9, v, 1e-12)
	}
}
