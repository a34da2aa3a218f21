package systems

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

var mazeRows = []string{
	"..........",
	".####.###.",
	".#......#.",
	".#.####.#.",
	"...#..#...",
	"##.#..###.",
	"...#......",
}

// TestDistanceFieldOpenGrid verifies Manhattan distances on an open grid.
func TestDistanceFieldOpenGrid(t *testing.T) {
	g := grid.NewGrid(5, 5, 100, r2.Vec{}, grid.FlagTraversable)
	field := BuildDistanceField(g, g.Bounds(), grid.CellRef{})

	if got := field.At(grid.CellRef{X: 2, Y: 2}); got != 4 {
		t.Errorf("distance to (2,2) = %v, want 4", got)
	}
	field.Each(func(c grid.CellRef, v float64) {
		want := float64(c.X + c.Y)
		if v != want {
			t.Errorf("distance to %v = %v, want %v", c, v, want)
		}
		if !IsReachable(v) {
			t.Errorf("%v should be reachable", c)
		}
	})
}

// TestDistanceFieldUnreachable verifies walls, pockets and bad sources.
func TestDistanceFieldUnreachable(t *testing.T) {
	g := grid.MustParseASCII(100, "..#..")

	field := BuildDistanceField(g, g.Bounds(), grid.CellRef{X: 0, Y: 0})
	for _, x := range []int{2, 3, 4} {
		if v := field.At(grid.CellRef{X: x}); v != Unreachable {
			t.Errorf("cell %d = %v, want Unreachable", x, v)
		}
	}

	blocked := BuildDistanceField(g, g.Bounds(), grid.CellRef{X: 2, Y: 0})
	for _, v := range blocked.Values() {
		if v != Unreachable {
			t.Fatalf("blocked source should leave field unreachable, got %v", v)
		}
	}

	window := grid.Bounds{MinX: 3, MinY: 0, MaxX: 5, MaxY: 1}
	outside := BuildDistanceField(g, window, grid.CellRef{X: 0, Y: 0})
	for _, v := range outside.Values() {
		if v != Unreachable {
			t.Fatalf("source outside window should leave field unreachable, got %v", v)
		}
	}
}

// TestDistanceFieldWindowClips verifies the flood never leaves the window.
func TestDistanceFieldWindowClips(t *testing.T) {
	g := grid.NewGrid(6, 6, 100, r2.Vec{}, grid.FlagTraversable)
	window := grid.Bounds{MinX: 1, MinY: 1, MaxX: 4, MaxY: 4}

	field := BuildDistanceField(g, window, grid.CellRef{X: 2, Y: 2})
	if field.Bounds() != window {
		t.Fatalf("field bounds = %+v, want %+v", field.Bounds(), window)
	}
	if v := field.At(grid.CellRef{X: 1, Y: 1}); v != 2 {
		t.Errorf("corner distance = %v, want 2", v)
	}
}

// TestDistanceFieldMonotone verifies every reachable cell but the source has
// a neighbour exactly one step closer.
func TestDistanceFieldMonotone(t *testing.T) {
	g := grid.MustParseASCII(100, mazeRows...)
	source := grid.CellRef{X: 0, Y: 0}
	field := BuildDistanceField(g, g.Bounds(), source)

	field.Each(func(c grid.CellRef, v float64) {
		if !IsReachable(v) {
			if g.IsTraversable(c) {
				// Every open cell in the maze connects to the source.
				t.Errorf("traversable %v unreachable", c)
			}
			return
		}
		if v < 0 {
			t.Errorf("%v has negative distance %v", c, v)
		}
		if c == source {
			return
		}
		found := false
		for _, d := range grid.Orthogonal {
			n := c.Add(d.DX, d.DY)
			if nv, err := field.Get(n); err == nil && nv == v-1 {
				found = true
			}
		}
		if !found {
			t.Errorf("%v (d=%v) has no predecessor", c, v)
		}
	})
}

func TestIsReachable(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{0, true},
		{7, true},
		{-1, false},
		{2.5, false},
		{Unreachable, false},
	}
	for _, tc := range tests {
		if got := IsReachable(tc.v); got != tc.want {
			t.Errorf("IsReachable(%v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

// TestReconstructPath verifies the downhill walk and its ordering.
func TestReconstructPath(t *testing.T) {
	g := grid.NewGrid(5, 5, 100, r2.Vec{}, grid.FlagTraversable)
	source := grid.CellRef{}
	field := BuildDistanceField(g, g.Bounds(), source)

	path, err := ReconstructPath(field, g, source, grid.CellRef{X: 2, Y: 2})
	if err != nil {
		t.Fatalf("ReconstructPath: %v", err)
	}
	want := []grid.CellRef{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}}
	if diff := cmp.Diff(want, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}

	same, err := ReconstructPath(field, g, source, source)
	if err != nil || len(same) != 0 {
		t.Errorf("dest == source: path %v, err %v; want empty, nil", same, err)
	}
}

// TestReconstructPathErrors verifies the three outcomes are distinguishable.
func TestReconstructPathErrors(t *testing.T) {
	g := grid.MustParseASCII(100, "..#..")
	field := BuildDistanceField(g, g.Bounds(), grid.CellRef{})

	if _, err := ReconstructPath(field, g, grid.CellRef{}, grid.CellRef{X: 4}); !errors.Is(err, ErrNoPath) {
		t.Errorf("unreachable dest: err = %v, want ErrNoPath", err)
	}

	// A local minimum that is not the source
	open := grid.MustParseASCII(100, "...")
	pit := grid.NewMap(open.Bounds(), Unreachable)
	pit.SetAt(grid.CellRef{X: 0}, 5)
	pit.SetAt(grid.CellRef{X: 1}, 3)
	if _, err := ReconstructPath(pit, open, grid.CellRef{X: 0}, grid.CellRef{X: 1}); !errors.Is(err, ErrNoPath) {
		t.Errorf("no improving neighbour: err = %v, want ErrNoPath", err)
	}

	big := grid.NewGrid(5, 5, 100, r2.Vec{}, grid.FlagTraversable)
	bigField := BuildDistanceField(big, big.Bounds(), grid.CellRef{})
	_, err := reconstructPath(bigField, big, grid.CellRef{}, grid.CellRef{X: 2, Y: 2}, 2)
	if !errors.Is(err, ErrReconstructionCap) {
		t.Errorf("capped walk: err = %v, want ErrReconstructionCap", err)
	}
	if errors.Is(err, ErrNoPath) {
		t.Error("cap error must not match ErrNoPath")
	}
}

// TestReconstructAndSmoothStayTraversable verifies every destination in a
// maze yields a traversable aim cell.
func TestReconstructAndSmoothStayTraversable(t *testing.T) {
	g := grid.MustParseASCII(100, mazeRows...)
	source := grid.CellRef{X: 0, Y: 0}
	field := BuildDistanceField(g, g.Bounds(), source)
	p := NewPathPlanner(g, 100)
	origin := g.CellPosition(source)

	for _, dest := range g.TraversableCells(g.Bounds()) {
		path, err := ReconstructPath(field, g, source, dest)
		if err != nil {
			t.Fatalf("ReconstructPath to %v: %v", dest, err)
		}
		for _, c := range path {
			if !g.IsTraversable(c) {
				t.Fatalf("path to %v crosses %v", dest, c)
			}
		}
		if len(path) == 0 {
			continue
		}
		if path[len(path)-1] != dest {
			t.Errorf("path to %v ends at %v", dest, path[len(path)-1])
		}
		if step := p.SmoothPath(path, origin); !g.IsTraversable(step.Cell) {
			t.Errorf("smoothed step toward %v is %v, not traversable", dest, step.Cell)
		}
	}
}
