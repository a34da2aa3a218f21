package systems

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

// TestFindPathStraightRow verifies the route stops one cell short of the
// goal once a popped cell is within arrival distance.
func TestFindPathStraightRow(t *testing.T) {
	g := grid.MustParseASCII(100, ".....")
	p := NewPathPlanner(g, 100)

	path, err := p.FindPath(grid.CellRef{X: 0, Y: 0}, grid.CellRef{X: 4, Y: 0})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}

	want := []grid.CellRef{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	if diff := cmp.Diff(want, path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

// TestFindPathAlreadyArrived verifies a start within range yields an empty route.
func TestFindPathAlreadyArrived(t *testing.T) {
	g := grid.MustParseASCII(100, "...")
	p := NewPathPlanner(g, 100)

	path, err := p.FindPath(grid.CellRef{X: 1, Y: 0}, grid.CellRef{X: 1, Y: 0})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) != 0 {
		t.Errorf("expected empty path, got %v", path)
	}
}

// TestFindPathNoRoute verifies exhaustion and blocked starts report ErrNoPath.
func TestFindPathNoRoute(t *testing.T) {
	g := grid.MustParseASCII(100, "..#..")
	p := NewPathPlanner(g, 100)

	if _, err := p.FindPath(grid.CellRef{X: 0, Y: 0}, grid.CellRef{X: 4, Y: 0}); !errors.Is(err, ErrNoPath) {
		t.Errorf("walled off goal: err = %v, want ErrNoPath", err)
	}
	if _, err := p.FindPath(grid.CellRef{X: 2, Y: 0}, grid.CellRef{X: 4, Y: 0}); !errors.Is(err, ErrNoPath) {
		t.Errorf("blocked start: err = %v, want ErrNoPath", err)
	}
	if _, err := p.FindPath(grid.CellRef{X: -1, Y: 0}, grid.CellRef{X: 1, Y: 0}); !errors.Is(err, ErrNoPath) {
		t.Errorf("off-grid start: err = %v, want ErrNoPath", err)
	}
}

// TestFindPathAroundWall verifies routes stay on traversable cells and are
// 4-connected.
func TestFindPathAroundWall(t *testing.T) {
	g := grid.MustParseASCII(100,
		".......",
		".#####.",
		".......",
	)
	p := NewPathPlanner(g, 100)

	start := grid.CellRef{X: 0, Y: 1}
	path, err := p.FindPath(start, grid.CellRef{X: 6, Y: 1})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if len(path) == 0 || path[0] != start {
		t.Fatalf("path should begin at start, got %v", path)
	}

	for i, c := range path {
		if !g.IsTraversable(c) {
			t.Errorf("step %d (%v) is not traversable", i, c)
		}
		if i == 0 {
			continue
		}
		dx, dy := c.X-path[i-1].X, c.Y-path[i-1].Y
		if dx*dx+dy*dy != 1 {
			t.Errorf("step %d (%v) is not adjacent to %v", i, c, path[i-1])
		}
	}
}

// TestFindPathDeterministic verifies equal-priority ties resolve the same way
// every run.
func TestFindPathDeterministic(t *testing.T) {
	g := grid.NewGrid(9, 9, 100, r2.Vec{}, grid.FlagTraversable)
	p := NewPathPlanner(g, 100)

	first, err := p.FindPath(grid.CellRef{X: 0, Y: 0}, grid.CellRef{X: 8, Y: 8})
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := p.FindPath(grid.CellRef{X: 0, Y: 0}, grid.CellRef{X: 8, Y: 8})
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

// TestSmoothPath covers the three outcomes of straight-line smoothing.
func TestSmoothPath(t *testing.T) {
	g := grid.MustParseASCII(100,
		"....",
		".#..",
		"....",
	)
	p := NewPathPlanner(g, 100)
	origin := g.CellPosition(grid.CellRef{X: 0, Y: 0})

	tests := []struct {
		name string
		path []grid.CellRef
		want grid.CellRef
	}{
		{
			name: "stops before obstruction",
			path: []grid.CellRef{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}},
			want: grid.CellRef{X: 2, Y: 0},
		},
		{
			name: "all clear",
			path: []grid.CellRef{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}},
			want: grid.CellRef{X: 3, Y: 0},
		},
		{
			name: "first cell obstructed",
			path: []grid.CellRef{{X: 2, Y: 1}, {X: 2, Y: 2}},
			want: grid.CellRef{X: 0, Y: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			step := p.SmoothPath(tc.path, origin)
			if step.Cell != tc.want {
				t.Errorf("SmoothPath cell = %v, want %v", step.Cell, tc.want)
			}
			if step.Point != g.CellPosition(tc.want) {
				t.Errorf("SmoothPath point = %v, want centre of %v", step.Point, tc.want)
			}
		})
	}
}
