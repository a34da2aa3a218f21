package systems

import (
	"container/heap"
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

// ErrNoPath is returned when no route exists between two cells.
var ErrNoPath = errors.New("systems: no path")

// DefaultArrivalDistance is the goal test radius in grid space units.
const DefaultArrivalDistance = 100.0

// PathPlanner runs a greedy best-first search over the navigation grid.
//
// The queue is ordered by straight-line distance to the goal only; no
// accumulated cost is tracked, so returned routes are not guaranteed to be
// shortest. Each queue entry carries the full route that reached it.
type PathPlanner struct {
	grid            *grid.Grid
	ArrivalDistance float64
	LineSamples     int

	// Reusable data structures (cleared between searches)
	open    *nodeHeap
	visited map[grid.CellRef]struct{}
	seq     uint64
}

// searchNode is an entry in the open set.
type searchNode struct {
	cell  grid.CellRef
	path  []grid.CellRef // cells from the start up to, not including, cell
	h     float64        // distance to goal (priority)
	seq   uint64         // insertion order, breaks ties FIFO
	index int            // heap index
}

// nodeHeap implements heap.Interface for the open set.
type nodeHeap []*searchNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// NewPathPlanner creates a planner over g. A non-positive arrivalDistance
// falls back to DefaultArrivalDistance.
func NewPathPlanner(g *grid.Grid, arrivalDistance float64) *PathPlanner {
	if arrivalDistance <= 0 {
		arrivalDistance = DefaultArrivalDistance
	}
	return &PathPlanner{
		grid:            g,
		ArrivalDistance: arrivalDistance,
		LineSamples:     grid.LineSamples,
		open:            &nodeHeap{},
		visited:         make(map[grid.CellRef]struct{}, 256),
	}
}

// Grid returns the grid the planner searches.
func (p *PathPlanner) Grid() *grid.Grid {
	return p.grid
}

// FindPath searches from start toward goal.
//
// The first popped cell within ArrivalDistance of the goal (grid space) ends
// the search. The result is the route that led to that cell: it starts with
// start and does not include the popped cell itself, so it may stop short of
// goal. A start that is already within range yields an empty route.
func (p *PathPlanner) FindPath(start, goal grid.CellRef) ([]grid.CellRef, error) {
	if !p.grid.IsTraversable(start) {
		return nil, ErrNoPath
	}

	// Clear reusable data structures
	*p.open = (*p.open)[:0]
	for k := range p.visited {
		delete(p.visited, k)
	}
	p.seq = 0

	goalPos := p.grid.GridSpacePosition(goal)
	p.push(start, nil, goal)
	p.visited[start] = struct{}{}

	for p.open.Len() > 0 {
		current := heap.Pop(p.open).(*searchNode)

		if r2.Norm(r2.Sub(p.grid.GridSpacePosition(current.cell), goalPos)) <= p.ArrivalDistance {
			return current.path, nil
		}

		next := make([]grid.CellRef, len(current.path), len(current.path)+1)
		copy(next, current.path)
		next = append(next, current.cell)

		for _, d := range grid.Orthogonal {
			n := current.cell.Add(d.DX, d.DY)
			if _, seen := p.visited[n]; seen {
				continue
			}
			if !p.grid.IsTraversable(n) {
				continue
			}
			p.visited[n] = struct{}{}
			p.push(n, next, goal)
		}
	}

	return nil, ErrNoPath
}

func (p *PathPlanner) push(c grid.CellRef, path []grid.CellRef, goal grid.CellRef) {
	p.seq++
	heap.Push(p.open, &searchNode{
		cell: c,
		path: path,
		h:    heuristic(c, goal),
		seq:  p.seq,
	})
}

// heuristic computes the Euclidean distance between two cells in cell units.
func heuristic(a, b grid.CellRef) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// PathStep is a single aim point for a follower.
type PathStep struct {
	Point r2.Vec
	Cell  grid.CellRef
}

// SmoothPath returns the furthest cell of path that can be walked to in a
// straight line from origin without touching a blocked cell.
//
// Cells are tried in order; the first one whose segment is obstructed ends the
// walk and the previous cell is returned (origin's own cell if that was the
// first one tried). path must not be empty.
func (p *PathPlanner) SmoothPath(path []grid.CellRef, origin r2.Vec) PathStep {
	prev := p.grid.CellAt(origin)
	for _, c := range path {
		if !grid.SegmentClear(p.grid, origin, p.grid.CellPosition(c), p.LineSamples, p.grid.IsTraversable) {
			return PathStep{Point: p.grid.CellPosition(prev), Cell: prev}
		}
		prev = c
	}
	return PathStep{Point: p.grid.CellPosition(prev), Cell: prev}
}
