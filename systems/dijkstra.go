package systems

import (
	"container/heap"
	"errors"
	"math"

	"github.com/pthm-cable/sentinel/grid"
)

// Unreachable marks cells the distance field never reached.
const Unreachable = math.MaxFloat64

// MaxReconstructSteps caps how many cells ReconstructPath walks.
const MaxReconstructSteps = 1000

// ErrReconstructionCap is returned when path reconstruction exceeds its
// step limit. The destination is still reachable; callers may aim at it
// directly.
var ErrReconstructionCap = errors.New("systems: path reconstruction step limit reached")

// distNode is an entry in the Dijkstra frontier.
type distNode struct {
	cell  grid.CellRef
	d     float64
	seq   uint64
	index int
}

type distHeap []*distNode

func (h distHeap) Len() int { return len(h) }
func (h distHeap) Less(i, j int) bool {
	if h[i].d != h[j].d {
		return h[i].d < h[j].d
	}
	return h[i].seq < h[j].seq
}
func (h distHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *distHeap) Push(x any) {
	n := x.(*distNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *distHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// BuildDistanceField floods out from source over traversable cells inside
// window with unit edge weights and 4-connectivity. Every cell the flood
// never reached holds Unreachable. A source outside window or on a blocked
// cell leaves the whole field Unreachable.
func BuildDistanceField(g *grid.Grid, window grid.Bounds, source grid.CellRef) *grid.Map[float64] {
	field := grid.NewMap(window, Unreachable)
	if !window.Contains(source) || !g.IsTraversable(source) {
		return field
	}

	open := &distHeap{}
	visited := make(map[grid.CellRef]struct{}, window.Area())
	var seq uint64

	field.SetAt(source, 0)
	visited[source] = struct{}{}
	heap.Push(open, &distNode{cell: source})

	for open.Len() > 0 {
		current := heap.Pop(open).(*distNode)
		for _, d := range grid.Orthogonal {
			n := current.cell.Add(d.DX, d.DY)
			if !window.Contains(n) || !g.IsTraversable(n) {
				continue
			}
			if _, seen := visited[n]; seen {
				continue
			}
			visited[n] = struct{}{}
			nd := current.d + 1
			field.SetAt(n, nd)
			seq++
			heap.Push(open, &distNode{cell: n, d: nd, seq: seq})
		}
	}

	return field
}

// IsReachable reports whether v is a distance the field actually assigned.
func IsReachable(v float64) bool {
	return v >= 0 && v < Unreachable && v == math.Trunc(v)
}

// ReconstructPath walks the field downhill from dest to source.
//
// Each step moves to the in-field, traversable orthogonal neighbour with the
// smallest distance, which must be strictly smaller than the current cell's.
// The result runs from the cell after source up to and including dest;
// dest == source yields an empty path. ErrNoPath means no improving
// neighbour exists; ErrReconstructionCap means the walk ran past
// MaxReconstructSteps.
func ReconstructPath(field *grid.Map[float64], g *grid.Grid, source, dest grid.CellRef) ([]grid.CellRef, error) {
	return reconstructPath(field, g, source, dest, MaxReconstructSteps)
}

func reconstructPath(field *grid.Map[float64], g *grid.Grid, source, dest grid.CellRef, maxSteps int) ([]grid.CellRef, error) {
	cur, err := field.Get(dest)
	if err != nil || !IsReachable(cur) {
		return nil, ErrNoPath
	}

	var rev []grid.CellRef
	c := dest
	for steps := 0; c != source; steps++ {
		if steps >= maxSteps {
			return nil, ErrReconstructionCap
		}
		rev = append(rev, c)

		best, bestVal := c, cur
		for _, d := range grid.Orthogonal {
			n := c.Add(d.DX, d.DY)
			if !g.IsTraversable(n) {
				continue
			}
			v, err := field.Get(n)
			if err != nil {
				continue
			}
			if v < bestVal {
				best, bestVal = n, v
			}
		}
		if best == c {
			return nil, ErrNoPath
		}
		c, cur = best, bestVal
	}

	path := make([]grid.CellRef, len(rev))
	for i, cell := range rev {
		path[len(rev)-1-i] = cell
	}
	return path, nil
}
