package grid

import "gonum.org/v1/gonum/spatial/r2"

// LineSamples is the number of interpolation points used for straight-line
// checks. It matches the largest map dimension the planner was tuned on.
const LineSamples = 80

// SegmentClear samples n evenly spaced points from a to b (both ends
// included) and reports whether every sampled cell satisfies pass.
func SegmentClear(g *Grid, a, b r2.Vec, n int, pass func(CellRef) bool) bool {
	if n < 2 {
		n = 2
	}
	d := r2.Sub(b, a)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		p := r2.Add(a, r2.Scale(t, d))
		if !pass(g.CellAt(p)) {
			return false
		}
	}
	return true
}

// WalkableLine reports whether a straight walk from a to b stays on
// traversable cells.
func (g *Grid) WalkableLine(a, b r2.Vec) bool {
	return SegmentClear(g, a, b, LineSamples, g.IsTraversable)
}

// ClearSightline reports whether no opaque cell lies between a and b.
func (g *Grid) ClearSightline(a, b r2.Vec) bool {
	return SegmentClear(g, a, b, LineSamples, func(c CellRef) bool {
		return !g.BlocksSight(c)
	})
}
