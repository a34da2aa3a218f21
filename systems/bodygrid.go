package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Neighbor holds a nearby body with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	Pos    r2.Vec
	Radius float64
	DistSq float64 // Squared distance from the query point
}

type bodyEntry struct {
	e      ecs.Entity
	pos    r2.Vec
	radius float64
}

// BodyGrid buckets agent bodies by cell for neighbour and sightline queries.
// It is rebuilt every tick.
type BodyGrid struct {
	cellSize  float64
	origin    r2.Vec
	cols      int
	rows      int
	cells     [][]bodyEntry
	maxRadius float64
}

// NewBodyGrid creates a body grid covering cols x rows cells of cellSize
// starting at origin.
func NewBodyGrid(origin r2.Vec, cols, rows int, cellSize float64) *BodyGrid {
	cells := make([][]bodyEntry, cols*rows)
	for i := range cells {
		cells[i] = make([]bodyEntry, 0, 4)
	}
	return &BodyGrid{
		cellSize: cellSize,
		origin:   origin,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all bodies from the grid.
func (g *BodyGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.maxRadius = 0
}

// Insert adds a body at the given position.
func (g *BodyGrid) Insert(e ecs.Entity, pos r2.Vec, radius float64) {
	col, row := g.cellOf(pos)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], bodyEntry{e: e, pos: pos, radius: radius})
	g.maxRadius = max(g.maxRadius, radius)
}

// MaxQueryResults caps the number of neighbours returned by spatial queries.
const MaxQueryResults = 128

// QueryRadiusInto appends bodies whose centre lies within radius of pos to
// dst (up to MaxQueryResults) and returns the updated slice.
func (g *BodyGrid) QueryRadiusInto(dst []Neighbor, pos r2.Vec, radius float64, exclude ecs.Entity) []Neighbor {
	radiusSq := radius * radius
	c0, r0 := g.cellOf(r2.Vec{X: pos.X - radius, Y: pos.Y - radius})
	c1, r1 := g.cellOf(r2.Vec{X: pos.X + radius, Y: pos.Y + radius})

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, b := range g.cells[row*g.cols+col] {
				if b.e == exclude {
					continue
				}
				d := r2.Sub(b.pos, pos)
				distSq := r2.Dot(d, d)
				if distSq <= radiusSq {
					dst = append(dst, Neighbor{E: b.e, Pos: b.pos, Radius: b.radius, DistSq: distSq})
					if len(dst) >= MaxQueryResults {
						return dst
					}
				}
			}
		}
	}
	return dst
}

// SegmentBlocked reports whether any body not listed in ignore overlaps the
// segment from a to b.
func (g *BodyGrid) SegmentBlocked(a, b r2.Vec, ignore ...ecs.Entity) bool {
	pad := g.maxRadius
	c0, r0 := g.cellOf(r2.Vec{X: min(a.X, b.X) - pad, Y: min(a.Y, b.Y) - pad})
	c1, r1 := g.cellOf(r2.Vec{X: max(a.X, b.X) + pad, Y: max(a.Y, b.Y) + pad})

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
		next:
			for _, body := range g.cells[row*g.cols+col] {
				for _, e := range ignore {
					if body.e == e {
						continue next
					}
				}
				if segmentPointDistSq(a, b, body.pos) < body.radius*body.radius {
					return true
				}
			}
		}
	}
	return false
}

// cellOf returns the clamped column and row for a world position.
func (g *BodyGrid) cellOf(p r2.Vec) (int, int) {
	col := int((p.X - g.origin.X) / g.cellSize)
	row := int((p.Y - g.origin.Y) / g.cellSize)

	// Clamp to valid range
	col = min(max(col, 0), g.cols-1)
	row = min(max(row, 0), g.rows-1)
	return col, row
}

// segmentPointDistSq returns the squared distance from p to segment ab.
func segmentPointDistSq(a, b, p r2.Vec) float64 {
	ab := r2.Sub(b, a)
	lenSq := r2.Dot(ab, ab)
	t := 0.0
	if lenSq > 0 {
		t = clamp01(r2.Dot(r2.Sub(p, a), ab) / lenSq)
	}
	d := r2.Sub(p, r2.Add(a, r2.Scale(t, ab)))
	return r2.Dot(d, d)
}
