// Package grid provides the uniform 2D cell substrate shared by the planner,
// the distance field, the occupancy tracker and the utility evaluator.
package grid

// CellRef identifies a single grid cell by integer coordinates.
type CellRef struct {
	X, Y int
}

// Add returns the cell offset by (dx, dy).
func (c CellRef) Add(dx, dy int) CellRef {
	return CellRef{X: c.X + dx, Y: c.Y + dy}
}

// Offset is a neighbour step in cell space.
type Offset struct {
	DX, DY int
}

// Orthogonal holds the 4-connected neighbour offsets in expansion order.
var Orthogonal = [4]Offset{
	{0, 1},
	{0, -1},
	{1, 0},
	{-1, 0},
}

// Diagonal holds the corner neighbour offsets.
var Diagonal = [4]Offset{
	{1, 1},
	{1, -1},
	{-1, 1},
	{-1, -1},
}

// Bounds is a half-open cell rectangle: MinX <= x < MaxX, MinY <= y < MaxY.
type Bounds struct {
	MinX, MinY int
	MaxX, MaxY int
}

// NewBounds returns the bounds covering a width x height grid at the origin.
func NewBounds(width, height int) Bounds {
	return Bounds{MaxX: width, MaxY: height}
}

// Contains reports whether c lies inside the bounds.
func (b Bounds) Contains(c CellRef) bool {
	return c.X >= b.MinX && c.X < b.MaxX && c.Y >= b.MinY && c.Y < b.MaxY
}

// Width returns the number of columns.
func (b Bounds) Width() int {
	if b.MaxX <= b.MinX {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns the number of rows.
func (b Bounds) Height() int {
	if b.MaxY <= b.MinY {
		return 0
	}
	return b.MaxY - b.MinY
}

// Area returns the number of cells covered.
func (b Bounds) Area() int {
	return b.Width() * b.Height()
}

// Empty reports whether the bounds cover no cells.
func (b Bounds) Empty() bool {
	return b.Area() == 0
}

// Intersect returns the overlap of two bounds. The result may be empty.
func (b Bounds) Intersect(o Bounds) Bounds {
	r := Bounds{
		MinX: max(b.MinX, o.MinX),
		MinY: max(b.MinY, o.MinY),
		MaxX: min(b.MaxX, o.MaxX),
		MaxY: min(b.MaxY, o.MaxY),
	}
	if r.MaxX < r.MinX {
		r.MaxX = r.MinX
	}
	if r.MaxY < r.MinY {
		r.MaxY = r.MinY
	}
	return r
}

// Each calls fn for every cell in row-major order (Y outer, X inner).
func (b Bounds) Each(fn func(c CellRef)) {
	for y := b.MinY; y < b.MaxY; y++ {
		for x := b.MinX; x < b.MaxX; x++ {
			fn(CellRef{X: x, Y: y})
		}
	}
}

// index returns the row-major offset of c. The caller must check Contains.
func (b Bounds) index(c CellRef) int {
	return (c.Y-b.MinY)*b.Width() + (c.X - b.MinX)
}

// cellAt is the inverse of index.
func (b Bounds) cellAt(i int) CellRef {
	w := b.Width()
	return CellRef{X: b.MinX + i%w, Y: b.MinY + i/w}
}
