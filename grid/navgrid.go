package grid

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// CellFlags describes what an agent can do with a cell.
type CellFlags uint8

const (
	FlagTraversable CellFlags = 1 << iota // agents may occupy or cross the cell
	FlagOpaque                            // the cell blocks sightlines
)

// Has reports whether all bits in f are set.
func (c CellFlags) Has(f CellFlags) bool {
	return c&f == f
}

// DefaultCellSize is the world size of one cell when a map does not say otherwise.
const DefaultCellSize = 100.0

// Grid is the navigation grid over the play area.
// Cells are addressed by CellRef; world positions map onto cells by flooring.
type Grid struct {
	flags    *Map[CellFlags]
	cellSize float64
	origin   r2.Vec

	// Marker cells found while parsing an ASCII map.
	GuardSpawns    []CellRef
	IntruderSpawns []CellRef
}

// NewGrid creates a width x height grid with every cell set to flags.
func NewGrid(width, height int, cellSize float64, origin r2.Vec, flags CellFlags) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		flags:    NewMap(NewBounds(width, height), flags),
		cellSize: cellSize,
		origin:   origin,
	}
}

// ParseASCII builds a grid from text rows, one character per cell:
//
//	.  floor
//	#  wall (blocked, opaque)
//	~  pit (blocked, see-through)
//	G  floor with a guard spawn
//	I  floor with an intruder spawn
//
// Row 0 of the text is cell row 0. Short rows are padded with walls.
func ParseASCII(rows []string, cellSize float64, origin r2.Vec) (*Grid, error) {
	var lines []string
	for _, r := range rows {
		r = strings.TrimRight(r, "\r")
		if strings.TrimSpace(r) == "" {
			continue
		}
		lines = append(lines, r)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("parsing map: no rows")
	}

	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}

	g := NewGrid(width, len(lines), cellSize, origin, FlagOpaque)
	for y, l := range lines {
		for x := 0; x < width; x++ {
			ch := byte('#')
			if x < len(l) {
				ch = l[x]
			}
			c := CellRef{X: x, Y: y}
			switch ch {
			case '.', ' ':
				g.flags.SetAt(c, FlagTraversable)
			case '#':
				g.flags.SetAt(c, FlagOpaque)
			case '~':
				g.flags.SetAt(c, 0)
			case 'G':
				g.flags.SetAt(c, FlagTraversable)
				g.GuardSpawns = append(g.GuardSpawns, c)
			case 'I':
				g.flags.SetAt(c, FlagTraversable)
				g.IntruderSpawns = append(g.IntruderSpawns, c)
			default:
				return nil, fmt.Errorf("parsing map: unknown cell %q at (%d, %d)", ch, x, y)
			}
		}
	}
	return g, nil
}

// MustParseASCII is like ParseASCII but panics on error. Intended for tests.
func MustParseASCII(cellSize float64, rows ...string) *Grid {
	g, err := ParseASCII(rows, cellSize, r2.Vec{})
	if err != nil {
		panic(err)
	}
	return g
}

// Bounds returns the full cell rectangle of the grid.
func (g *Grid) Bounds() Bounds {
	return g.flags.Bounds()
}

// CellSize returns the world size of one cell.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Origin returns the world position of the grid's (0, 0) corner.
func (g *Grid) Origin() r2.Vec {
	return g.origin
}

// Flags returns the flags of c. Out-of-bounds cells report no flags.
func (g *Grid) Flags(c CellRef) CellFlags {
	if !g.flags.bounds.Contains(c) {
		return 0
	}
	return g.flags.At(c)
}

// SetFlags overwrites the flags of c.
func (g *Grid) SetFlags(c CellRef, f CellFlags) error {
	return g.flags.Set(c, f)
}

// IsTraversable reports whether an agent may occupy c.
// Out of bounds is never traversable.
func (g *Grid) IsTraversable(c CellRef) bool {
	return g.Flags(c).Has(FlagTraversable)
}

// BlocksSight reports whether c stops a sightline. Out of bounds blocks.
func (g *Grid) BlocksSight(c CellRef) bool {
	if !g.flags.bounds.Contains(c) {
		return true
	}
	return g.flags.At(c).Has(FlagOpaque)
}

// IsTraversableWorld reports whether the cell under a world position is traversable.
func (g *Grid) IsTraversableWorld(p r2.Vec) bool {
	return g.IsTraversable(g.CellAt(p))
}

// CellAt converts a world position to the cell containing it.
func (g *Grid) CellAt(p r2.Vec) CellRef {
	return CellRef{
		X: int(math.Floor((p.X - g.origin.X) / g.cellSize)),
		Y: int(math.Floor((p.Y - g.origin.Y) / g.cellSize)),
	}
}

// CellPosition returns the world position of the centre of c.
func (g *Grid) CellPosition(c CellRef) r2.Vec {
	return r2.Add(g.origin, g.GridSpacePosition(c))
}

// GridSpacePosition returns the centre of c relative to the grid origin.
func (g *Grid) GridSpacePosition(c CellRef) r2.Vec {
	return r2.Vec{
		X: (float64(c.X) + 0.5) * g.cellSize,
		Y: (float64(c.Y) + 0.5) * g.cellSize,
	}
}

// BoundsAround returns the cells covered by a square of the given half extent
// around a world position, clipped to the grid. ok is false when nothing of
// the square overlaps the grid.
func (g *Grid) BoundsAround(center r2.Vec, halfExtent float64) (b Bounds, ok bool) {
	lo := g.CellAt(r2.Vec{X: center.X - halfExtent, Y: center.Y - halfExtent})
	hi := g.CellAt(r2.Vec{X: center.X + halfExtent, Y: center.Y + halfExtent})
	b = Bounds{MinX: lo.X, MinY: lo.Y, MaxX: hi.X + 1, MaxY: hi.Y + 1}.Intersect(g.Bounds())
	return b, !b.Empty()
}

// TraversableCells returns every traversable cell inside b, row-major.
func (g *Grid) TraversableCells(b Bounds) []CellRef {
	var cells []CellRef
	b.Intersect(g.Bounds()).Each(func(c CellRef) {
		if g.IsTraversable(c) {
			cells = append(cells, c)
		}
	})
	return cells
}

// NearestTraversable finds the closest traversable cell to c by spiralling
// outward up to radius rings. ok is false if none was found.
func (g *Grid) NearestTraversable(c CellRef, radius int) (CellRef, bool) {
	if g.IsTraversable(c) {
		return c, true
	}
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				// Only check cells on the current ring
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				n := c.Add(dx, dy)
				if g.IsTraversable(n) {
					return n, true
				}
			}
		}
	}
	return CellRef{}, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
