package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/grid"
)

// Occluder answers sightline queries. Entities in ignore never block.
type Occluder interface {
	Occluded(from, to r2.Vec, ignore ...ecs.Entity) bool
}

// GridOccluder blocks sightlines that cross opaque cells.
type GridOccluder struct {
	Grid    *grid.Grid
	Samples int // 0 means grid.LineSamples
}

// Occluded reports whether an opaque cell lies on the segment.
func (o GridOccluder) Occluded(from, to r2.Vec, _ ...ecs.Entity) bool {
	n := o.Samples
	if n == 0 {
		n = grid.LineSamples
	}
	return !grid.SegmentClear(o.Grid, from, to, n, func(c grid.CellRef) bool {
		return !o.Grid.BlocksSight(c)
	})
}

// BodyOccluder extends GridOccluder with agent bodies.
type BodyOccluder struct {
	GridOccluder
	Bodies *BodyGrid
}

// Occluded reports whether walls or a body not in ignore block the segment.
func (o BodyOccluder) Occluded(from, to r2.Vec, ignore ...ecs.Entity) bool {
	if o.GridOccluder.Occluded(from, to) {
		return true
	}
	return o.Bodies != nil && o.Bodies.SegmentBlocked(from, to, ignore...)
}
