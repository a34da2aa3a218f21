package components

import "math"

// Body holds physical properties of an agent. Bodies block sightlines for
// everyone except the two ends of a ray.
type Body struct {
	Radius   float64 // World units
	MaxSpeed float64 // World units per tick
	Role     Role
}

// Step limits a desired displacement to the body's speed.
func (b Body) Step(dx, dy float64) (float64, float64) {
	d2 := dx*dx + dy*dy
	if b.MaxSpeed <= 0 || d2 <= b.MaxSpeed*b.MaxSpeed {
		return dx, dy
	}
	scale := b.MaxSpeed / math.Sqrt(d2)
	return dx * scale, dy * scale
}
