package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a gonum vector.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Set overwrites the position from a vector.
func (p *Position) Set(v r2.Vec) {
	p.X, p.Y = v.X, v.Y
}

// Velocity represents an entity's velocity in world units per tick.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a gonum vector.
func (v Velocity) Vec() r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// Rotation represents an entity's heading.
type Rotation struct {
	Heading float64 // radians, 0 = +X
}

// Forward returns the unit vector the entity faces.
func (r Rotation) Forward() r2.Vec {
	return r2.Vec{X: math.Cos(r.Heading), Y: math.Sin(r.Heading)}
}

// Face turns the rotation toward dir. A zero dir leaves it unchanged.
func (r *Rotation) Face(dir r2.Vec) {
	if dir.X == 0 && dir.Y == 0 {
		return
	}
	r.Heading = math.Atan2(dir.Y, dir.X)
}
