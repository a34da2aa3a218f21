package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// distanceSq returns the squared distance between two points.
func distanceSq(a, b r2.Vec) float64 {
	d := r2.Sub(a, b)
	return r2.Dot(d, d)
}

// withinCone reports whether dir lies inside the cone around forward whose
// half angle has cosine halfCos. A zero dir counts as inside.
func withinCone(forward, dir r2.Vec, halfCos float64) bool {
	fn := r2.Norm(forward)
	dn := r2.Norm(dir)
	if dn == 0 {
		return true
	}
	if fn == 0 {
		return false
	}
	dot := r2.Dot(forward, dir) / (fn * dn)
	return dot >= halfCos
}

// halfAngleCos converts a full cone angle in degrees to the cosine of its
// half angle.
func halfAngleCos(angleDeg float64) float64 {
	return math.Cos(angleDeg * math.Pi / 360)
}
