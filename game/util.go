package game

import "math"

// normalizeAngle wraps angle to [-pi, pi] with single-step correction.
// Safe when angle changes are bounded (heading += small_delta per tick).
func normalizeAngle(a float64) float64 {
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
