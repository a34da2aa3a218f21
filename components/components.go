// Package components defines ECS components for the host simulation.
package components

// Role distinguishes agents in logs and telemetry.
type Role uint8

const (
	RoleGuard Role = iota
	RoleIntruder
)

func (r Role) String() string {
	switch r {
	case RoleGuard:
		return "guard"
	case RoleIntruder:
		return "intruder"
	default:
		return "unknown"
	}
}

// Guard marks an AI-controlled searcher. Index points into the host's
// per-guard controller table.
type Guard struct {
	Index int
}

// Intruder marks the tracked target. Waypoint is the index of the route
// point it is currently heading for.
type Intruder struct {
	Waypoint int
}
