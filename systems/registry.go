package systems

// SystemInfo describes one phase of a simulation step.
type SystemInfo struct {
	ID          string // Perf phase key
	Name        string
	Description string
	Category    string
}

// SystemRegistry lists the step phases in tick order so perf output and
// logs use the same labels.
type SystemRegistry struct {
	phases []SystemInfo
	byID   map[string]int
}

// NewSystemRegistry returns the registry of built-in phases.
func NewSystemRegistry() *SystemRegistry {
	r := &SystemRegistry{byID: make(map[string]int)}
	for _, info := range []SystemInfo{
		{ID: "perception", Name: "Perception", Description: "Updates awareness from vision cones and sightlines", Category: "perception"},
		{ID: "occupancy", Name: "Occupancy", Description: "Updates and diffuses target belief maps", Category: "perception"},
		{ID: "decision", Name: "Decision", Description: "Chase, flank, search or patrol per guard, replanning follower paths", Category: "decision"},
		{ID: "movement", Name: "Movement", Description: "Moves agents toward their aim points", Category: "movement"},
		{ID: "bodies", Name: "Bodies", Description: "Rebuilds the body grid and checks for a catch", Category: "core"},
		{ID: "telemetry", Name: "Telemetry", Description: "Collects per-tick stats", Category: "internal"},
	} {
		r.Register(info)
	}
	return r
}

// Register adds or replaces a phase. New phases go last.
func (r *SystemRegistry) Register(info SystemInfo) {
	if i, ok := r.byID[info.ID]; ok {
		r.phases[i] = info
		return
	}
	r.byID[info.ID] = len(r.phases)
	r.phases = append(r.phases, info)
}

// Name returns the display name for id, or id itself when unknown.
func (r *SystemRegistry) Name(id string) string {
	if i, ok := r.byID[id]; ok {
		return r.phases[i].Name
	}
	return id
}

// All returns the phases in tick order.
func (r *SystemRegistry) All() []SystemInfo {
	return r.phases
}
