package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sentinel/systems"
	"github.com/pthm-cable/sentinel/telemetry"
)

// agentState captures one agent for snapshots and logs.
func (g *Game) agentState(role string, index int, e ecs.Entity, f *systems.PathFollower, awareness float64) telemetry.AgentState {
	pos := g.posMap.Get(e)
	dest := f.Destination()
	return telemetry.AgentState{
		Role:      role,
		Index:     index,
		X:         pos.X,
		Y:         pos.Y,
		Heading:   g.rotMap.Get(e).Heading,
		PathState: f.State.String(),
		DestX:     dest.X,
		DestY:     dest.Y,
		Awareness: awareness,
	}
}

// logWorldState logs where every agent is and what it is doing.
func (g *Game) logWorldState() {
	lk := g.tracker.LastKnown()
	slog.Debug("world",
		"tick", g.tick,
		"target_state", lk.State.String(),
		"last_x", lk.Position.X,
		"last_y", lk.Position.Y,
		"resets", g.tracker.Resets,
	)
	for i, a := range g.guards {
		s := g.agentState("guard", i, a.entity, a.follower, g.Awareness(i))
		slog.Debug("guard",
			"tick", g.tick,
			"guard", i,
			"x", s.X,
			"y", s.Y,
			"state", s.PathState,
			"halted", a.follower.Halted(),
			"awareness", s.Awareness,
		)
	}
	perf := g.perf.Stats()
	for _, phase := range telemetry.Phases {
		if avg, ok := perf.PhaseAvg[phase]; ok {
			slog.Debug("system", "name", g.registry.Name(phase), "avg_us", avg.Microseconds(), "pct", perf.PhasePct[phase])
		}
	}
}
