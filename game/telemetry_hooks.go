package game

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/systems"
	"github.com/pthm-cable/sentinel/telemetry"
)

// emit counts an event, logs it and writes it to events.csv.
func (g *Game) emit(e telemetry.Event) {
	g.collector.Record(e)
	if g.logStats {
		e.LogEvent()
	}
	if err := g.output.WriteEvent(e); err != nil {
		slog.Error("failed to write event", "error", err)
	}
}

// recordTick samples the per-tick counters.
func (g *Game) recordTick(observers []systems.Observer) {
	awareness := make([]float64, len(observers))
	for i, o := range observers {
		awareness[i] = o.Awareness
	}
	g.collector.RecordTick(g.tracker.State().String(), awareness)
}

// flushTelemetry closes the stats window when it is due, or when the run
// ends with a catch.
func (g *Game) flushTelemetry() {
	if !g.caught && !g.collector.ShouldFlush(g.tick) {
		return
	}

	intruder := g.posMap.Get(g.intruder).Vec()
	dists := make([]float64, len(g.guards))
	for i, a := range g.guards {
		dists[i] = r2.Norm(r2.Sub(g.posMap.Get(a.entity).Vec(), intruder))
	}

	stats := g.collector.Flush(g.tick, telemetry.SearchState{
		TargetState:    g.tracker.State().String(),
		Belief:         g.tracker.Belief().Values(),
		GuardDistances: dists,
	})
	perfStats := g.perf.Stats()
	if g.onStats != nil {
		g.onStats(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
		g.logWorldState()
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// createSnapshot builds a snapshot from the current state.
func (g *Game) createSnapshot() *telemetry.Snapshot {
	lk := g.tracker.LastKnown()
	snapshot := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		RNGSeed: g.seed,
		Tick:    g.tick,
		Caught:  g.caught,
		Target: telemetry.TargetSnapshot{
			ID:     g.tracker.ID().String(),
			State:  lk.State.String(),
			LastX:  lk.Position.X,
			LastY:  lk.Position.Y,
			VelX:   lk.Velocity.X,
			VelY:   lk.Velocity.Y,
			Resets: g.tracker.Resets,
		},
		Guards: g.ledger.All(),
	}

	for i, a := range g.guards {
		snapshot.Agents = append(snapshot.Agents, g.agentState("guard", i, a.entity, a.follower, g.Awareness(i)))
	}
	snapshot.Agents = append(snapshot.Agents, g.agentState("intruder", 0, g.intruder, g.intruderFollower, 0))
	return snapshot
}
