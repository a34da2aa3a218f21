package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/sentinel/components"
	"github.com/pthm-cable/sentinel/systems"
	"github.com/pthm-cable/sentinel/telemetry"
)

// Step advances the simulation by one tick. It returns false once the
// intruder has been caught; further calls do nothing.
func (g *Game) Step() bool {
	if g.caught {
		return false
	}
	g.tick++
	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhasePerception)
	observers := g.updatePerception()

	g.perf.StartPhase(telemetry.PhaseOccupancy)
	g.updateOccupancy(observers)

	g.perf.StartPhase(telemetry.PhaseDecision)
	g.updateDecisions()
	g.updateIntruder()

	g.perf.StartPhase(telemetry.PhaseMovement)
	g.updateMovement()

	g.perf.StartPhase(telemetry.PhaseBodies)
	g.updateBodies()
	g.checkCatch()

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.recordTick(observers)
	g.flushTelemetry()

	g.perf.EndTick()
	return !g.caught
}

// updateBodies rebuilds the body grid from every entity with a Body.
func (g *Game) updateBodies() {
	g.bodies.Clear()
	query := g.bodyFilter.Query()
	for query.Next() {
		pos, body := query.Get()
		g.bodies.Insert(query.Entity(), pos.Vec(), body.Radius)
	}
}

// updatePerception refreshes each guard's awareness of the intruder and
// returns the guards as tracker observers.
func (g *Game) updatePerception() []systems.Observer {
	target := g.pose(g.intruder)
	id := g.tracker.ID()

	observers := make([]systems.Observer, 0, len(g.guards))
	for i, a := range g.guards {
		self := g.pose(a.entity)
		td := a.perception.UpdateTarget(self, id, target, g.occluder)
		g.ledger.RecordAwareness(i, td.Awareness, td.ClearLOS)
		observers = append(observers, a.perception.Observer(self, id))
	}
	return observers
}

// updateOccupancy ticks the tracker and emits state change events.
func (g *Game) updateOccupancy(observers []systems.Observer) {
	truth := g.pose(g.intruder)
	prev := g.tracker.State()
	state := g.tracker.Tick(observers, truth, g.occluder)

	switch {
	case state == systems.TargetImmediate && prev != systems.TargetImmediate:
		g.emit(telemetry.NewSightingEvent(g.tick, truth.Position))
	case state == systems.TargetHidden && prev == systems.TargetImmediate:
		g.emit(telemetry.NewContactLostEvent(g.tick, g.tracker.LastKnown().Position))
	}
	if g.tracker.Resets > g.lastResets {
		g.lastResets = g.tracker.Resets
		g.emit(telemetry.NewBeliefResetEvent(g.tick))
	}
}

// updateDecisions picks each guard's aim point from the target state:
// chase or flank a seen target, search the belief map for a hidden one,
// patrol when nothing is known.
func (g *Game) updateDecisions() {
	state := systems.TargetUnknown
	if t := systems.CurrentTarget([]*systems.TargetTracker{g.tracker}); t != nil {
		state = t.State()
	}
	target := g.pose(g.intruder)

	chaser := -1
	if state == systems.TargetImmediate {
		chaser = g.nearestGuard(target.Position)
	}

	for i, a := range g.guards {
		self := g.pose(a.entity)
		switch state {
		case systems.TargetImmediate:
			if a.flank == nil || i == chaser {
				g.chase(a, self.Position, target.Position)
				continue
			}
			g.choose(i, a.flank, systems.EvalContext{
				Grid:     g.grid,
				Self:     self,
				Target:   target,
				Occluder: g.occluder,
				Belief:   g.tracker.Belief(),
			})
		case systems.TargetHidden:
			lk := g.tracker.LastKnown()
			g.choose(i, a.search, systems.EvalContext{
				Grid:     g.grid,
				Self:     self,
				Target:   systems.Pose{Entity: g.intruder, Position: lk.Position, Velocity: lk.Velocity},
				Occluder: g.occluder,
				Belief:   g.tracker.Belief(),
			})
		default:
			g.patrol(i, a.follower, self.Position)
		}
	}
}

// nearestGuard returns the index of the guard closest to p.
func (g *Game) nearestGuard(p r2.Vec) int {
	best, bestD := -1, math.Inf(1)
	for i, a := range g.guards {
		d := r2.Norm(r2.Sub(g.posMap.Get(a.entity).Vec(), p))
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// chase plans toward the target. Inside arrival range, or when the route
// is too short to follow and the way is clear, the guard heads straight for
// it so it can close to catch distance.
func (g *Game) chase(a *guardAgent, pos, target r2.Vec) {
	f := a.follower
	state := f.SetDestination(pos, target)
	direct := state == systems.PathFinished ||
		(state == systems.PathActive && !f.Halted() && f.Direction(pos) == (r2.Vec{}) && g.grid.WalkableLine(pos, target))
	if direct {
		f.SetStep(systems.PathStep{Point: target, Cell: g.grid.CellAt(target)}, target, systems.PathActive)
	}
}

// choose runs a spatial query for guard i. A failure keeps the previous aim
// point; only the first failure of a streak is reported as an event.
func (g *Game) choose(i int, s *systems.SpatialComponent, ctx systems.EvalContext) {
	_, err := s.ChoosePosition(ctx, true)
	g.ledger.RecordSearch(i, err != nil)
	a := g.guards[i]
	if err != nil {
		if !a.failing {
			g.emit(telemetry.NewPathFailureEvent(g.tick, i, ctx.Self.Position, err))
		}
		a.failing = true
		return
	}
	a.failing = false
}

// patrol keeps f walking toward a random accessible destination, picking a
// new one whenever the last is reached or unreachable.
func (g *Game) patrol(i int, f *systems.PathFollower, pos r2.Vec) {
	if f.State == systems.PathActive && !f.Halted() {
		if f.Refresh(pos) == systems.PathActive && !f.Halted() && f.Direction(pos) != (r2.Vec{}) {
			return
		}
	}
	dest, ok := f.RandomAccessiblePosition(g.rng, pos, g.cfg.Path.WanderRadius, g.cfg.Path.WanderAttempts)
	if !ok {
		return
	}
	f.SetDestination(pos, dest)
	if i >= 0 {
		g.ledger.RecordWander(i)
	}
}

// updateIntruder walks the intruder along its route, looping at the end.
// Without a route it wanders.
func (g *Game) updateIntruder() {
	pos := g.posMap.Get(g.intruder).Vec()
	f := g.intruderFollower
	if len(g.route) == 0 {
		g.patrol(-1, f, pos)
		return
	}

	in := g.intrMap.Get(g.intruder)
	if f.State == systems.PathNone {
		f.SetDestination(pos, g.route[in.Waypoint])
		return
	}
	state := f.Refresh(pos)
	// A route too short to follow counts as arrival.
	stalled := state == systems.PathActive && f.Direction(pos) == (r2.Vec{})
	if state == systems.PathFinished || state == systems.PathInvalid || f.Halted() || stalled {
		in.Waypoint = (in.Waypoint + 1) % len(g.route)
		f.SetDestination(pos, g.route[in.Waypoint])
	}
}

// updateMovement moves every agent toward its follower's aim point.
func (g *Game) updateMovement() {
	for i, a := range g.guards {
		moved := g.moveAgent(a.entity, a.follower)
		g.ledger.RecordMove(i, moved)
		if moved == 0 {
			rot := g.rotMap.Get(a.entity)
			rot.Heading = normalizeAngle(rot.Heading + IdleTurnRate)
		}
	}
	g.moveAgent(g.intruder, g.intruderFollower)
}

// moveAgent steps e toward f's aim point at no more than its body speed and
// returns the distance moved. A step into a blocked cell slides along one
// axis if it can, otherwise the agent stays put.
func (g *Game) moveAgent(e ecs.Entity, f *systems.PathFollower) float64 {
	pos := g.posMap.Get(e)
	vel := g.velMap.Get(e)
	p := pos.Vec()

	dir := f.Direction(p)
	if dir == (r2.Vec{}) {
		*vel = components.Velocity{}
		return 0
	}
	body := g.bodyMap.Get(e)
	remaining := r2.Norm(r2.Sub(f.Step().Point, p))
	want := r2.Scale(min(body.MaxSpeed, remaining), dir)
	dx, dy := body.Step(want.X, want.Y)

	next := r2.Add(p, r2.Vec{X: dx, Y: dy})
	if !g.grid.IsTraversableWorld(next) {
		switch {
		case g.grid.IsTraversableWorld(r2.Vec{X: p.X + dx, Y: p.Y}):
			dy = 0
		case g.grid.IsTraversableWorld(r2.Vec{X: p.X, Y: p.Y + dy}):
			dx = 0
		default:
			*vel = components.Velocity{}
			return 0
		}
		next = r2.Add(p, r2.Vec{X: dx, Y: dy})
	}

	pos.Set(next)
	*vel = components.Velocity{X: dx, Y: dy}
	g.rotMap.Get(e).Face(dir)
	return math.Hypot(dx, dy)
}

// checkCatch ends the run when a guard body is within catch radius of the
// intruder.
func (g *Game) checkCatch() {
	p := g.posMap.Get(g.intruder).Vec()
	g.neighbors = g.bodies.QueryRadiusInto(g.neighbors[:0], p, g.cfg.Agents.CatchRadius, g.intruder)
	for _, n := range g.neighbors {
		if g.bodyMap.Get(n.E).Role != components.RoleGuard {
			continue
		}
		g.caught = true
		g.catcher = g.guardMap.Get(n.E).Index
		g.ledger.RecordCatch(g.catcher)
		g.emit(telemetry.NewCatchEvent(g.tick, g.catcher, p))
		return
	}
}
