package telemetry

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks     int32
	windowStartTick int32

	// Target state occupancy for the current window
	immediateTicks int
	hiddenTicks    int
	unknownTicks   int

	sightings    int
	contactsLost int
	pathFailures int
	resets       int
	catches      int

	awarenessSum     float64
	awarenessSamples int
}

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// Record counts an event.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventSighting:
		c.sightings++
	case EventContactLost:
		c.contactsLost++
	case EventPathFailure:
		c.pathFailures++
	case EventBeliefReset:
		c.resets++
	case EventCatch:
		c.catches++
	}
}

// RecordTick counts one tick in the given target state ("immediate",
// "hidden" or "unknown") and samples guard awareness.
func (c *Collector) RecordTick(state string, awareness []float64) {
	switch state {
	case "immediate":
		c.immediateTicks++
	case "hidden":
		c.hiddenTicks++
	default:
		c.unknownTicks++
	}
	for _, a := range awareness {
		c.awarenessSum += a
	}
	c.awarenessSamples += len(awareness)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// SearchState is the end-of-window picture the host hands to Flush.
type SearchState struct {
	TargetState    string
	Belief         []float64 // belief values over all cells
	GuardDistances []float64 // world distance from each guard to the intruder
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, s SearchState) WindowStats {
	var meanAwareness float64
	if c.awarenessSamples > 0 {
		meanAwareness = c.awarenessSum / float64(c.awarenessSamples)
	}
	distMean, distP10, distP50, distP90 := ComputeSpreadStats(s.GuardDistances)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		TargetState:     s.TargetState,

		ImmediateTicks: c.immediateTicks,
		HiddenTicks:    c.hiddenTicks,
		UnknownTicks:   c.unknownTicks,

		Sightings:    c.sightings,
		ContactsLost: c.contactsLost,
		PathFailures: c.pathFailures,
		BeliefResets: c.resets,
		Catches:      c.catches,

		MeanAwareness: meanAwareness,
		BeliefEntropy: BeliefEntropy(s.Belief),
		BeliefPeak:    BeliefPeak(s.Belief),
		BeliefSupport: BeliefSupport(s.Belief),

		DistMean: distMean,
		DistP10:  distP10,
		DistP50:  distP50,
		DistP90:  distP90,
	}

	*c = Collector{windowTicks: c.windowTicks, windowStartTick: currentTick}
	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowTicks
}
