package telemetry

// GuardStats tracks per-guard statistics over a run.
type GuardStats struct {
	Index        int     `json:"index"`
	Distance     float64 `json:"distance"` // world units travelled
	SightTicks   int     `json:"sight_ticks"`
	PeakAware    float64 `json:"peak_awareness"`
	Searches     int     `json:"searches"` // position queries issued
	PathFailures int     `json:"path_failures"`
	Wanders      int     `json:"wanders"`
	Caught       bool    `json:"caught"`
}

// GuardLedger manages per-guard statistics.
type GuardLedger struct {
	stats []*GuardStats
}

// NewGuardLedger creates a ledger for n guards.
func NewGuardLedger(n int) *GuardLedger {
	l := &GuardLedger{stats: make([]*GuardStats, n)}
	for i := range l.stats {
		l.stats[i] = &GuardStats{Index: i}
	}
	return l
}

// Get returns the stats for guard i, or nil if out of range.
func (l *GuardLedger) Get(i int) *GuardStats {
	if i < 0 || i >= len(l.stats) {
		return nil
	}
	return l.stats[i]
}

// RecordMove adds travelled distance.
func (l *GuardLedger) RecordMove(i int, d float64) {
	if s := l.Get(i); s != nil {
		s.Distance += d
	}
}

// RecordAwareness tracks peak awareness and ticks with a clear sightline.
func (l *GuardLedger) RecordAwareness(i int, awareness float64, clear bool) {
	if s := l.Get(i); s != nil {
		s.PeakAware = max(s.PeakAware, awareness)
		if clear {
			s.SightTicks++
		}
	}
}

// RecordSearch counts a position query and whether it failed.
func (l *GuardLedger) RecordSearch(i int, failed bool) {
	if s := l.Get(i); s != nil {
		s.Searches++
		if failed {
			s.PathFailures++
		}
	}
}

// RecordWander counts a patrol destination pick.
func (l *GuardLedger) RecordWander(i int) {
	if s := l.Get(i); s != nil {
		s.Wanders++
	}
}

// RecordCatch marks the guard that caught the intruder.
func (l *GuardLedger) RecordCatch(i int) {
	if s := l.Get(i); s != nil {
		s.Caught = true
	}
}

// All returns a copy of every guard's stats in index order.
func (l *GuardLedger) All() []GuardStats {
	out := make([]GuardStats, len(l.stats))
	for i, s := range l.stats {
		out[i] = *s
	}
	return out
}

// Count returns the number of tracked guards.
func (l *GuardLedger) Count() int {
	return len(l.stats)
}
