package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated search statistics for a tick window.
type WindowStats struct {
	WindowStartTick int32  `csv:"-"`
	WindowEndTick   int32  `csv:"window_end"`
	TargetState     string `csv:"target_state"` // at window end

	// Ticks spent in each target state
	ImmediateTicks int `csv:"immediate_ticks"`
	HiddenTicks    int `csv:"hidden_ticks"`
	UnknownTicks   int `csv:"unknown_ticks"`

	// Events during window
	Sightings    int `csv:"sightings"`
	ContactsLost int `csv:"contacts_lost"`
	PathFailures int `csv:"path_failures"`
	BeliefResets int `csv:"belief_resets"`
	Catches      int `csv:"catches"`

	MeanAwareness float64 `csv:"mean_awareness"`

	// Belief map shape at window end
	BeliefEntropy float64 `csv:"belief_entropy"` // nats
	BeliefPeak    float64 `csv:"belief_peak"`
	BeliefSupport int     `csv:"belief_support"` // cells with non-zero belief

	// Guard to intruder distance (sampled at window end)
	DistMean float64 `csv:"dist_mean"`
	DistP10  float64 `csv:"dist_p10"`
	DistP50  float64 `csv:"dist_p50"`
	DistP90  float64 `csv:"dist_p90"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpreadStats calculates mean and percentiles from values.
func ComputeSpreadStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// BeliefEntropy returns the Shannon entropy of a belief distribution in
// nats. An empty or all-zero map has entropy 0.
func BeliefEntropy(belief []float64) float64 {
	if len(belief) == 0 || floats.Sum(belief) <= 0 {
		return 0
	}
	return stat.Entropy(belief)
}

// BeliefPeak returns the largest belief value, or 0 for an empty map.
func BeliefPeak(belief []float64) float64 {
	if len(belief) == 0 {
		return 0
	}
	return floats.Max(belief)
}

// BeliefSupport counts cells with non-zero belief.
func BeliefSupport(belief []float64) int {
	n := 0
	for _, v := range belief {
		if v > 0 {
			n++
		}
	}
	return n
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.String("target_state", s.TargetState),
		slog.Int("immediate_ticks", s.ImmediateTicks),
		slog.Int("hidden_ticks", s.HiddenTicks),
		slog.Int("unknown_ticks", s.UnknownTicks),
		slog.Int("sightings", s.Sightings),
		slog.Int("contacts_lost", s.ContactsLost),
		slog.Int("path_failures", s.PathFailures),
		slog.Int("belief_resets", s.BeliefResets),
		slog.Int("catches", s.Catches),
		slog.Float64("mean_awareness", s.MeanAwareness),
		slog.Float64("belief_entropy", s.BeliefEntropy),
		slog.Float64("belief_peak", s.BeliefPeak),
		slog.Int("belief_support", s.BeliefSupport),
		slog.Float64("dist_mean", s.DistMean),
		slog.Float64("dist_p50", s.DistP50),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
