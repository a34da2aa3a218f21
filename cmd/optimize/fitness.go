package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/game"
	"github.com/pthm-cable/sentinel/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestGuards  []telemetry.GuardStats
	lastCatches int // seeds caught in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestGuards returns the guard stats from the best evaluation.
func (fe *FitnessEvaluator) BestGuards() []telemetry.GuardStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestGuards
}

// LastCatches returns how many seeds ended in a catch in the most recent
// evaluation.
func (fe *FitnessEvaluator) LastCatches() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastCatches
}

// runResult holds the results from a single simulation run.
type runResult struct {
	ticks       int32 // ticks until the catch, or maxTicks
	caught      bool
	windowStats []telemetry.WindowStats
	guards      []telemetry.GuardStats
	err         error
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is mean ticks to catch, shaved by up to 10% for runs that kept
// the intruder in sight.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	var catches int
	bestSeed := math.Inf(1)
	var bestGuards []telemetry.GuardStats
	for _, r := range results {
		if r.err != nil {
			// Config the game rejects is never a good candidate.
			return math.Inf(1)
		}
		f := fe.computeFitness(r)
		total += f
		if r.caught {
			catches++
		}
		if f < bestSeed {
			bestSeed = f
			bestGuards = r.guards
		}
	}
	avg := total / float64(len(results))

	fe.mu.Lock()
	if avg < fe.bestFitness {
		fe.bestFitness = avg
		fe.bestGuards = bestGuards
	}
	fe.lastCatches = catches
	fe.mu.Unlock()

	return avg
}

// runSimulation executes a single headless run until the catch or maxTicks.
// cfg is shared read-only between seeds.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) *runResult {
	result := &runResult{}
	g, err := game.New(cfg, game.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		result.err = err
		return result
	}

	g.Run(fe.maxTicks)
	result.ticks = g.Tick()
	result.caught = g.Caught()
	result.guards = g.Stats()
	_ = g.Close()
	return result
}

// computeFitness scores one run (lower = better).
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	ticks := float64(r.ticks)
	if !r.caught {
		ticks = float64(fe.maxTicks)
	}
	return ticks * (1.0 - 0.1*contactQuality(r.windowStats))
}

// contactQuality is the fraction of ticks the target was seen, in [0, 1].
func contactQuality(windows []telemetry.WindowStats) float64 {
	var seen, all int
	for _, w := range windows {
		seen += w.ImmediateTicks
		all += w.ImmediateTicks + w.HiddenTicks + w.UnknownTicks
	}
	if all == 0 {
		return 0
	}
	return float64(seen) / float64(all)
}
