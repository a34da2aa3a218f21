package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/telemetry"
)

func TestParamVectorMatchesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	pv := NewParamVector()
	assert.InDeltaSlice(t, pv.DefaultVector(), pv.ExtractFromConfig(cfg), 1e-9)
}

func TestParamVectorApplyRoundTrip(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	pv := NewParamVector()
	x := pv.Denormalize([]float64{0, 0.5, 1, 0.25, 0.75, 2})
	pv.ApplyToConfig(cfg, x)

	got := pv.ExtractFromConfig(cfg)
	assert.InDeltaSlice(t, pv.Clamp(x), got, 1e-9)
	assert.Equal(t, pv.Specs[5].Max, cfg.Spatial.SampleDimensions, "out-of-range values clamp")
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.25, 0.75, 1}, pv.Normalize(got), 1e-9)
}

func TestContactQuality(t *testing.T) {
	assert.Zero(t, contactQuality(nil))
	q := contactQuality([]telemetry.WindowStats{
		{ImmediateTicks: 10, HiddenTicks: 20, UnknownTicks: 30},
		{ImmediateTicks: 20, UnknownTicks: 20},
	})
	assert.InDelta(t, 0.3, q, 1e-9)
}

func TestComputeFitnessPenalizesMisses(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 1000, []int64{1}, nil)
	assert.Equal(t, 1000.0, fe.computeFitness(&runResult{ticks: 400}))
	assert.Equal(t, 400.0, fe.computeFitness(&runResult{ticks: 400, caught: true}))
}
