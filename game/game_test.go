package game

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/systems"
	"github.com/pthm-cable/sentinel/telemetry"
)

func newGame(t *testing.T, overlay string, opts Options) *Game {
	t.Helper()
	cfg, err := config.Parse([]byte(overlay))
	require.NoError(t, err)
	g, err := New(cfg, opts)
	require.NoError(t, err)
	return g
}

const corridor = `
world:
  map: |
    ########
    #G....I#
    ########
agents:
  intruder_route: [[6, 1]]
`

func TestNewDefaults(t *testing.T) {
	g := newGame(t, "", Options{Seed: 1})

	assert.Equal(t, 2, g.NumGuards())
	assert.Zero(t, g.Tick())
	assert.False(t, g.Caught())
	assert.Equal(t, -1, g.Catcher())
	assert.Equal(t, systems.TargetUnknown, g.Tracker().State())
	assert.True(t, g.Grid().IsTraversableWorld(g.IntruderPosition()))
	assert.NoError(t, g.Close(), "no output dir means nothing to close")
}

// TestSystemRegistryMatchesPhases verifies every timed phase has a label and
// the registry lists them in the order Step runs them.
func TestSystemRegistryMatchesPhases(t *testing.T) {
	g := newGame(t, "", Options{Seed: 1})

	all := g.registry.All()
	require.Len(t, all, len(telemetry.Phases))
	for i, phase := range telemetry.Phases {
		assert.Equal(t, phase, all[i].ID, "position %d", i)
		assert.NotEqual(t, phase, g.registry.Name(phase), "phase %q has no display name", phase)
	}
	assert.Equal(t, "unknown", g.registry.Name("unknown"))
}

func TestNewErrors(t *testing.T) {
	cfg, err := config.Parse([]byte("world:\n  map: |\n    #G..#\n"))
	require.NoError(t, err)
	_, err = New(cfg, Options{})
	assert.ErrorIs(t, err, ErrNoIntruder)

	cfg, err = config.Parse([]byte("agents:\n  intruder_route: [[0, 0]]\n"))
	require.NoError(t, err)
	_, err = New(cfg, Options{})
	assert.ErrorContains(t, err, "not traversable")

	cfg, err = config.Parse([]byte("agents:\n  spawns: [{x: 0, y: 0}]\n"))
	require.NoError(t, err)
	_, err = New(cfg, Options{})
	assert.ErrorContains(t, err, "guard spawn")
}

func TestMaxGuardsAndExtraSpawns(t *testing.T) {
	g := newGame(t, "agents:\n  spawns: [{x: 3, y: 3}]\n", Options{Seed: 1})
	assert.Equal(t, 3, g.NumGuards())

	g = newGame(t, "agents:\n  max_guards: 1\n", Options{Seed: 1})
	assert.Equal(t, 1, g.NumGuards())
}

// TestStepInvariants verifies agents stay on walkable cells and the belief
// map stays a distribution for a few hundred ticks.
func TestStepInvariants(t *testing.T) {
	g := newGame(t, "", Options{Seed: 7})

	for i := 0; i < 300 && g.Step(); i++ {
		require.Equal(t, int32(i+1), g.Tick())
		for j := 0; j < g.NumGuards(); j++ {
			require.True(t, g.Grid().IsTraversableWorld(g.GuardPosition(j)), "tick %d guard %d", g.Tick(), j)
			a := g.Awareness(j)
			require.True(t, a >= 0 && a <= 1, "awareness %v", a)
		}
		require.True(t, g.Grid().IsTraversableWorld(g.IntruderPosition()))

		sum := floats.Sum(g.Tracker().Belief().Values())
		if g.Tracker().IsKnown() {
			require.InDelta(t, 1.0, sum, 1e-6, "tick %d", g.Tick())
		} else {
			require.Zero(t, sum)
		}
	}
}

// TestCatchInCorridor verifies a guard in a straight corridor spots and
// catches a stationary intruder.
func TestCatchInCorridor(t *testing.T) {
	g := newGame(t, corridor, Options{Seed: 3})
	require.Equal(t, 1, g.NumGuards())

	g.Run(3000)

	require.True(t, g.Caught(), "not caught after %d ticks", g.Tick())
	assert.Equal(t, 0, g.Catcher())
	assert.False(t, g.Step(), "stepping after a catch does nothing")

	stats := g.Stats()
	require.Len(t, stats, 1)
	assert.True(t, stats[0].Caught)
	assert.Greater(t, stats[0].Distance, 0.0)
}

func TestDeterministicWithSeed(t *testing.T) {
	run := func() []string {
		g := newGame(t, "", Options{Seed: 11})
		g.Run(250)
		var out []string
		for i := 0; i < g.NumGuards(); i++ {
			out = append(out, fmt.Sprintf("%.6f", g.GuardPosition(i)))
		}
		return append(out, fmt.Sprintf("%.6f", g.IntruderPosition()))
	}
	assert.Equal(t, run(), run())
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	g := newGame(t, "", Options{Seed: 5, OutputDir: dir, StatsInterval: 10})

	g.Run(25)
	require.NoError(t, g.Close())

	files := []string{
		"config.yaml", "telemetry.csv", "perf.csv", "events.csv", "belief.csv",
		fmt.Sprintf("snapshot_%d.json", g.Tick()),
	}
	for _, name := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	back, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, g.cfg.Derived.MapRows, back.Derived.MapRows)
}
