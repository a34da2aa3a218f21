package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/sentinel/config"
	"github.com/pthm-cable/sentinel/game"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsInterval := flag.Int("stats-interval", 0, "Ticks per stats window (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, belief map and snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = until caught)")
	writeConfig := flag.String("write-config", "", "Write the effective config to this path and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *writeConfig != "" {
		if err := cfg.WriteYAML(*writeConfig); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", *writeConfig)
		return
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.New(cfg, game.Options{
		Seed:          rngSeed,
		OutputDir:     *outputDir,
		StatsInterval: *statsInterval,
		LogStats:      *logStats,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"guards", g.NumGuards(),
	)

	start := time.Now()
	g.Run(*maxTicks)

	if g.Caught() {
		slog.Info("intruder caught", "tick", g.Tick(), "guard", g.Catcher(), "elapsed", time.Since(start))
	} else {
		slog.Info("max ticks reached", "tick", g.Tick(), "elapsed", time.Since(start))
	}
	for _, s := range g.Stats() {
		slog.Info("guard summary", "stats", s)
	}

	if err := g.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}
}
