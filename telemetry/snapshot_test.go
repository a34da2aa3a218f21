package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	ledger := NewGuardLedger(2)
	ledger.RecordMove(0, 120)
	ledger.RecordAwareness(1, 0.75, true)
	ledger.RecordCatch(1)

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		RNGSeed: 42,
		Tick:    1000,
		Caught:  true,
		Target: TargetSnapshot{
			ID:    "5f0c6d1e-8f7a-4c39-9a51-1f3b7d2e4a60",
			State: "immediate",
			LastX: 450, LastY: 550,
			VelX: 10,
		},
		Agents: []AgentState{
			{Role: "guard", Index: 0, X: 150, Y: 250, Heading: 1.2, PathState: "active", DestX: 450, DestY: 550, Awareness: 0.5},
			{Role: "intruder", Index: 0, X: 450, Y: 550, PathState: "active"},
		},
		Guards: ledger.All(),
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if filepath.Base(path) != "snapshot_1000.json" {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if diff := cmp.Diff(snapshot, loaded); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSnapshotVersionMismatch(t *testing.T) {
	path, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion + 1}, t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}

func TestGuardLedger(t *testing.T) {
	l := NewGuardLedger(2)
	l.RecordSearch(0, false)
	l.RecordSearch(0, true)
	l.RecordWander(1)
	l.RecordAwareness(0, 0.3, false)
	l.RecordAwareness(0, 0.2, true)
	l.RecordMove(5, 10) // out of range is ignored

	g := l.Get(0)
	if g.Searches != 2 || g.PathFailures != 1 {
		t.Errorf("searches = %d, failures = %d", g.Searches, g.PathFailures)
	}
	if g.PeakAware != 0.3 || g.SightTicks != 1 {
		t.Errorf("peak = %v, sight ticks = %d", g.PeakAware, g.SightTicks)
	}
	if l.Get(1).Wanders != 1 || l.Get(-1) != nil || l.Count() != 2 {
		t.Error("ledger bookkeeping wrong")
	}
}
