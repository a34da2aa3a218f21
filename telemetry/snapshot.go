package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the end state of a run.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	Tick    int32 `json:"tick"`
	Caught  bool  `json:"caught"`

	Target TargetSnapshot `json:"target"`
	Agents []AgentState   `json:"agents"`
	Guards []GuardStats   `json:"guards"`
}

// TargetSnapshot is the tracker's view of the intruder.
type TargetSnapshot struct {
	ID     string  `json:"id"`
	State  string  `json:"state"`
	LastX  float64 `json:"last_x"`
	LastY  float64 `json:"last_y"`
	VelX   float64 `json:"vel_x"`
	VelY   float64 `json:"vel_y"`
	Resets int     `json:"resets"`
}

// AgentState holds one agent's position and intent.
type AgentState struct {
	Role      string  `json:"role"`
	Index     int     `json:"index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Heading   float64 `json:"heading"`
	PathState string  `json:"path_state"`
	DestX     float64 `json:"dest_x"`
	DestY     float64 `json:"dest_y"`
	Awareness float64 `json:"awareness,omitempty"`
}

// SaveSnapshot writes a snapshot to dir and returns the file path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d.json", snapshot.Tick)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
