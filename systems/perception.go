package systems

import (
	"github.com/google/uuid"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is an agent's kinematic snapshot for one tick.
type Pose struct {
	Entity   ecs.Entity
	Position r2.Vec
	Velocity r2.Vec
	Forward  r2.Vec // Facing direction, need not be unit length
}

// VisionParams describes a vision cone.
type VisionParams struct {
	Angle    float64 // Full cone angle in degrees
	Distance float64 // World units
}

// DefaultVisionParams returns a 90 degree, 1000 unit cone.
func DefaultVisionParams() VisionParams {
	return VisionParams{Angle: 90, Distance: 1000}
}

// Sees reports whether p is inside the cone and range of an observer at
// self. Occlusion is not tested.
func (v VisionParams) Sees(self Pose, p r2.Vec) bool {
	dir := r2.Sub(p, self.Position)
	if r2.Dot(dir, dir) > v.Distance*v.Distance {
		return false
	}
	return withinCone(self.Forward, dir, halfAngleCos(v.Angle))
}

// TargetData is what one observer knows about one target.
type TargetData struct {
	Awareness float64 // [0, 1]; 1 means the target is in direct view
	ClearLOS  bool    // Last update had an unobstructed sightline
}

// Perception accumulates awareness of targets for one observer.
type Perception struct {
	Vision VisionParams
	Gain   float64 // Added per update with a clear sightline
	Decay  float64 // Removed per update otherwise

	targets map[uuid.UUID]*TargetData
}

// NewPerception creates a perception with the given vision and rates.
func NewPerception(vision VisionParams, gain, decay float64) *Perception {
	return &Perception{
		Vision:  vision,
		Gain:    gain,
		Decay:   decay,
		targets: make(map[uuid.UUID]*TargetData),
	}
}

// UpdateTarget refreshes awareness of the target id at pose target.
// Inside the cone and range the sightline is tested against occ, ignoring
// both ends; a clear line grows awareness by Gain and anything else decays
// it by Decay. Awareness stays in [0, 1].
func (p *Perception) UpdateTarget(self Pose, id uuid.UUID, target Pose, occ Occluder) *TargetData {
	td, ok := p.targets[id]
	if !ok {
		td = &TargetData{}
		p.targets[id] = td
	}

	td.ClearLOS = false
	if p.Vision.Sees(self, target.Position) {
		td.ClearLOS = occ == nil || !occ.Occluded(self.Position, target.Position, self.Entity, target.Entity)
	}

	if td.ClearLOS {
		td.Awareness += p.Gain
	} else {
		td.Awareness -= p.Decay
	}
	td.Awareness = clamp01(td.Awareness)
	return td
}

// Target returns the data for id, if any update has created it.
func (p *Perception) Target(id uuid.UUID) (TargetData, bool) {
	td, ok := p.targets[id]
	if !ok {
		return TargetData{}, false
	}
	return *td, true
}

// Awareness returns the awareness of id, 0 if unseen.
func (p *Perception) Awareness(id uuid.UUID) float64 {
	if td, ok := p.targets[id]; ok {
		return td.Awareness
	}
	return 0
}

// Observer builds the tracker-facing view of this perception.
func (p *Perception) Observer(self Pose, id uuid.UUID) Observer {
	return Observer{
		Pose:      self,
		Vision:    p.Vision,
		Awareness: p.Awareness(id),
	}
}

// CurrentTarget returns the first tracker whose target is known, or nil.
func CurrentTarget(trackers []*TargetTracker) *TargetTracker {
	for _, t := range trackers {
		if t.IsKnown() {
			return t
		}
	}
	return nil
}
