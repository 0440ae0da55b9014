package probe

import (
	"github.com/banshee-data/envtrack/internal/beam"
)

// State is one snapshot of a probe.
type State struct {
	ElementID     string
	HardwareID    string
	Position      float64
	Time          float64
	KineticEnergy float64
	Phase         float64

	Twiss         beam.Twiss3D
	BetatronPhase [3]float64
	Centroid      beam.PhaseVector
	// Covariance is the 7×7 second-moment matrix in row-major order.
	Covariance []float64
}

// Trajectory is the ordered history of probe snapshots.
type Trajectory struct {
	states []State
}

// Append adds s to the end of the history.
func (t *Trajectory) Append(s State) { t.states = append(t.states, s) }

// Len returns the number of snapshots.
func (t *Trajectory) Len() int { return len(t.states) }

// States returns the snapshots. The slice must not be modified.
func (t *Trajectory) States() []State { return t.states }

// Final returns the last snapshot, or false if the history is empty.
func (t *Trajectory) Final() (State, bool) {
	if len(t.states) == 0 {
		return State{}, false
	}
	return t.states[len(t.states)-1], true
}

// StatesForElement returns every snapshot taken inside element id.
func (t *Trajectory) StatesForElement(id string) []State {
	var out []State
	for _, s := range t.states {
		if s.ElementID == id {
			out = append(out, s)
		}
	}
	return out
}

// Reset clears the history.
func (t *Trajectory) Reset() { t.states = t.states[:0] }

// Clone returns a deep copy.
func (t *Trajectory) Clone() *Trajectory {
	out := &Trajectory{states: make([]State, len(t.states))}
	for i, s := range t.states {
		s.Covariance = append([]float64(nil), s.Covariance...)
		out.states[i] = s
	}
	return out
}
