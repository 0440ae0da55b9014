package lattice

import (
	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
)

// Drift is a field-free region.
type Drift struct {
	base
}

// NewDrift returns a drift of length l.
func NewDrift(id string, l float64) *Drift {
	return &Drift{base{id: id, hardware: id, length: l}}
}

// TransferMap returns the drift map; z' is the relative momentum deviation,
// so the longitudinal slip is l/γ².
func (d *Drift) TransferMap(p probe.Probe, l float64) (beam.PhaseMatrix, error) {
	return driftMap(l, p.Gamma()), nil
}

// RequiresSubSteps reports true; drifts are always sub-stepped.
func (d *Drift) RequiresSubSteps() bool { return true }

func driftMap(l, gamma float64) beam.PhaseMatrix {
	m := beam.Identity()
	m.Set(beam.X, beam.Xp, l)
	m.Set(beam.Y, beam.Yp, l)
	m.Set(beam.Z, beam.Zp, l/(gamma*gamma))
	return m
}
