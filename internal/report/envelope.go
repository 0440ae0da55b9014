// Package report renders and exports probe trajectories: PNG envelope plots,
// interactive HTML charts and a length-prefixed protobuf export.
package report

import (
	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
	"github.com/banshee-data/envtrack/internal/units"
)

// Series is a trajectory reduced to plottable columns. Sizes are RMS beam
// sizes in mm, energies are in EnergyUnits.
type Series struct {
	Element     []string
	Position    []float64
	Size        [3][]float64
	Energy      []float64
	EnergyUnits string
}

// NewSeries reduces states to plot columns, converting kinetic energy into
// energyUnits (eV when the unit is not recognised).
func NewSeries(states []probe.State, energyUnits string) Series {
	if !units.IsValid(energyUnits) {
		energyUnits = units.EV
	}
	s := Series{
		Element:     make([]string, 0, len(states)),
		Position:    make([]float64, 0, len(states)),
		Energy:      make([]float64, 0, len(states)),
		EnergyUnits: energyUnits,
	}
	for i := range s.Size {
		s.Size[i] = make([]float64, 0, len(states))
	}
	for _, st := range states {
		s.Element = append(s.Element, st.ElementID)
		s.Position = append(s.Position, st.Position)
		s.Energy = append(s.Energy, units.ConvertEnergy(st.KineticEnergy, energyUnits))
		for _, a := range beam.Axes {
			s.Size[a] = append(s.Size[a], 1e3*st.Twiss[a].Envelope())
		}
	}
	return s
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Position) }

// MaxSize returns the largest RMS size on each axis.
func (s Series) MaxSize() [3]float64 {
	var out [3]float64
	for a := range s.Size {
		for _, v := range s.Size[a] {
			if v > out[a] {
				out[a] = v
			}
		}
	}
	return out
}
