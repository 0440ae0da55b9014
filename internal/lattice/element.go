package lattice

import (
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
)

// Element is a beamline element. Path lengths are in metres, energies in eV,
// times in seconds and phases in radians.
type Element interface {
	ID() string
	ParentID() string
	HardwareID() string
	Length() float64

	// TransferMap returns the linear map over a sub-length l of the element.
	TransferMap(p probe.Probe, l float64) (beam.PhaseMatrix, error)
	EnergyGain(p probe.Probe, l float64) float64
	ElapsedTime(p probe.Probe, l float64) float64
	LongitudinalPhaseAdvance(p probe.Probe, l float64) float64
}

// RfGap is an accelerating gap.
type RfGap interface {
	Element
	Phase() float64
	Frequency() float64
	ETL() float64
	WavelengthRF() float64
	BetaMidGap(p probe.Probe) float64
}

// Aligned is implemented by elements that carry a misalignment.
type Aligned interface {
	Alignment() (dx, dy, dz float64)
}

// SubStepped is implemented by elements that must always be sub-stepped,
// whether or not space charge is active.
type SubStepped interface {
	RequiresSubSteps() bool
}

// Alignment is a transverse and longitudinal displacement in metres.
type Alignment struct {
	X float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Z float64 `json:"z,omitempty" yaml:"z,omitempty"`
}

// base holds identity and length for every concrete element.
type base struct {
	id       string
	parent   string
	hardware string
	length   float64
}

func (b *base) ID() string         { return b.id }
func (b *base) ParentID() string   { return b.parent }
func (b *base) HardwareID() string { return b.hardware }
func (b *base) Length() float64    { return b.length }

// ElapsedTime is the transit time l/(βc).
func (b *base) ElapsedTime(p probe.Probe, l float64) float64 {
	return l / (p.Beta() * beam.LightSpeed)
}

// LongitudinalPhaseAdvance is the RF phase slipped at the bunch frequency
// over the transit time.
func (b *base) LongitudinalPhaseAdvance(p probe.Probe, l float64) float64 {
	return 2.0 * math.Pi * p.BunchFrequency() * b.ElapsedTime(p, l)
}

func (b *base) EnergyGain(probe.Probe, float64) float64 { return 0 }
