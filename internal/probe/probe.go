package probe

import (
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
)

// Probe is the kinematic and bookkeeping contract shared by every beam-state
// representation.
type Probe interface {
	Position() float64
	SetPosition(s float64)
	Time() float64
	SetTime(t float64)
	KineticEnergy() float64
	SetKineticEnergy(w float64)
	LongitudinalPhase() float64
	SetLongitudinalPhase(phi float64)

	SpeciesRestEnergy() float64
	SpeciesCharge() float64
	BeamCurrent() float64
	BunchFrequency() float64

	Gamma() float64
	Beta() float64
	BeamPerveance() float64

	CurrentElement() string
	SetCurrentElement(id string)
	CurrentHardwareID() string
	SetCurrentHardwareID(id string)

	// Update appends a snapshot of the current state to the trajectory.
	Update() error
	Trajectory() *Trajectory
}

// Species describes the particle type. Charge is in units of the elementary
// charge, RestEnergy in eV.
type Species struct {
	Name       string
	Charge     float64
	RestEnergy float64
}

// Bunch carries the kinematic state common to all probes. Energies are in eV,
// position in m, time in s, phase in rad, current in A and frequency in Hz.
type Bunch struct {
	Species   Species
	Current   float64
	Frequency float64

	position float64
	time     float64
	kinetic  float64
	phase    float64

	elementID  string
	hardwareID string

	traj *Trajectory
}

// NewBunch returns a bunch at s = 0 with kinetic energy w.
func NewBunch(sp Species, current, frequency, w float64) Bunch {
	return Bunch{
		Species:   sp,
		Current:   current,
		Frequency: frequency,
		kinetic:   w,
		traj:      &Trajectory{},
	}
}

func (b *Bunch) Position() float64              { return b.position }
func (b *Bunch) SetPosition(s float64)          { b.position = s }
func (b *Bunch) Time() float64                  { return b.time }
func (b *Bunch) SetTime(t float64)              { b.time = t }
func (b *Bunch) KineticEnergy() float64         { return b.kinetic }
func (b *Bunch) SetKineticEnergy(w float64)     { b.kinetic = w }
func (b *Bunch) LongitudinalPhase() float64     { return b.phase }
func (b *Bunch) SetLongitudinalPhase(p float64) { b.phase = p }

func (b *Bunch) SpeciesRestEnergy() float64 { return b.Species.RestEnergy }
func (b *Bunch) SpeciesCharge() float64     { return b.Species.Charge }
func (b *Bunch) BeamCurrent() float64       { return b.Current }
func (b *Bunch) BunchFrequency() float64    { return b.Frequency }

func (b *Bunch) CurrentElement() string         { return b.elementID }
func (b *Bunch) SetCurrentElement(id string)    { b.elementID = id }
func (b *Bunch) CurrentHardwareID() string      { return b.hardwareID }
func (b *Bunch) SetCurrentHardwareID(id string) { b.hardwareID = id }

// Trajectory returns the snapshot history, creating it on first use.
func (b *Bunch) Trajectory() *Trajectory {
	if b.traj == nil {
		b.traj = &Trajectory{}
	}
	return b.traj
}

// Gamma returns the Lorentz factor.
func (b *Bunch) Gamma() float64 {
	return beam.GammaFromEnergies(b.kinetic, b.Species.RestEnergy)
}

// Beta returns v/c.
func (b *Bunch) Beta() float64 {
	return beam.BetaFromGamma(b.Gamma())
}

// BunchCharge returns the charge per bunch, I/f, in C.
func (b *Bunch) BunchCharge() float64 {
	if b.Frequency == 0 {
		return 0
	}
	return b.Current / b.Frequency
}

// BeamPerveance returns the generalized perveance
//
//	K = |q|·Q / (2π ε0 γ (γ²−1) Er)
//
// It is zero for zero beam current.
func (b *Bunch) BeamPerveance() float64 {
	q := b.BunchCharge()
	if q == 0 {
		return 0
	}
	g := b.Gamma()
	return math.Abs(b.Species.Charge) * q /
		(2.0 * math.Pi * beam.Permittivity * g * (g*g - 1.0) * b.Species.RestEnergy)
}

func (b *Bunch) state() State {
	return State{
		ElementID:     b.elementID,
		HardwareID:    b.hardwareID,
		Position:      b.position,
		Time:          b.time,
		KineticEnergy: b.kinetic,
		Phase:         b.phase,
	}
}

func (b *Bunch) clone() Bunch {
	out := *b
	out.traj = b.Trajectory().Clone()
	return out
}
