package lattice

import (
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
)

// IdealRfGap is a thin accelerating gap. ETL is the effective voltage in V,
// Phase the synchronous phase in rad and Freq the RF frequency in Hz.
type IdealRfGap struct {
	base
	ETLVolts float64
	Phi      float64
	Freq     float64
}

// NewIdealRfGap returns a thin RF gap.
func NewIdealRfGap(id string, etl, phase, freq float64) *IdealRfGap {
	return &IdealRfGap{base: base{id: id, hardware: id}, ETLVolts: etl, Phi: phase, Freq: freq}
}

func (g *IdealRfGap) Phase() float64     { return g.Phi }
func (g *IdealRfGap) Frequency() float64 { return g.Freq }
func (g *IdealRfGap) ETL() float64       { return g.ETLVolts }

// WavelengthRF returns c/f.
func (g *IdealRfGap) WavelengthRF() float64 {
	return beam.LightSpeed / g.Freq
}

// EnergyGain returns q·ETL·cos φ for the whole gap.
func (g *IdealRfGap) EnergyGain(p probe.Probe, _ float64) float64 {
	return p.SpeciesCharge() * g.ETLVolts * math.Cos(g.Phi)
}

// ElapsedTime is zero for a thin gap.
func (g *IdealRfGap) ElapsedTime(probe.Probe, float64) float64 { return 0 }

// LongitudinalPhaseAdvance is zero for a thin gap.
func (g *IdealRfGap) LongitudinalPhaseAdvance(probe.Probe, float64) float64 { return 0 }

// BetaMidGap returns v/c at the energy halfway through the gain.
func (g *IdealRfGap) BetaMidGap(p probe.Probe) float64 {
	w := p.KineticEnergy() + g.EnergyGain(p, 0)/2.0
	return beam.BetaFromGamma(beam.GammaFromEnergies(w, p.SpeciesRestEnergy()))
}

// TransferMap returns the thin-lens gap map: RF defocusing kick
//
//	k⊥ = −π|q|·ETL·sin φ / (Er (βγ)²_mid (βγ)_f λ)
//
// longitudinal kick kz = −2γ²_mid·k⊥, and adiabatic damping (βγ)_i/(βγ)_f on
// the slopes.
func (g *IdealRfGap) TransferMap(p probe.Probe, _ float64) (beam.PhaseMatrix, error) {
	er := p.SpeciesRestEnergy()
	w := p.KineticEnergy()
	dw := g.EnergyGain(p, 0)
	wa := w + dw/2.0
	wf := w + dw

	bgi := beam.BetaGammaFromEnergies(w, er)
	bga := beam.BetaGammaFromEnergies(wa, er)
	bgf := beam.BetaGammaFromEnergies(wf, er)
	ga := beam.GammaFromEnergies(wa, er)

	cay := math.Abs(p.SpeciesCharge()) * math.Pi * g.ETLVolts / (er * bga * bga * bgf * g.WavelengthRF())
	kt := -cay * math.Sin(g.Phi)
	kz := -2.0 * ga * ga * kt
	damp := bgi / bgf

	m := beam.Identity()
	m.Set(beam.Xp, beam.X, kt)
	m.Set(beam.Xp, beam.Xp, damp)
	m.Set(beam.Yp, beam.Y, kt)
	m.Set(beam.Yp, beam.Yp, damp)
	m.Set(beam.Zp, beam.Z, kz)
	m.Set(beam.Zp, beam.Zp, damp)
	return m, nil
}
