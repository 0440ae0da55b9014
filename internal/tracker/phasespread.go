package tracker

import (
	"fmt"
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
	"github.com/banshee-data/envtrack/internal/specfn"
)

// EffPhaseSpread returns the effective RF phase spread (rad) of a uniform
// beam with second moment ⟨z²⟩ crossing gap:
//
//	Δφ = 2π/(β_mid λ) · √(5⟨z²⟩)
func EffPhaseSpread(tau beam.CovarianceMatrix, p probe.Probe, gap lattice.RfGap) float64 {
	zz := tau.At(beam.Z, beam.Z)
	return 2.0 * math.Pi / (gap.BetaMidGap(p) * gap.WavelengthRF()) * math.Sqrt(5.0*zz)
}

// PhaseSpread returns the phase half-width (rad) at gap implied by
// longitudinal Twiss parameters, converted through the Trace3D degree units
// at the gap's RF frequency.
func PhaseSpread(twz beam.Twiss, p probe.Probe, gap lattice.RfGap) float64 {
	conv := beam.NewTraceConverter(gap.Frequency(), p.SpeciesRestEnergy(), p.KineticEnergy())
	t := conv.ToTraceLongitudinal(twz)
	return math.Sqrt(t.Emittance*t.Beta) * 2.0 * math.Pi / 360.0
}

// GapPhaseSpread returns the phase spread of probe p at gap element e: the
// effective spread of an envelope probe or the Twiss spread of a Twiss
// probe.
func GapPhaseSpread(p probe.Probe, e lattice.Element) (float64, error) {
	gap, ok := e.(lattice.RfGap)
	if !ok {
		return 0, &PropagationError{ElementID: e.ID(), Op: "phase spread", Err: ErrNotRfGap}
	}
	switch pr := p.(type) {
	case *probe.EnvelopeProbe:
		return EffPhaseSpread(pr.Covariance(), p, gap), nil
	case *probe.TwissProbe:
		return PhaseSpread(pr.Twiss()[beam.AxisZ], p, gap), nil
	}
	return 0, &PropagationError{ElementID: e.ID(), Op: "phase spread", Err: fmt.Errorf("%w: %T", ErrInvalidProbe, p)}
}

// CorrectTransFocusingPhaseSpread returns the reduction of the transverse
// RF focusing strength caused by phase spread dphi.
func CorrectTransFocusingPhaseSpread(dphi float64) float64 {
	if dphi <= specfn.SmallArg {
		return 1.0 - dphi*dphi/14.0
	}
	s, c := math.Sincos(dphi)
	d2 := dphi * dphi
	return 15.0 / d2 * (3.0/d2*(s/dphi-c) - s/dphi)
}

// gapStrength is the RF defocusing constant of the gap at the probe's
// energy, before the sin φ factor.
func gapStrength(p probe.Probe, gap lattice.RfGap) (cay, gammaMid float64) {
	er := p.SpeciesRestEnergy()
	w := p.KineticEnergy()
	dw := gap.EnergyGain(p, 0)
	wa := w + dw/2.0
	wf := w + dw
	bga := beam.BetaGammaFromEnergies(wa, er)
	bgf := beam.BetaGammaFromEnergies(wf, er)
	cay = math.Abs(p.SpeciesCharge()) * math.Pi * gap.ETL() / (er * bga * bga * bgf * gap.WavelengthRF())
	return cay, beam.GammaFromEnergies(wa, er)
}

// CorrectTransSigmaPhaseSpread returns the increase in ⟨x'²⟩ per unit ⟨x²⟩
// from the phase spread dphi across the gap.
func CorrectTransSigmaPhaseSpread(p probe.Probe, gap lattice.RfGap, dphi float64) float64 {
	f1 := CorrectTransFocusingPhaseSpread(dphi)
	f2 := CorrectTransFocusingPhaseSpread(2.0 * dphi)
	s, c := math.Sincos(gap.Phase())
	g1 := 0.5 * (1.0 + (s*s-c*c)*f2)
	cay, _ := gapStrength(p, gap)
	return cay * cay * (g1 - s*s*f1*f1)
}

// CorrectLongSigmaPhaseSpread returns the increase in ⟨z'²⟩ per unit ⟨z²⟩.
func CorrectLongSigmaPhaseSpread(p probe.Probe, gap lattice.RfGap, dphi float64) float64 {
	cay, ga := gapStrength(p, gap)
	cayz := 2.0 * cay * ga * ga
	s, c := math.Sincos(gap.Phase())
	d2 := dphi * dphi
	return cayz * cayz * d2 * (0.125*c*c + d2*s*s/576.0)
}

// CorrectSigmaPhaseSpread returns the transverse and longitudinal
// corrections together. The longitudinal term here omits the γ²_mid factor
// of CorrectLongSigmaPhaseSpread.
func CorrectSigmaPhaseSpread(p probe.Probe, gap lattice.RfGap, dphi float64) [2]float64 {
	cay, _ := gapStrength(p, gap)
	cayz := 2.0 * cay
	s, c := math.Sincos(gap.Phase())
	d2 := dphi * dphi
	return [2]float64{
		CorrectTransSigmaPhaseSpread(p, gap, dphi),
		cayz * cayz * d2 * (0.125*c*c + d2*s*s/576.0),
	}
}
