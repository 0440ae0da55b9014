package tracker

import (
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
)

// TypeTwiss is the algorithm type identifier of TwissTracker.
const TypeTwiss = "envtrack.TwissTracker"

// TwissTracker propagates a TwissProbe's per-plane Twiss parameters,
// centroid, betatron phase and response matrix. Coupling between planes is
// ignored.
type TwissTracker struct {
	Driver
	Options
}

// NewTwissTracker returns a tracker with default options.
func NewTwissTracker() *TwissTracker {
	return &TwissTracker{
		Driver:  newDriver(TypeTwiss, 1),
		Options: DefaultOptions(),
	}
}

// Copy returns an independent tracker with the same configuration and state.
func (t *TwissTracker) Copy() Tracker {
	c := *t
	return &c
}

// Propagate advances p through e. p must be a *probe.TwissProbe.
func (t *TwissTracker) Propagate(p probe.Probe, e lattice.Element) error {
	tp, ok := p.(*probe.TwissProbe)
	if !ok {
		return invalidProbe(p, e, "*probe.TwissProbe")
	}
	return t.propagate(p, e, func() error { return t.doPropagation(tp, e) })
}

// SubStepCount returns the number of sub-steps used for e. Only space charge
// forces sub-stepping.
func (t *TwissTracker) SubStepCount(e lattice.Element) int {
	return SubStepCount(e.Length(), t.StepSize, t.SpaceCharge)
}

func (t *TwissTracker) doPropagation(p *probe.TwissProbe, e lattice.Element) error {
	n := t.SubStepCount(e)
	h := e.Length() / float64(n)
	for i := 0; i < n; i++ {
		if err := t.advanceState(p, e, h); err != nil {
			return err
		}
		if err := t.AdvanceProbe(p, e, h); err != nil {
			return err
		}
	}
	return nil
}

// advanceState applies one sub-step to the Twiss parameters, centroid,
// response matrix and betatron phase. Kinematics are left to AdvanceProbe.
func (t *TwissTracker) advanceState(p *probe.TwissProbe, e lattice.Element, h float64) error {
	phi, err := e.TransferMap(p, h)
	if err != nil {
		return err
	}

	if t.SpaceCharge && h > 0 {
		k, err := t.halfStepKick(p, h)
		if err != nil {
			return err
		}
		phi = k.Times(phi).Times(k)
	}

	if a, ok := e.(lattice.Aligned); ok {
		dx, dy, dz := a.Alignment()
		phi = ModTransferMatrixForDisplError(dx, dy, dz, phi)
	}

	w0 := p.KineticEnergy()
	w1 := w0 + e.EnergyGain(p, h)
	er := p.SpeciesRestEnergy()

	tw0 := p.Twiss()
	tw1 := transportTwiss(tw0, phi, w0, w1, er)
	ph := p.BetatronPhase()

	if gap, ok := e.(lattice.RfGap); ok && t.EmitGrowth {
		tw1 = t.addEmitGrowth(p, gap, tw1)
	}
	for _, a := range beam.Axes {
		ph[a] += betatronPhaseAdvance(phi, a, tw0[a], tw1[a])
	}

	p.SetCentroid(phi.TimesVector(p.Centroid()))
	p.SetResponseMatrix(phi.Times(p.ResponseMatrix()))
	p.SetTwiss(tw1)
	p.SetBetatronPhase(ph)

	if t.debug {
		Tracef("%s: s=%.6g h=%.4g βx=%.4g βy=%.4g βz=%.4g", e.ID(), p.Position()+h, h, tw1[0].Beta, tw1[1].Beta, tw1[2].Beta)
	}
	return nil
}

// halfStepKick returns the space-charge kick of the current beam over h/2.
func (t *TwissTracker) halfStepKick(p *probe.TwissProbe, h float64) (beam.PhaseMatrix, error) {
	ell, err := beam.NewEllipsoid(p.Gamma(), beam.BuildCovariance(p.Twiss()))
	if err != nil {
		return beam.PhaseMatrix{}, err
	}
	return ell.ScheffMatrix(h/2.0, p.BeamPerveance())
}

// transportTwiss maps each plane's Twiss parameters through the 2×2 diagonal
// block of phi. When the energy changes only the emittance is scaled by the
// adiabatic damping ratio, with an extra γ² factor longitudinally; α and β
// follow from the map alone.
func transportTwiss(tw beam.Twiss3D, phi beam.PhaseMatrix, w0, w1, er float64) beam.Twiss3D {
	ratTran, ratLong := 1.0, 1.0
	if w1 != w0 {
		g0 := beam.GammaFromEnergies(w0, er)
		g1 := beam.GammaFromEnergies(w1, er)
		bg0 := beam.BetaGammaFromEnergies(w0, er)
		bg1 := beam.BetaGammaFromEnergies(w1, er)
		ratTran = bg0 / bg1
		ratLong = ratTran * g0 * g0 / (g1 * g1)
	}

	var out beam.Twiss3D
	for _, a := range beam.Axes {
		i, j := a.Position(), a.Slope()
		r11, r12 := phi.At(i, i), phi.At(i, j)
		r21, r22 := phi.At(j, i), phi.At(j, j)

		alpha, beta, gamma := tw[a].Alpha, tw[a].Beta, tw[a].Gamma()
		rat := ratTran
		if a == beam.AxisZ {
			rat = ratLong
		}
		out[a] = beam.Twiss{
			Alpha:     -r11*r21*beta + (r11*r22+r12*r21)*alpha - r12*r22*gamma,
			Beta:      r11*r11*beta - 2.0*r11*r12*alpha + r12*r12*gamma,
			Emittance: tw[a].Emittance * rat,
		}
	}
	return out
}

// betatronPhaseAdvance returns the phase advanced by plane a across phi
// given the Twiss parameters at both ends. The result lies in [0, 2π).
func betatronPhaseAdvance(phi beam.PhaseMatrix, a beam.Axis, ti, tf beam.Twiss) float64 {
	i, j := a.Position(), a.Slope()
	r11, r12 := phi.At(i, i), phi.At(i, j)

	sinAdv := r12 / math.Sqrt(ti.Beta*tf.Beta)
	sinAdv = math.Max(-1.0, math.Min(1.0, sinAdv))
	adv := math.Asin(sinAdv)
	cosAdv := r11*math.Sqrt(ti.Beta/tf.Beta) - ti.Alpha*sinAdv

	switch {
	case cosAdv >= 0 && sinAdv >= 0:
		return adv
	case cosAdv >= 0:
		return 2.0*math.Pi + adv
	default:
		return math.Pi - adv
	}
}

// addEmitGrowth applies the RF phase-spread correction to tw: each plane is
// rescaled by r = √(1 + k·β²), dividing α and β and multiplying ε.
func (t *TwissTracker) addEmitGrowth(p *probe.TwissProbe, gap lattice.RfGap, tw beam.Twiss3D) beam.Twiss3D {
	dphi := PhaseSpread(tw[beam.AxisZ], p, gap)
	kt := CorrectTransSigmaPhaseSpread(p, gap, dphi)
	kz := CorrectLongSigmaPhaseSpread(p, gap, dphi)

	out := tw
	for _, a := range beam.Axes {
		k := kt
		if a == beam.AxisZ {
			k = kz
		}
		r := math.Sqrt(1.0 + k*tw[a].Beta*tw[a].Beta)
		out[a] = beam.Twiss{
			Alpha:     tw[a].Alpha / r,
			Beta:      tw[a].Beta / r,
			Emittance: tw[a].Emittance * r,
		}
	}
	return out
}
