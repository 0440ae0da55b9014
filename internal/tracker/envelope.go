package tracker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
)

// TypeEnvelope is the algorithm type identifier of EnvelopeTracker.
const TypeEnvelope = "envtrack.EnvelopeTracker"

// EnvelopeTracker propagates an EnvelopeProbe's second-moment matrix through
// each element, with optional linear space charge and RF phase-spread
// emittance growth.
type EnvelopeTracker struct {
	Driver
	Options
	Steps StepControl
}

// NewEnvelopeTracker returns a tracker with default options.
func NewEnvelopeTracker() *EnvelopeTracker {
	return &EnvelopeTracker{
		Driver:  newDriver(TypeEnvelope, 1),
		Options: DefaultOptions(),
		Steps:   DefaultStepControl(),
	}
}

// Copy returns an independent tracker with the same configuration and state.
func (t *EnvelopeTracker) Copy() Tracker {
	c := *t
	return &c
}

// Propagate advances p through e. p must be an *probe.EnvelopeProbe.
func (t *EnvelopeTracker) Propagate(p probe.Probe, e lattice.Element) error {
	ep, ok := p.(*probe.EnvelopeProbe)
	if !ok {
		return invalidProbe(p, e, "*probe.EnvelopeProbe")
	}
	return t.propagate(p, e, func() error { return t.doPropagation(ep, e) })
}

// SubStepCount returns the number of fixed sub-steps used for e.
func (t *EnvelopeTracker) SubStepCount(e lattice.Element) int {
	return SubStepCount(e.Length(), t.StepSize, t.needsSubSteps(e))
}

func (t *EnvelopeTracker) needsSubSteps(e lattice.Element) bool {
	if t.SpaceCharge {
		return true
	}
	s, ok := e.(lattice.SubStepped)
	return ok && s.RequiresSubSteps()
}

func (t *EnvelopeTracker) doPropagation(p *probe.EnvelopeProbe, e lattice.Element) error {
	if t.Steps.Mode == StepAdaptive && e.Length() > 0 && t.needsSubSteps(e) {
		return t.propagateAdaptive(p, e)
	}

	n := t.SubStepCount(e)
	h := e.Length() / float64(n)
	for i := 0; i < n; i++ {
		if err := t.step(p, e, h); err != nil {
			return err
		}
	}
	return nil
}

// step advances p by one sub-step of length h.
func (t *EnvelopeTracker) step(p *probe.EnvelopeProbe, e lattice.Element, h float64) error {
	tau, err := t.stepCovariance(p, e, h)
	if err != nil {
		return err
	}
	p.SetCovariance(tau)
	if t.debug {
		sig := tau.Sigmas()
		Tracef("%s: s=%.6g h=%.4g σ=(%.4g, %.4g, %.4g)", e.ID(), p.Position()+h, h, sig[0], sig[1], sig[2])
	}
	return t.AdvanceProbe(p, e, h)
}

// stepCovariance returns the covariance after a sub-step of length h without
// modifying p.
func (t *EnvelopeTracker) stepCovariance(p *probe.EnvelopeProbe, e lattice.Element, h float64) (beam.CovarianceMatrix, error) {
	tau := p.Covariance()
	phi, err := t.stepMap(p, e, h)
	if err != nil {
		return beam.CovarianceMatrix{}, err
	}

	gap, isGap := e.(lattice.RfGap)
	if !isGap || !t.EmitGrowth {
		return tau.Propagate(phi), nil
	}

	dphi := EffPhaseSpread(tau, p, gap)
	mod, err := t.ModTransferMatrixForEmitGrowth(dphi, phi)
	if err != nil {
		return beam.CovarianceMatrix{}, err
	}
	return t.addEmitGrowth(tau, tau.Propagate(mod), phi, gap.Phase(), dphi)
}

// stepMap returns the transfer map for a sub-step, including the mid-step
// space-charge kick and any element misalignment.
func (t *EnvelopeTracker) stepMap(p *probe.EnvelopeProbe, e lattice.Element, h float64) (beam.PhaseMatrix, error) {
	var phi beam.PhaseMatrix
	if t.SpaceCharge && h > 0 {
		half, err := e.TransferMap(p, h/2.0)
		if err != nil {
			return beam.PhaseMatrix{}, err
		}
		mid := p.Covariance().Propagate(half)
		sc, err := ScheffMatrix(h, mid, p.Gamma(), p.BeamPerveance())
		if err != nil {
			return beam.PhaseMatrix{}, fmt.Errorf("space charge: %w", err)
		}
		phi = half.Times(sc).Times(half)
	} else {
		m, err := e.TransferMap(p, h)
		if err != nil {
			return beam.PhaseMatrix{}, err
		}
		phi = m
	}

	if a, ok := e.(lattice.Aligned); ok {
		dx, dy, dz := a.Alignment()
		phi = ModTransferMatrixForDisplError(dx, dy, dz, phi)
	}
	return phi, nil
}

// ModTransferMatrixForEmitGrowth scales the RF focusing entries of phi by the
// model's transverse and longitudinal transforms at phase spread dphi. phi
// is returned unchanged when emittance growth is disabled.
func (t *EnvelopeTracker) ModTransferMatrixForEmitGrowth(dphi float64, phi beam.PhaseMatrix) (beam.PhaseMatrix, error) {
	if !t.EmitGrowth {
		return phi, nil
	}
	ft, err := t.Model.TransFourierTransform(dphi)
	if err != nil {
		return beam.PhaseMatrix{}, err
	}
	fz, err := t.Model.LongFourierTransform(dphi)
	if err != nil {
		return beam.PhaseMatrix{}, err
	}
	out := phi.Clone()
	out.Set(beam.Xp, beam.X, ft*phi.At(beam.Xp, beam.X))
	out.Set(beam.Yp, beam.Y, ft*phi.At(beam.Yp, beam.Y))
	out.Set(beam.Zp, beam.Z, fz*phi.At(beam.Zp, beam.Z))
	return out, nil
}

// addEmitGrowth adds the slope variance induced by the phase spread to tau1.
// tau0 is the covariance before the gap and phi its nominal map.
func (t *EnvelopeTracker) addEmitGrowth(tau0, tau1 beam.CovarianceMatrix, phi beam.PhaseMatrix, phiS, dphi float64) (beam.CovarianceMatrix, error) {
	gt, err := t.Model.EmitGrowthFunction(PlaneTransverse, phiS, dphi)
	if err != nil {
		return beam.CovarianceMatrix{}, err
	}
	gz, err := t.Model.EmitGrowthFunction(PlaneLongitudinal, phiS, dphi)
	if err != nil {
		return beam.CovarianceMatrix{}, err
	}

	out := tau1.Clone()
	planes := [3]struct {
		pos, slope beam.Index
		g          float64
		sig        float64
	}{
		{beam.X, beam.Xp, gt, tau0.CentralCovXX()},
		{beam.Y, beam.Yp, gt, tau0.CentralCovYY()},
		{beam.Z, beam.Zp, gz, tau0.CentralCovZZ()},
	}
	for _, pl := range planes {
		k := phi.At(pl.slope, pl.pos)
		out.Set(pl.slope, pl.slope, out.At(pl.slope, pl.slope)+k*k*pl.g*pl.sig)
	}
	return out, nil
}

// propagateAdaptive sub-steps e with step halving and doubling so that one
// full step and two half steps agree to within the configured tolerance.
func (t *EnvelopeTracker) propagateAdaptive(p *probe.EnvelopeProbe, e lattice.Element) error {
	sc := t.Steps
	l := e.Length()
	h := math.Min(t.StepSize, l)
	if h <= 0 {
		h = l
	}

	remaining := l
	for remaining > 0 {
		if h > remaining {
			h = remaining
		}

		accepted := false
		var errEst float64
		for it := 0; it < sc.MaxIterations; it++ {
			var err error
			errEst, err = t.stepError(p, e, h, sc.Norm)
			if err != nil {
				return err
			}
			if errEst <= sc.ErrorTolerance {
				accepted = true
				break
			}
			h /= 2.0
		}
		if !accepted {
			Opsf("%s: adaptive step did not converge at s=%.6g (h=%.3g, err=%.3g)", e.ID(), p.Position(), h, errEst)
			return fmt.Errorf("%w: error %.3g above tolerance %.3g after %d iterations",
				ErrStepControl, errEst, sc.ErrorTolerance, sc.MaxIterations)
		}

		if err := t.step(p, e, h); err != nil {
			return err
		}
		remaining -= h
		if scalar.EqualWithinAbs(remaining, 0, 1e-12*l) {
			remaining = 0
		}

		if errEst < sc.Slack*sc.ErrorTolerance {
			h *= 2.0
		}
	}
	return nil
}

// stepError compares one step of length h with two of length h/2 and returns
// the relative difference of the resulting covariance matrices.
func (t *EnvelopeTracker) stepError(p *probe.EnvelopeProbe, e lattice.Element, h float64, n Norm) (float64, error) {
	full, err := t.stepCovariance(p, e, h)
	if err != nil {
		return 0, err
	}

	scratch := p.Copy()
	for i := 0; i < 2; i++ {
		tau, err := t.stepCovariance(scratch, e, h/2.0)
		if err != nil {
			return 0, err
		}
		scratch.SetCovariance(tau)
		advanceKinematics(scratch, e, h/2.0)
	}
	half := scratch.Covariance()

	// The homogeneous corner is always 1 and would swamp the moments.
	scale := half.PhaseMatrix.Clone()
	scale.Set(beam.Hom, beam.Hom, 0)
	den := scale.Norm(n.ord())
	if den == 0 {
		den = 1
	}
	return full.Minus(half.PhaseMatrix).Norm(n.ord()) / den, nil
}

// advanceKinematics moves p forward without recording or touching driver
// state.
func advanceKinematics(p probe.Probe, e lattice.Element, l float64) {
	dT := e.ElapsedTime(p, l)
	dPhi := e.LongitudinalPhaseAdvance(p, l)
	dW := e.EnergyGain(p, l)
	p.SetPosition(p.Position() + l)
	p.SetTime(p.Time() + dT)
	p.SetLongitudinalPhase(p.LongitudinalPhase() + dPhi)
	p.SetKineticEnergy(p.KineticEnergy() + dW)
}
