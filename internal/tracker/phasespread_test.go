package tracker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
)

func TestCorrectTransFocusingPhaseSpread(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, CorrectTransFocusingPhaseSpread(0))
	assert.InDelta(t, 1-0.01/14, CorrectTransFocusingPhaseSpread(0.1), 1e-15)

	// Above the threshold it is the uniform-sphere transform.
	for _, x := range []float64{0.11, 0.5, 1.2} {
		want, err := ModelUniform3D.TransFourierTransform(x)
		assert.NoError(t, err)
		assert.InDelta(t, want, CorrectTransFocusingPhaseSpread(x), 1e-12)
	}
	assert.InDelta(t, CorrectTransFocusingPhaseSpread(0.1), CorrectTransFocusingPhaseSpread(math.Nextafter(0.1, 1)), 1e-6)
}

func TestSigmaCorrectionsVanishWithoutSpread(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0)
	g := gap()
	assert.InDelta(t, 0, CorrectTransSigmaPhaseSpread(p, g, 0), 1e-14)
	assert.Zero(t, CorrectLongSigmaPhaseSpread(p, g, 0))
	assert.Equal(t, [2]float64{CorrectTransSigmaPhaseSpread(p, g, 0), 0}, CorrectSigmaPhaseSpread(p, g, 0))
}

func TestSigmaCorrections(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0)
	g := gap()
	const dphi = 0.3

	kt := CorrectTransSigmaPhaseSpread(p, g, dphi)
	kz := CorrectLongSigmaPhaseSpread(p, g, dphi)
	assert.Greater(t, kt, 0.0)
	assert.Greater(t, kz, 0.0)

	both := CorrectSigmaPhaseSpread(p, g, dphi)
	assert.Equal(t, kt, both[0])

	// The combined form drops the γ²_mid factor of the longitudinal constant.
	wa := p.KineticEnergy() + g.EnergyGain(p, 0)/2
	ga := beam.GammaFromEnergies(wa, p.SpeciesRestEnergy())
	assert.InEpsilon(t, kz, both[1]*math.Pow(ga, 4), 1e-12)

	// Larger spread, larger correction.
	assert.Greater(t, CorrectLongSigmaPhaseSpread(p, g, 2*dphi), kz)
}

func TestEffPhaseSpread(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0)
	g := gap()
	tau := p.Covariance()

	zz := tau.At(beam.Z, beam.Z)
	want := 2 * math.Pi / (g.BetaMidGap(p) * g.WavelengthRF()) * math.Sqrt(5*zz)
	assert.InEpsilon(t, want, EffPhaseSpread(tau, p, g), 1e-14)

	// Four times the moment doubles the spread.
	tau4 := tau.Clone()
	tau4.Set(beam.Z, beam.Z, 4*zz)
	assert.InEpsilon(t, 2*want, EffPhaseSpread(tau4, p, g), 1e-14)
}

func TestPhaseSpread(t *testing.T) {
	t.Parallel()

	p := twissProbe(0)
	g := gap()
	tw := p.Twiss()[beam.AxisZ]
	dphi := PhaseSpread(tw, p, g)
	assert.Greater(t, dphi, 0.0)

	tw4 := tw
	tw4.Emittance *= 4
	assert.InEpsilon(t, 2*dphi, PhaseSpread(tw4, p, g), 1e-12)

	tw0 := tw
	tw0.Emittance = 0
	assert.Zero(t, PhaseSpread(tw0, p, g))
}

func TestPhaseSpreadHarmonicGap(t *testing.T) {
	t.Parallel()

	p := twissProbe(0)
	tw := p.Twiss()[beam.AxisZ]
	g2 := lattice.NewIdealRfGap("G2", 1e5, -30.0*math.Pi/180.0, 2*bunchFreq)

	// The bunch length in RF degrees doubles at the second harmonic.
	assert.InEpsilon(t, 2*PhaseSpread(tw, p, gap()), PhaseSpread(tw, p, g2), 1e-12)

	got, err := GapPhaseSpread(p, g2)
	require.NoError(t, err)
	assert.Equal(t, PhaseSpread(tw, p, g2), got)
}

func TestGapPhaseSpread(t *testing.T) {
	t.Parallel()

	g := gap()

	env := envelopeProbe(0)
	got, err := GapPhaseSpread(env, g)
	require.NoError(t, err)
	assert.Equal(t, EffPhaseSpread(env.Covariance(), env, g), got)

	tw := twissProbe(0)
	got, err = GapPhaseSpread(tw, g)
	require.NoError(t, err)
	assert.Equal(t, PhaseSpread(tw.Twiss()[beam.AxisZ], tw, g), got)

	_, err = GapPhaseSpread(env, lattice.NewDrift("D1", 0.1))
	assert.True(t, errors.Is(err, ErrNotRfGap))
	var perr *PropagationError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "D1", perr.ElementID)

	_, err = GapPhaseSpread(otherProbe{env}, g)
	assert.True(t, errors.Is(err, ErrInvalidProbe))
}

// otherProbe satisfies probe.Probe without being a concrete probe kind.
type otherProbe struct {
	probe.Probe
}
