package tracker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
)

func TestEnvelopeLinearTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		elem lattice.Element
	}{
		{"drift", lattice.NewDrift("D", 0.1)},
		{"focusing quad", lattice.NewQuad("QF", 0.1, 12.5)},
		{"defocusing quad", lattice.NewQuad("QD", 0.1, -12.5)},
		{"rf gap", gap()},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := envelopeProbe(0)
			tau0 := p.Covariance()
			phi, err := tt.elem.TransferMap(p, tt.elem.Length())
			require.NoError(t, err)

			tr := noSpaceCharge(NewEnvelopeTracker())
			tr.Initialize()
			require.NoError(t, tr.Propagate(p, tt.elem))

			assertCovNear(t, tau0.Propagate(phi), p.Covariance(), 1e-12)
			assert.InDelta(t, tt.elem.Length(), p.Position(), 1e-15)
			assert.Equal(t, tt.elem.ID(), p.CurrentElement())
		})
	}
}

func TestEnvelopeZeroCurrentSpaceCharge(t *testing.T) {
	t.Parallel()

	q := lattice.NewQuad("Q", 0.1, 12.5)
	withSC := envelopeProbe(0)
	without := envelopeProbe(0)

	tr := NewEnvelopeTracker()
	require.True(t, tr.SpaceCharge)
	tr.Initialize()
	require.NoError(t, tr.Propagate(withSC, q))

	tr2 := noSpaceCharge(NewEnvelopeTracker())
	tr2.Initialize()
	require.NoError(t, tr2.Propagate(without, q))

	assertCovNear(t, without.Covariance(), withSC.Covariance(), 1e-12)
}

func TestEnvelopeSpaceChargeDefocuses(t *testing.T) {
	t.Parallel()

	d := lattice.NewDrift("D", 0.5)
	run := func(current float64) [3]float64 {
		p := envelopeProbe(current)
		tr := NewEnvelopeTracker()
		tr.Initialize()
		require.NoError(t, tr.Propagate(p, d))
		return p.Covariance().Sigmas()
	}
	cold, hot := run(0), run(0.03)
	for i := range cold {
		assert.Greaterf(t, hot[i], cold[i], "plane %d", i)
	}
}

func TestSubStepCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, SubStepCount(0.1, 0.004, false))
	assert.Equal(t, 25, SubStepCount(0.1, 0.004, true))
	assert.Equal(t, 1, SubStepCount(0, 0.004, true))
	assert.Equal(t, 1, SubStepCount(0.001, 0.004, true))
	assert.Equal(t, 1, SubStepCount(0.1, 0, true))

	prev := 0
	for _, step := range []float64{0.1, 0.05, 0.02, 0.01, 0.007, 0.003, 0.001} {
		n := SubStepCount(0.37, step, true)
		assert.GreaterOrEqual(t, n, prev)
		prev = n
	}

	tr := noSpaceCharge(NewEnvelopeTracker())
	assert.Equal(t, 25, tr.SubStepCount(lattice.NewDrift("D", 0.1)))
	assert.Equal(t, 1, tr.SubStepCount(lattice.NewMarker("M")))
	assert.Equal(t, 1, tr.SubStepCount(gap()))

	tw := NewTwissTracker()
	tw.SpaceCharge = false
	assert.Equal(t, 1, tw.SubStepCount(lattice.NewDrift("D", 0.1)))
	tw.SpaceCharge = true
	assert.Equal(t, 25, tw.SubStepCount(lattice.NewDrift("D", 0.1)))
}

func TestModTransferMatrixForEmitGrowth(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0)
	g := gap()
	phi, err := g.TransferMap(p, 0)
	require.NoError(t, err)

	tr := NewEnvelopeTracker()
	same, err := tr.ModTransferMatrixForEmitGrowth(0.3, phi)
	require.NoError(t, err)
	assert.True(t, same.Equal(phi))

	tr.EmitGrowth = true
	tr.Model = ModelGaussian3D
	mod, err := tr.ModTransferMatrixForEmitGrowth(0.3, phi)
	require.NoError(t, err)

	ft, _ := ModelGaussian3D.TransFourierTransform(0.3)
	fz, _ := ModelGaussian3D.LongFourierTransform(0.3)
	assert.InDelta(t, ft*phi.At(beam.Xp, beam.X), mod.At(beam.Xp, beam.X), 1e-15)
	assert.InDelta(t, ft*phi.At(beam.Yp, beam.Y), mod.At(beam.Yp, beam.Y), 1e-15)
	assert.InDelta(t, fz*phi.At(beam.Zp, beam.Z), mod.At(beam.Zp, beam.Z), 1e-15)
	assert.Equal(t, phi.At(beam.Xp, beam.Xp), mod.At(beam.Xp, beam.Xp))
	// The input is not modified.
	assert.NotEqual(t, phi.At(beam.Xp, beam.X), mod.At(beam.Xp, beam.X))
}

func TestEnvelopeEmitGrowthAtGap(t *testing.T) {
	t.Parallel()

	run := func(growth bool, model EmitGrowthModel) [3]float64 {
		p := envelopeProbe(0)
		tr := noSpaceCharge(NewEnvelopeTracker())
		tr.EmitGrowth = growth
		tr.Model = model
		tr.Initialize()
		require.NoError(t, tr.Propagate(p, gap()))
		return p.Covariance().RmsEmittances()
	}

	base := run(false, ModelTrace3D)
	for _, m := range allModels {
		grown := run(true, m)
		for i := range base {
			assert.Greaterf(t, grown[i], base[i], "%s plane %d", m, i)
		}
	}
}

func TestEnvelopeMisalignedQuadSteers(t *testing.T) {
	t.Parallel()

	q := lattice.NewQuad("Q", 0.1, 12.5)
	q.Align = lattice.Alignment{X: 1e-3}

	p := envelopeProbe(0)
	tr := noSpaceCharge(NewEnvelopeTracker())
	tr.Initialize()
	require.NoError(t, tr.Propagate(p, q))

	mean := p.Covariance().Mean()
	assert.Greater(t, mean[beam.Xp], 0.0)
	assert.InDelta(t, 0, mean[beam.Yp], 1e-18)
}

func TestEnvelopeAdaptiveSingleStep(t *testing.T) {
	t.Parallel()

	d := lattice.NewDrift("D", 0.1)
	p := envelopeProbe(0)
	tau0 := p.Covariance()
	phi, err := d.TransferMap(p, 0.1)
	require.NoError(t, err)

	tr := noSpaceCharge(NewEnvelopeTracker())
	tr.Steps.Mode = StepAdaptive
	tr.StepSize = 0.2
	tr.Initialize()
	require.NoError(t, tr.Propagate(p, d))

	assert.Equal(t, 1, p.Trajectory().Len())
	assertCovNear(t, tau0.Propagate(phi), p.Covariance(), 1e-13)
	assert.InDelta(t, 0.1, p.Position(), 1e-15)
}

func TestEnvelopeAdaptiveMatchesFineFixed(t *testing.T) {
	t.Parallel()

	d := lattice.NewDrift("D", 0.2)

	fine := envelopeProbe(0.03)
	fixed := NewEnvelopeTracker()
	fixed.StepSize = 0.0005
	fixed.SetUpdatePolicy(UpdateNever)
	fixed.Initialize()
	require.NoError(t, fixed.Propagate(fine, d))

	p := envelopeProbe(0.03)
	tr := NewEnvelopeTracker()
	tr.Steps.Mode = StepAdaptive
	tr.Steps.ErrorTolerance = 1e-6
	tr.StepSize = 0.05
	tr.Initialize()
	require.NoError(t, tr.Propagate(p, d))

	assert.InDelta(t, 0.2, p.Position(), 1e-12)
	assert.InDelta(t, 0.2, tr.ElemPosition(), 1e-12)
	want, got := fine.Covariance().Sigmas(), p.Covariance().Sigmas()
	for i := range want {
		assert.InEpsilonf(t, want[i], got[i], 1e-3, "plane %d", i)
	}
}

func TestEnvelopeAdaptiveGivesUp(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0.03)
	tr := NewEnvelopeTracker()
	tr.Steps.Mode = StepAdaptive
	tr.Steps.ErrorTolerance = 1e-30
	tr.Steps.MaxIterations = 1
	tr.Initialize()

	err := tr.Propagate(p, lattice.NewDrift("D", 0.1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepControl))
}

func TestEnvelopeTrackerCopy(t *testing.T) {
	t.Parallel()

	tr := NewEnvelopeTracker()
	tr.SetStartElementID("B")
	c := tr.Copy().(*EnvelopeTracker)
	c.SetStartElementID("")
	c.SpaceCharge = false
	c.Steps.Mode = StepAdaptive

	assert.Equal(t, "B", tr.StartElementID())
	assert.False(t, tr.Started())
	assert.True(t, tr.SpaceCharge)
	assert.Equal(t, StepFixed, tr.Steps.Mode)
	assert.Equal(t, TypeEnvelope, c.Type())
}

func TestSequenceWalkEnvelope(t *testing.T) {
	t.Parallel()

	seq := buildSequence(t, lattice.File{
		ID: "MEBT",
		Elements: []lattice.ElementSpec{
			{ID: "BEGIN_MEBT", Type: "marker"},
			{ID: "D1", Type: "drift", Length: 0.1},
			{ID: "Q1", Type: "quad", Length: 0.05, K1: 20},
			{ID: "D2", Type: "drift", Length: 0.1},
			{ID: "Q2", Type: "quad", Length: 0.05, K1: -20},
			{ID: "G1", Type: "rfgap", Frequency: bunchFreq, ETL: 1e5, Phase: -0.5},
			{ID: "END_MEBT", Type: "marker"},
		},
	})

	p := envelopeProbe(0.02)
	tr := NewEnvelopeTracker()
	tr.EmitGrowth = true
	tr.SetUpdatePolicy(UpdateExit)
	require.NoError(t, seq.Walk(tr, p))

	assert.Equal(t, 7, p.Trajectory().Len())
	assert.InDelta(t, seq.Length(), p.Position(), 1e-12)
	assert.Greater(t, p.KineticEnergy(), injectW)

	final, ok := p.Trajectory().Final()
	require.True(t, ok)
	assert.Equal(t, "END_MEBT", final.ElementID)
	assert.Len(t, final.Covariance, beam.Dim*beam.Dim)

}

func TestEnvelopeDriftQuarterSteps(t *testing.T) {
	t.Parallel()

	d := lattice.NewDrift("D", 1.0)
	p := envelopeProbe(0)
	ref := envelopeProbe(0)

	tr := NewEnvelopeTracker()
	tr.StepSize = 0.25
	require.Equal(t, 4, tr.SubStepCount(d))
	tr.Initialize()
	require.NoError(t, tr.Propagate(p, d))

	states := p.Trajectory().States()
	require.Len(t, states, 4)
	for i, s := range states {
		assert.InDelta(t, 0.25*float64(i+1), s.Position, 1e-12)
	}
	assert.InDelta(t, 1.0, tr.ElemPosition(), 1e-12)

	phi, err := d.TransferMap(ref, 1.0)
	require.NoError(t, err)
	assertCovNear(t, ref.Covariance().Propagate(phi), p.Covariance(), 1e-12)
}
