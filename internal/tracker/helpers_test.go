package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
)

var proton = probe.Species{Name: "proton", Charge: 1, RestEnergy: 938.272e6}

const (
	bunchFreq = 402.5e6
	injectW   = 2.5e6
)

func sampleTwiss() beam.Twiss3D {
	return beam.Twiss3D{
		{Alpha: -0.5, Beta: 0.8, Emittance: 2e-6},
		{Alpha: 0.3, Beta: 1.2, Emittance: 2.5e-6},
		{Alpha: 0.1, Beta: 0.6, Emittance: 3e-6},
	}
}

func envelopeProbe(current float64) *probe.EnvelopeProbe {
	b := probe.NewBunch(proton, current, bunchFreq, injectW)
	return probe.NewEnvelope(b, beam.BuildCovariance(sampleTwiss()))
}

func twissProbe(current float64) *probe.TwissProbe {
	b := probe.NewBunch(proton, current, bunchFreq, injectW)
	return probe.NewTwiss(b, sampleTwiss(), beam.Origin())
}

func gap() *lattice.IdealRfGap {
	return lattice.NewIdealRfGap("G1", 1e5, -30.0*math.Pi/180.0, bunchFreq)
}

func buildSequence(t *testing.T, f lattice.File) *lattice.Sequence {
	t.Helper()
	seq, err := f.Build()
	require.NoError(t, err)
	return seq
}

func noSpaceCharge(tr *EnvelopeTracker) *EnvelopeTracker {
	tr.SpaceCharge = false
	return tr
}

func elementIDs(p probe.Probe) []string {
	var ids []string
	for _, s := range p.Trajectory().States() {
		ids = append(ids, s.ElementID)
	}
	return ids
}

func assertCovNear(t *testing.T, want, got beam.CovarianceMatrix, rel float64) {
	t.Helper()
	m := want.PhaseMatrix.Clone()
	m.Set(beam.Hom, beam.Hom, 0)
	scale := m.Norm(2)
	require.Truef(t, want.EqualApprox(got.PhaseMatrix, rel*scale),
		"covariance mismatch\nwant %v\ngot  %v", want, got)
}
