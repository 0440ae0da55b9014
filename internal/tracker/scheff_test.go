package tracker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/lattice"
)

func uprightCov() beam.CovarianceMatrix {
	return beam.DiagonalCovariance([6]float64{1e-6, 1e-4, 4e-6, 1e-4, 9e-6, 1e-4})
}

func TestScheffMatrixIdentityWithoutCharge(t *testing.T) {
	t.Parallel()

	for _, tau := range []beam.CovarianceMatrix{uprightCov(), beam.BuildCovariance(sampleTwiss())} {
		m, err := ScheffMatrix(0.01, tau, 1.003, 0)
		require.NoError(t, err)
		assert.True(t, m.Equal(beam.Identity()))

		m, err = ScheffMatrix(0, tau, 1.003, 1e-8)
		require.NoError(t, err)
		assert.True(t, m.Equal(beam.Identity()))
	}
}

func TestScheffMatrixUprightMatchesEllipsoid(t *testing.T) {
	t.Parallel()

	const (
		gamma = 1.0027
		k     = 1e-8
		l     = 0.01
	)
	tau := uprightCov()
	require.Less(t, spatialCorrelation(tau), uprightTolerance)

	got, err := ScheffMatrix(l, tau, gamma, k)
	require.NoError(t, err)

	ell, err := beam.NewEllipsoid(gamma, tau)
	require.NoError(t, err)
	want, err := ell.ScheffMatrix(l, k)
	require.NoError(t, err)

	assert.Truef(t, want.EqualApprox(got, 1e-9*want.Norm(2)), "want %v\ngot %v", want, got)
	assert.Greater(t, got.At(beam.Xp, beam.X), 0.0)
	assert.Greater(t, got.At(beam.Xp, beam.X), got.At(beam.Yp, beam.Y))
}

func TestScheffMatrixContinuousAtUprightThreshold(t *testing.T) {
	t.Parallel()

	const (
		gamma = 1.0027
		k     = 1e-8
		l     = 0.01
		eps   = 1e-6
	)
	// withCorrelation couples x and y so that the spatial correlation is c.
	withCorrelation := func(c float64) beam.CovarianceMatrix {
		tau := uprightCov()
		cxy := math.Sqrt(c * tau.At(beam.X, beam.X) * tau.At(beam.Y, beam.Y))
		tau.Set(beam.X, beam.Y, cxy)
		tau.Set(beam.Y, beam.X, cxy)
		return tau
	}

	below := withCorrelation(uprightTolerance * (1 - eps))
	above := withCorrelation(uprightTolerance * (1 + eps))
	require.Less(t, spatialCorrelation(below), uprightTolerance)
	require.GreaterOrEqual(t, spatialCorrelation(above), uprightTolerance)

	up, err := ScheffMatrix(l, below, gamma, k)
	require.NoError(t, err)
	ell, err := ScheffMatrix(l, above, gamma, k)
	require.NoError(t, err)

	slopes := []beam.Index{beam.Xp, beam.Yp, beam.Zp}
	positions := []beam.Index{beam.X, beam.Y, beam.Z}
	var diff, norm float64
	for _, i := range slopes {
		for _, j := range positions {
			d := up.At(i, j) - ell.At(i, j)
			diff += d * d
			norm += ell.At(i, j) * ell.At(i, j)
		}
	}
	// Dropping the tilt costs about 4.5% of the kick at the threshold.
	assert.Less(t, math.Sqrt(diff/norm), 0.06)
	for n, i := range slopes {
		j := positions[n]
		assert.InEpsilonf(t, ell.At(i, j), up.At(i, j), 0.01, "kick %s/%s", i, j)
	}
	assert.Zero(t, up.At(beam.Xp, beam.Y))
	assert.Less(t, ell.At(beam.Xp, beam.Y), 0.0)
}

func TestScheffMatrixTiltedUsesEllipsoid(t *testing.T) {
	t.Parallel()

	tau := beam.BuildCovariance(sampleTwiss())
	tau.Set(beam.X, beam.Y, 1e-6)
	tau.Set(beam.Y, beam.X, 1e-6)
	require.Greater(t, spatialCorrelation(tau), uprightTolerance)

	got, err := ScheffMatrix(0.01, tau, 1.0027, 1e-8)
	require.NoError(t, err)

	ell, err := beam.NewEllipsoid(1.0027, tau)
	require.NoError(t, err)
	want, err := ell.ScheffMatrix(0.01, 1e-8)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.NotZero(t, got.At(beam.Xp, beam.Y))
}

func TestScheffMatrixKeepsCentroid(t *testing.T) {
	t.Parallel()

	mean := beam.NewPhaseVector(1e-3, 0, -2e-3, 0, 5e-4, 0)
	tau := beam.BuildCovarianceWithCentroid(beam.Twiss3D{
		{Alpha: 0, Beta: 1, Emittance: 1e-6},
		{Alpha: 0, Beta: 2, Emittance: 1e-6},
		{Alpha: 0, Beta: 3, Emittance: 1e-6},
	}, mean)

	m, err := ScheffMatrix(0.01, tau, 1.0027, 1e-8)
	require.NoError(t, err)
	out := m.TimesVector(mean)
	for i := beam.X; i <= beam.Hom; i++ {
		assert.InDeltaf(t, mean[i], out[i], 1e-12, "component %s", i)
	}
}

func TestScheffMatrixDegenerate(t *testing.T) {
	t.Parallel()

	tau := beam.DiagonalCovariance([6]float64{0, 1e-4, 0, 1e-4, 1e-6, 1e-4})
	_, err := ScheffMatrix(0.01, tau, 1.0027, 1e-8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, beam.ErrDegenerateEllipsoid))
}

func TestModTransferMatrixForDisplError(t *testing.T) {
	t.Parallel()

	p := envelopeProbe(0)
	q := lattice.NewQuad("Q", 0.1, 12.5)
	phi, err := q.TransferMap(p, 0.1)
	require.NoError(t, err)

	same := ModTransferMatrixForDisplError(0, 0, 0, phi)
	assert.Same(t, phi.Dense(), same.Dense())

	const dx = 1e-3
	mod := ModTransferMatrixForDisplError(dx, 0, 0, phi)
	assert.False(t, mod.Equal(phi))

	// A particle on the displaced magnetic axis passes straight through.
	onAxis := beam.NewPhaseVector(dx, 0, 0, 0, 0, 0)
	out := mod.TimesVector(onAxis)
	assert.InDelta(t, dx, out[beam.X], 1e-15)
	assert.InDelta(t, 0, out[beam.Xp], 1e-15)

	// The reference particle is steered towards the quad centre.
	out = mod.TimesVector(beam.Origin())
	assert.Greater(t, out[beam.Xp], 0.0)
}
