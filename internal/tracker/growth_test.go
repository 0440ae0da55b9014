package tracker

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/specfn"
)

var allModels = []EmitGrowthModel{ModelTrace3D, ModelUniform1D, ModelGaussian1D, ModelUniform3D, ModelGaussian3D}

var allPlanes = []PhasePlane{PlaneTransverse, PlaneLongitudinal}

func TestKernelContinuityAtSmallArg(t *testing.T) {
	t.Parallel()

	for _, m := range allModels {
		for _, pl := range allPlanes {
			k, err := kernelFor(m, pl)
			require.NoError(t, err)
			x := specfn.SmallArg
			assert.InDeltaf(t, k.exact(x), k.series(x), 1e-8, "%s %s at %g", m, pl, x)
			below := math.Nextafter(x, 0)
			assert.InDeltaf(t, k.exact(x), k.eval(below), 1e-8, "%s %s across threshold", m, pl)
		}
	}
}

func TestTransformAtZero(t *testing.T) {
	t.Parallel()

	for _, m := range allModels {
		ft, err := m.TransFourierTransform(0)
		require.NoError(t, err)
		fz, err := m.LongFourierTransform(0)
		require.NoError(t, err)
		assert.Equalf(t, 1.0, ft, "%s transverse", m)
		assert.Equalf(t, 1.0, fz, "%s longitudinal", m)

		for _, pl := range allPlanes {
			g, err := m.EmitGrowthFunction(pl, -0.5, 0)
			require.NoError(t, err)
			assert.Equalf(t, 0.0, g, "%s %s growth at zero spread", m, pl)
		}
	}
}

func TestTransformKnownValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		m     EmitGrowthModel
		plane PhasePlane
		x     float64
		want  float64
	}{
		{ModelGaussian3D, PlaneTransverse, 1, math.Exp(-0.1)},
		{ModelGaussian3D, PlaneLongitudinal, 1, 0.8 * math.Exp(-0.1)},
		{ModelGaussian1D, PlaneTransverse, 2, math.Exp(-0.5)},
		{ModelGaussian1D, PlaneLongitudinal, 2, 0},
		{ModelUniform1D, PlaneTransverse, 1, 2 * math.J1(1)},
		{ModelTrace3D, PlaneLongitudinal, 1, 1 - 1.0/12.0},
		{ModelUniform3D, PlaneTransverse, 1, 15 * specfn.SphJ2(1)},
		{ModelTrace3D, PlaneTransverse, 1, 15 * specfn.SphJ2(1)},
	}
	for _, tt := range tests {
		got, err := tt.m.FourierTransform(tt.plane, tt.x)
		require.NoError(t, err)
		assert.InDeltaf(t, tt.want, got, 1e-13, "%s %s(%g)", tt.m, tt.plane, tt.x)
	}
}

func TestEmitGrowthFunction(t *testing.T) {
	t.Parallel()

	const dphi = 0.4
	for _, m := range allModels {
		f, err := m.TransFourierTransform(dphi)
		require.NoError(t, err)
		f2, err := m.TransFourierTransform(2 * dphi)
		require.NoError(t, err)

		// On crest the sin² term drops out.
		g, err := m.EmitGrowthFunction(PlaneTransverse, 0, dphi)
		require.NoError(t, err)
		assert.InDeltaf(t, 0.5*(1-f2), g, 1e-15, "%s on crest", m)

		s := math.Sin(-math.Pi / 6)
		g, err = m.EmitGrowthFunction(PlaneTransverse, -math.Pi/6, dphi)
		require.NoError(t, err)
		assert.InDeltaf(t, 0.5*(1-f2)-s*s*(f*f-f2), g, 1e-15, "%s at -30°", m)
		assert.Greaterf(t, g, 0.0, "%s growth must be positive", m)
	}
}

func TestParseEmitGrowthModel(t *testing.T) {
	t.Parallel()

	for _, m := range allModels {
		got, err := ParseEmitGrowthModel(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseEmitGrowthModel("gaussian3d")
	require.NoError(t, err)
	assert.Equal(t, ModelGaussian3D, got)

	_, err = ParseEmitGrowthModel("LORENTZIAN")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestUnknownModelAndPlane(t *testing.T) {
	t.Parallel()

	_, err := ModelTrace3D.FourierTransform(PhasePlane(3), 0.2)
	assert.True(t, errors.Is(err, ErrUnknownPlane))

	_, err = EmitGrowthModel(42).TransFourierTransform(0.2)
	assert.True(t, errors.Is(err, ErrUnknownModel))

	_, err = EmitGrowthModel(42).EmitGrowthFunction(PlaneLongitudinal, 0, 0.2)
	assert.True(t, errors.Is(err, ErrUnknownModel))
}
