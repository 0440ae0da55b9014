package tracker

import (
	"fmt"
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/specfn"
)

// uprightTolerance bounds the normalized spatial correlation below which the
// beam is treated as axis-aligned.
const uprightTolerance = 0.01

// spatialCorrelation returns Σ cij²/(cii·cjj) over the three off-diagonal
// spatial pairs.
func spatialCorrelation(tau beam.CovarianceMatrix) float64 {
	cxx, cyy, czz := tau.CentralCovXX(), tau.CentralCovYY(), tau.CentralCovZZ()
	cxy, cxz, cyz := tau.CentralCovXY(), tau.CentralCovXZ(), tau.CentralCovYZ()
	return cxy*cxy/(cxx*cyy) + cxz*cxz/(cxx*czz) + cyz*cyz/(cyy*czz)
}

// ScheffMatrix returns the linear space-charge kick of a uniform ellipsoid
// with second moments tau over path length l. gamma is the Lorentz factor and
// k the generalized perveance. The kick is the identity when k or l is zero.
func ScheffMatrix(l float64, tau beam.CovarianceMatrix, gamma, k float64) (beam.PhaseMatrix, error) {
	if k == 0 || l == 0 {
		return beam.Identity(), nil
	}

	if spatialCorrelation(tau) < uprightTolerance {
		return uprightScheff(l, tau, gamma, k)
	}

	ell, err := beam.NewEllipsoid(gamma, tau)
	if err != nil {
		return beam.PhaseMatrix{}, err
	}
	return ell.ScheffMatrix(l, k)
}

// uprightScheff evaluates the kick directly in lab coordinates for a beam
// whose principal axes coincide with x, y and z.
func uprightScheff(l float64, tau beam.CovarianceMatrix, gamma, k float64) (beam.PhaseMatrix, error) {
	cxx, cyy, czz := tau.CentralCovXX(), tau.CentralCovYY(), tau.CentralCovZZ()
	g2 := gamma * gamma

	rd := [3]float64{
		specfn.RD(cyy, g2*czz, cxx),
		specfn.RD(g2*czz, cxx, cyy),
		specfn.RD(cxx, cyy, g2*czz),
	}
	kick := beam.Identity()
	slopes := [3][2]beam.Index{{beam.Xp, beam.X}, {beam.Yp, beam.Y}, {beam.Zp, beam.Z}}
	for i, v := range rd {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return beam.PhaseMatrix{}, fmt.Errorf("%w: moments (%g, %g, %g)", beam.ErrDegenerateEllipsoid, cxx, cyy, czz)
		}
		kick.Set(slopes[i][0], slopes[i][1], gamma*l*k*v/beam.UniformBeamFactor)
	}

	t := beam.Translation(tau.Mean().Negate())
	ti := beam.Translation(tau.Mean())
	return ti.Times(kick).Times(t), nil
}

// ModTransferMatrixForDisplError conjugates phi by the displacement
// (dx, dy, dz). phi is returned unchanged when all offsets are zero.
func ModTransferMatrixForDisplError(dx, dy, dz float64, phi beam.PhaseMatrix) beam.PhaseMatrix {
	if dx == 0 && dy == 0 && dz == 0 {
		return phi
	}
	t := beam.SpatialTranslation(-dx, -dy, -dz)
	ti := beam.SpatialTranslation(dx, dy, dz)
	return ti.Times(phi).Times(t)
}
