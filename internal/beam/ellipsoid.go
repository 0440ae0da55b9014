package beam

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/envtrack/internal/specfn"
)

// UniformBeamFactor converts RMS moments to the semi-axes of the equivalent
// uniformly charged ellipsoid, 5^(3/2).
var UniformBeamFactor = math.Pow(5.0, 1.5)

// ErrDegenerateEllipsoid is returned when the spatial covariance has no valid
// principal-axis decomposition.
var ErrDegenerateEllipsoid = errors.New("degenerate beam ellipsoid")

// DefocusConstants returns the linear space-charge defocusing constants of a
// uniform ellipsoid with principal second moments m, for Lorentz factor
// gamma. Each constant is γ·RD(cyclic)/5^1.5.
func DefocusConstants(gamma float64, m [3]float64) [3]float64 {
	a2, b2, c2 := m[0], m[1], m[2]
	return [3]float64{
		gamma * specfn.RD(b2, c2, a2) / UniformBeamFactor,
		gamma * specfn.RD(c2, a2, b2) / UniformBeamFactor,
		gamma * specfn.RD(a2, b2, c2) / UniformBeamFactor,
	}
}

// Ellipsoid is the equivalent uniform beam ellipsoid of a covariance matrix,
// described in the beam rest frame and aligned with its principal axes.
type Ellipsoid struct {
	gamma float64
	lab   CovarianceMatrix
	beam  CovarianceMatrix

	lorentz   PhaseMatrix
	translate PhaseMatrix
	rotate    PhaseMatrix

	moments [3]float64
	defocus [3]float64
}

// NewEllipsoid builds the ellipsoid for lab-frame covariance tau at Lorentz
// factor gamma.
func NewEllipsoid(gamma float64, tau CovarianceMatrix) (*Ellipsoid, error) {
	e := &Ellipsoid{gamma: gamma, lab: tau}

	e.lorentz = Identity()
	e.lorentz.Set(Z, Z, gamma)
	e.lorentz.Set(Zp, Zp, gamma)

	e.beam = tau.Propagate(e.lorentz)
	e.translate = Translation(e.beam.Mean().Negate())

	var eig mat.EigenSym
	if ok := eig.Factorize(e.beam.SpatialCovariance(), true); !ok {
		return nil, fmt.Errorf("%w: eigen-decomposition failed", ErrDegenerateEllipsoid)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	copy(e.moments[:], vals)
	for i, v := range e.moments {
		if !(v > 0) {
			return nil, fmt.Errorf("%w: second moment %d is %g", ErrDegenerateEllipsoid, i, v)
		}
	}
	e.rotate = RotationProduct(vecs.T())
	e.defocus = DefocusConstants(gamma, e.moments)
	return e, nil
}

// NewUprightEllipsoid builds an axis-aligned ellipsoid from lab-frame
// centroid and principal second moments without any decomposition.
func NewUprightEllipsoid(gamma float64, mean [3]float64, moments [3]float64) *Ellipsoid {
	e := &Ellipsoid{gamma: gamma, moments: moments}
	e.lorentz = Identity()
	e.lorentz.Set(Z, Z, gamma)
	e.lorentz.Set(Zp, Zp, gamma)
	e.translate = SpatialTranslation(-mean[0], -mean[1], -mean[2])
	e.rotate = Identity()
	e.defocus = DefocusConstants(gamma, moments)
	return e
}

// Gamma returns the Lorentz factor.
func (e *Ellipsoid) Gamma() float64 { return e.gamma }

// Moments returns the principal second moments in the beam frame.
func (e *Ellipsoid) Moments() [3]float64 { return e.moments }

// SemiAxes returns the square roots of the principal second moments.
func (e *Ellipsoid) SemiAxes() [3]float64 {
	return [3]float64{math.Sqrt(e.moments[0]), math.Sqrt(e.moments[1]), math.Sqrt(e.moments[2])}
}

// Defocus returns the defocusing constants along the principal axes.
func (e *Ellipsoid) Defocus() [3]float64 { return e.defocus }

// BeamCovariance returns the covariance seen in the beam frame.
func (e *Ellipsoid) BeamCovariance() CovarianceMatrix { return e.beam }

// LabToBeam returns M = R·T·L, the map from lab coordinates to the centred,
// principal-axis beam frame.
func (e *Ellipsoid) LabToBeam() PhaseMatrix {
	return e.rotate.Times(e.translate.Times(e.lorentz))
}

func (e *Ellipsoid) conjugate(local PhaseMatrix) (PhaseMatrix, error) {
	m := e.LabToBeam()
	mi, err := m.Inverse()
	if err != nil {
		return PhaseMatrix{}, err
	}
	return mi.Times(local.Times(m)), nil
}

// ScheffMatrix returns the lab-frame linear space-charge kick for a path of
// length l and beam perveance k.
func (e *Ellipsoid) ScheffMatrix(l, k float64) (PhaseMatrix, error) {
	if k == 0 {
		return Identity(), nil
	}
	f0 := Identity()
	s := l * k
	f0.Set(Xp, X, s*e.defocus[0])
	f0.Set(Yp, Y, s*e.defocus[1])
	f0.Set(Zp, Z, s*e.defocus[2])
	return e.conjugate(f0)
}

// ScheffGenerator returns the lab-frame generator of the space-charge kick per
// unit length for perveance k.
func (e *Ellipsoid) ScheffGenerator(k float64) (PhaseMatrix, error) {
	if k == 0 {
		return Zero(), nil
	}
	g0 := Zero()
	g0.Set(Xp, X, k*e.defocus[0])
	g0.Set(Yp, Y, k*e.defocus[1])
	g0.Set(Zp, Z, k*e.defocus[2])
	return e.conjugate(g0)
}
