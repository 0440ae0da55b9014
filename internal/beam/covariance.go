package beam

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CovarianceMatrix is the homogeneous second-moment matrix ⟨z·zᵀ⟩ of a beam.
// The last column holds the first moments and element (Hom,Hom) is 1.
type CovarianceMatrix struct {
	PhaseMatrix
}

// NewCovariance wraps m after checking symmetry to tol.
func NewCovariance(m PhaseMatrix, tol float64) (CovarianceMatrix, error) {
	for i := 0; i < Dim; i++ {
		for j := i + 1; j < Dim; j++ {
			a, b := m.d.At(i, j), m.d.At(j, i)
			if math.Abs(a-b) > tol*math.Max(1.0, math.Max(math.Abs(a), math.Abs(b))) {
				return CovarianceMatrix{}, fmt.Errorf("covariance matrix not symmetric at (%d,%d): %g != %g", i, j, a, b)
			}
		}
	}
	return CovarianceMatrix{PhaseMatrix: m.Clone()}, nil
}

// DiagonalCovariance builds a centred covariance with the given second moments
// on the diagonal, in the order ⟨x²⟩,⟨x'²⟩,⟨y²⟩,⟨y'²⟩,⟨z²⟩,⟨z'²⟩.
func DiagonalCovariance(moments [6]float64) CovarianceMatrix {
	m := Zero()
	for i, v := range moments {
		m.d.Set(i, i, v)
	}
	m.Set(Hom, Hom, 1.0)
	return CovarianceMatrix{PhaseMatrix: m}
}

// BuildCovariance assembles a centred covariance from per-plane Twiss
// parameters.
func BuildCovariance(tw Twiss3D) CovarianceMatrix {
	m := Zero()
	for _, a := range Axes {
		c := tw[a].Correlation()
		p, s := a.Position(), a.Slope()
		m.Set(p, p, c[0][0])
		m.Set(p, s, c[0][1])
		m.Set(s, p, c[1][0])
		m.Set(s, s, c[1][1])
	}
	m.Set(Hom, Hom, 1.0)
	return CovarianceMatrix{PhaseMatrix: m}
}

// BuildCovarianceWithCentroid assembles ⟨z·zᵀ⟩ = σ + z̄·z̄ᵀ from Twiss
// parameters and a centroid.
func BuildCovarianceWithCentroid(tw Twiss3D, centroid PhaseVector) CovarianceMatrix {
	sig := BuildCovariance(tw)
	sig.Set(Hom, Hom, 0.0)
	c := centroid
	c[Hom] = 1.0
	return CovarianceMatrix{PhaseMatrix: sig.Plus(c.OuterProd(c))}
}

// Clone returns a deep copy.
func (c CovarianceMatrix) Clone() CovarianceMatrix {
	return CovarianceMatrix{PhaseMatrix: c.PhaseMatrix.Clone()}
}

// Propagate returns φ·τ·φᵀ.
func (c CovarianceMatrix) Propagate(phi PhaseMatrix) CovarianceMatrix {
	return CovarianceMatrix{PhaseMatrix: c.ConjugateTrans(phi)}
}

// Mean returns the first moments stored in the homogeneous column.
func (c CovarianceMatrix) Mean() PhaseVector {
	var v PhaseVector
	for i := X; i < Hom; i++ {
		v[i] = c.At(i, Hom)
	}
	v[Hom] = 1.0
	return v
}

func (c CovarianceMatrix) central(i, j Index) float64 {
	return c.At(i, j) - c.At(i, Hom)*c.At(j, Hom)
}

// CentralCovXX returns ⟨x²⟩ − ⟨x⟩².
func (c CovarianceMatrix) CentralCovXX() float64 { return c.central(X, X) }

// CentralCovYY returns ⟨y²⟩ − ⟨y⟩².
func (c CovarianceMatrix) CentralCovYY() float64 { return c.central(Y, Y) }

// CentralCovZZ returns ⟨z²⟩ − ⟨z⟩².
func (c CovarianceMatrix) CentralCovZZ() float64 { return c.central(Z, Z) }

// CentralCovXY returns ⟨xy⟩ − ⟨x⟩⟨y⟩.
func (c CovarianceMatrix) CentralCovXY() float64 { return c.central(X, Y) }

// CentralCovXZ returns ⟨xz⟩ − ⟨x⟩⟨z⟩.
func (c CovarianceMatrix) CentralCovXZ() float64 { return c.central(X, Z) }

// CentralCovYZ returns ⟨yz⟩ − ⟨y⟩⟨z⟩.
func (c CovarianceMatrix) CentralCovYZ() float64 { return c.central(Y, Z) }

// SpatialCovariance returns the central 3×3 configuration-space covariance.
func (c CovarianceMatrix) SpatialCovariance() *mat.SymDense {
	xx, yy, zz := c.CentralCovXX(), c.CentralCovYY(), c.CentralCovZZ()
	xy, xz, yz := c.CentralCovXY(), c.CentralCovXZ(), c.CentralCovYZ()
	return mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
}

// CentralCovariance returns τ − z̄·z̄ᵀ with the homogeneous diagonal restored.
func (c CovarianceMatrix) CentralCovariance() CovarianceMatrix {
	mean := c.Mean()
	out := c.Minus(mean.OuterProd(mean))
	out.Set(Hom, Hom, 1.0)
	return CovarianceMatrix{PhaseMatrix: out}
}

// RmsEmittances returns the RMS emittance of each phase plane.
func (c CovarianceMatrix) RmsEmittances() [3]float64 {
	sig := c.CentralCovariance()
	var out [3]float64
	for _, a := range Axes {
		p, s := a.Position(), a.Slope()
		det := sig.At(p, p)*sig.At(s, s) - sig.At(p, s)*sig.At(s, p)
		out[a] = math.Sqrt(det)
	}
	return out
}

// Twiss extracts the per-plane Twiss parameters of the central moments.
func (c CovarianceMatrix) Twiss() Twiss3D {
	sig := c.CentralCovariance()
	emit := c.RmsEmittances()
	var tw Twiss3D
	for _, a := range Axes {
		p, s := a.Position(), a.Slope()
		e := emit[a]
		tw[a] = Twiss{
			Alpha:     -sig.At(p, s) / e,
			Beta:      sig.At(p, p) / e,
			Emittance: e,
		}
	}
	return tw
}

// Sigmas returns the RMS sizes σx, σy, σz.
func (c CovarianceMatrix) Sigmas() [3]float64 {
	return [3]float64{
		math.Sqrt(c.CentralCovXX()),
		math.Sqrt(c.CentralCovYY()),
		math.Sqrt(c.CentralCovZZ()),
	}
}
