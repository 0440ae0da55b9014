package beam

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Index addresses a phase-space coordinate.
type Index int

// Phase-space coordinate indices.
const (
	X Index = iota
	Xp
	Y
	Yp
	Z
	Zp
	Hom
)

// Dim is the dimension of homogeneous phase space.
const Dim = 7

// String returns the coordinate label.
func (i Index) String() string {
	switch i {
	case X:
		return "x"
	case Xp:
		return "xp"
	case Y:
		return "y"
	case Yp:
		return "yp"
	case Z:
		return "z"
	case Zp:
		return "zp"
	case Hom:
		return "hom"
	}
	return fmt.Sprintf("Index(%d)", int(i))
}

// PhaseVector is a point in homogeneous phase space. The Hom component of a
// well-formed vector is 1.
type PhaseVector [Dim]float64

// NewPhaseVector builds a homogeneous vector from the six phase coordinates.
func NewPhaseVector(x, xp, y, yp, z, zp float64) PhaseVector {
	return PhaseVector{x, xp, y, yp, z, zp, 1.0}
}

// Origin returns the homogeneous zero vector.
func Origin() PhaseVector {
	return PhaseVector{Hom: 1.0}
}

// Negate returns the vector with its six phase coordinates negated. The
// homogeneous coordinate is left at 1.
func (v PhaseVector) Negate() PhaseVector {
	out := v
	for i := X; i < Hom; i++ {
		out[i] = -v[i]
	}
	out[Hom] = 1.0
	return out
}

// OuterProd returns v·vᵀ.
func (v PhaseVector) OuterProd(w PhaseVector) PhaseMatrix {
	m := Zero()
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			m.d.Set(i, j, v[i]*w[j])
		}
	}
	return m
}

// PhaseMatrix is a 7×7 linear map on homogeneous phase space. The zero value
// is not usable; construct with Identity, Zero or NewPhaseMatrix.
type PhaseMatrix struct {
	d *mat.Dense
}

// Identity returns the 7×7 identity map.
func Identity() PhaseMatrix {
	m := Zero()
	for i := 0; i < Dim; i++ {
		m.d.Set(i, i, 1.0)
	}
	return m
}

// Zero returns the 7×7 zero matrix.
func Zero() PhaseMatrix {
	return PhaseMatrix{d: mat.NewDense(Dim, Dim, nil)}
}

// NewPhaseMatrix builds a matrix from 49 row-major values.
func NewPhaseMatrix(data []float64) (PhaseMatrix, error) {
	if len(data) != Dim*Dim {
		return PhaseMatrix{}, fmt.Errorf("phase matrix needs %d values, got %d", Dim*Dim, len(data))
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	return PhaseMatrix{d: mat.NewDense(Dim, Dim, buf)}, nil
}

// FromDense copies a 7×7 gonum matrix into a PhaseMatrix.
func FromDense(a mat.Matrix) PhaseMatrix {
	r, c := a.Dims()
	if r != Dim || c != Dim {
		panic(fmt.Sprintf("beam: FromDense needs %dx%d, got %dx%d", Dim, Dim, r, c))
	}
	m := Zero()
	m.d.Copy(a)
	return m
}

// Translation returns the map that adds v's phase coordinates to a vector.
func Translation(v PhaseVector) PhaseMatrix {
	m := Identity()
	for i := X; i < Hom; i++ {
		m.Set(i, Hom, v[i])
	}
	return m
}

// SpatialTranslation returns the map that shifts only x, y and z.
func SpatialTranslation(dx, dy, dz float64) PhaseMatrix {
	m := Identity()
	m.Set(X, Hom, dx)
	m.Set(Y, Hom, dy)
	m.Set(Z, Hom, dz)
	return m
}

// RotationProduct lifts a 3×3 spatial rotation R to phase space, acting as R
// on (x,y,z) and as R on (x',y',z').
func RotationProduct(r mat.Matrix) PhaseMatrix {
	m := Identity()
	pos := [3]Index{X, Y, Z}
	mom := [3]Index{Xp, Yp, Zp}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := r.At(i, j)
			m.Set(pos[i], pos[j], v)
			m.Set(mom[i], mom[j], v)
		}
	}
	return m
}

// At returns element (i,j).
func (m PhaseMatrix) At(i, j Index) float64 { return m.d.At(int(i), int(j)) }

// Set assigns element (i,j) in place.
func (m PhaseMatrix) Set(i, j Index, v float64) { m.d.Set(int(i), int(j), v) }

// Dense exposes the backing gonum matrix.
func (m PhaseMatrix) Dense() *mat.Dense { return m.d }

// Clone returns a deep copy.
func (m PhaseMatrix) Clone() PhaseMatrix {
	out := Zero()
	out.d.Copy(m.d)
	return out
}

// Times returns m·n, the map that applies n first and then m.
func (m PhaseMatrix) Times(n PhaseMatrix) PhaseMatrix {
	out := Zero()
	out.d.Mul(m.d, n.d)
	return out
}

// TimesVector returns m·v.
func (m PhaseMatrix) TimesVector(v PhaseVector) PhaseVector {
	var out PhaseVector
	for i := 0; i < Dim; i++ {
		var s float64
		for j := 0; j < Dim; j++ {
			s += m.d.At(i, j) * v[j]
		}
		out[i] = s
	}
	return out
}

// Plus returns m+n.
func (m PhaseMatrix) Plus(n PhaseMatrix) PhaseMatrix {
	out := Zero()
	out.d.Add(m.d, n.d)
	return out
}

// Minus returns m−n.
func (m PhaseMatrix) Minus(n PhaseMatrix) PhaseMatrix {
	out := Zero()
	out.d.Sub(m.d, n.d)
	return out
}

// Transpose returns mᵀ.
func (m PhaseMatrix) Transpose() PhaseMatrix {
	out := Zero()
	out.d.Copy(m.d.T())
	return out
}

// Inverse returns m⁻¹.
func (m PhaseMatrix) Inverse() (PhaseMatrix, error) {
	out := Zero()
	if err := out.d.Inverse(m.d); err != nil {
		return PhaseMatrix{}, fmt.Errorf("invert phase matrix: %w", err)
	}
	return out, nil
}

// ConjugateTrans returns φ·m·φᵀ, the propagation rule for second moments.
func (m PhaseMatrix) ConjugateTrans(phi PhaseMatrix) PhaseMatrix {
	tmp := mat.NewDense(Dim, Dim, nil)
	tmp.Mul(phi.d, m.d)
	out := Zero()
	out.d.Mul(tmp, phi.d.T())
	return out
}

// ConjugateInv returns φ⁻¹·m·φ.
func (m PhaseMatrix) ConjugateInv(phi PhaseMatrix) (PhaseMatrix, error) {
	inv, err := phi.Inverse()
	if err != nil {
		return PhaseMatrix{}, err
	}
	return inv.Times(m).Times(phi), nil
}

// Norm returns the matrix norm selected by ord (1, 2 for Frobenius, or
// math.Inf(1)), following gonum's mat.Norm conventions.
func (m PhaseMatrix) Norm(ord float64) float64 { return mat.Norm(m.d, ord) }

// EqualApprox reports whether every element of m and n agrees within tol.
func (m PhaseMatrix) EqualApprox(n PhaseMatrix, tol float64) bool {
	return mat.EqualApprox(m.d, n.d, tol)
}

// Equal reports exact element-wise equality.
func (m PhaseMatrix) Equal(n PhaseMatrix) bool { return mat.Equal(m.d, n.d) }

// RowMajor returns the 49 elements in row-major order.
func (m PhaseMatrix) RowMajor() []float64 {
	out := make([]float64, 0, Dim*Dim)
	for i := 0; i < Dim; i++ {
		for j := 0; j < Dim; j++ {
			out = append(out, m.d.At(i, j))
		}
	}
	return out
}

// String formats the matrix for diagnostics.
func (m PhaseMatrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.d, mat.Squeeze()))
}
