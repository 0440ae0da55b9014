package specfn

import "gonum.org/v1/gonum/mathext"

// RD is Carlson's symmetric elliptic integral of the second kind,
//
//	RD(x,y,z) = 3/2 ∫ dt / [(t+x)^½ (t+y)^½ (t+z)^{3/2}]
//
// It is symmetric in x and y only. x and y must be non-negative with at most
// one of them zero, and z must be positive.
func RD(x, y, z float64) float64 {
	return mathext.EllipticRD(x, y, z)
}

// RF is Carlson's symmetric elliptic integral of the first kind.
func RF(x, y, z float64) float64 {
	return mathext.EllipticRF(x, y, z)
}
