package specfn

import "math"

// SmallArg is the magnitude below which series expansions replace the closed
// forms that are 0/0 at the origin.
const SmallArg = 0.1

// J0 is the cylindrical Bessel function of the first kind, order 0.
func J0(x float64) float64 { return math.J0(x) }

// J1 is the cylindrical Bessel function of the first kind, order 1.
func J1(x float64) float64 { return math.J1(x) }

// J2 is the cylindrical Bessel function of the first kind, order 2.
func J2(x float64) float64 { return math.Jn(2, x) }

// J3 is the cylindrical Bessel function of the first kind, order 3.
func J3(x float64) float64 { return math.Jn(3, x) }

// Jn is the cylindrical Bessel function of the first kind, order n.
func Jn(n int, x float64) float64 { return math.Jn(n, x) }

// Sinc returns sin(x)/x, with Sinc(0) = 1.
func Sinc(x float64) float64 {
	if math.Abs(x) < SmallArg {
		x2 := x * x
		x4 := x2 * x2
		return 1.0 - x2/6.0 + x4/120.0 - x2*x4/5040.0
	}
	return math.Sin(x) / x
}

// SphJ0 is the spherical Bessel function j0, identical to Sinc.
func SphJ0(x float64) float64 { return Sinc(x) }

// SphJ1 is the spherical Bessel function j1.
func SphJ1(x float64) float64 {
	if math.Abs(x) < SmallArg {
		x2 := x * x
		x3 := x2 * x
		x5 := x2 * x3
		x7 := x2 * x5
		return x/3.0 - x3/30.0 + x5/840.0 - x7/45360.0
	}
	return math.Sin(x)/(x*x) - math.Cos(x)/x
}

// SphJ2 is the spherical Bessel function j2.
func SphJ2(x float64) float64 {
	if math.Abs(x) < SmallArg {
		x2 := x * x
		x4 := x2 * x2
		x6 := x2 * x4
		x8 := x2 * x6
		return x2/15.0 - x4/210.0 + x6/7560.0 - x8/498960.0
	}
	x2 := x * x
	return (3.0/x2-1.0)*math.Sin(x)/x - 3.0*math.Cos(x)/x2
}

// SphJ3 is the spherical Bessel function j3.
func SphJ3(x float64) float64 {
	if math.Abs(x) < SmallArg {
		x2 := x * x
		x3 := x2 * x
		x5 := x2 * x3
		x7 := x2 * x5
		return x3/105.0 - x5/1890.0 + x7/83160.0
	}
	x2 := x * x
	x3 := x2 * x
	return (15.0/x3-6.0/x)*math.Sin(x)/x + (1.0-15.0/x2)*math.Cos(x)/x
}

// SphJ4 is the spherical Bessel function j4.
func SphJ4(x float64) float64 {
	if math.Abs(x) < SmallArg {
		x2 := x * x
		x4 := x2 * x2
		x6 := x2 * x4
		x8 := x2 * x6
		return x4/945.0 - x6/20790.0 + x8/1081080.0
	}
	x2 := x * x
	x3 := x2 * x
	x4 := x2 * x2
	return (1.0-45.0/x2+105.0/x4)*math.Sin(x)/x + (10.0/x-105.0/x3)*math.Cos(x)/x
}
