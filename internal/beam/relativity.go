package beam

import "math"

// Physical constants in SI units.
const (
	LightSpeed   = 299792458.0      // m/s
	Permittivity = 8.8541878128e-12 // F/m
)

// GammaFromEnergies returns the Lorentz factor for kinetic energy w and rest
// energy er, both in eV.
func GammaFromEnergies(w, er float64) float64 {
	return 1.0 + w/er
}

// BetaFromGamma returns v/c for Lorentz factor g.
func BetaFromGamma(g float64) float64 {
	return math.Sqrt(1.0 - 1.0/(g*g))
}

// BetaGammaFromEnergies returns βγ for kinetic energy w and rest energy er.
func BetaGammaFromEnergies(w, er float64) float64 {
	r := w / er
	return math.Sqrt(r * (2.0 + r))
}
