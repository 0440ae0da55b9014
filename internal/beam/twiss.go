package beam

import "math"

// Axis names one of the three phase planes.
type Axis int

// Phase planes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the phase planes in storage order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// Position returns the position coordinate of the plane.
func (a Axis) Position() Index { return Index(2 * int(a)) }

// Slope returns the slope coordinate of the plane.
func (a Axis) Slope() Index { return Index(2*int(a) + 1) }

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "?"
}

// Twiss holds the Courant-Snyder parameters of one phase plane. Emittance is
// the RMS (unnormalized) value in m·rad.
type Twiss struct {
	Alpha     float64 `json:"alpha" yaml:"alpha"`
	Beta      float64 `json:"beta" yaml:"beta"`
	Emittance float64 `json:"emittance" yaml:"emittance"`
}

// Gamma returns the dependent Twiss parameter (1+α²)/β.
func (t Twiss) Gamma() float64 {
	return (1.0 + t.Alpha*t.Alpha) / t.Beta
}

// Envelope returns the RMS beam size sqrt(βε).
func (t Twiss) Envelope() float64 {
	return math.Sqrt(t.Beta * t.Emittance)
}

// Correlation returns the 2×2 second-moment block
//
//	| βε  −αε |
//	| −αε  γε |
func (t Twiss) Correlation() [2][2]float64 {
	e := t.Emittance
	return [2][2]float64{
		{t.Beta * e, -t.Alpha * e},
		{-t.Alpha * e, t.Gamma() * e},
	}
}

// Twiss3D is the set of Twiss parameters for the x, y and z planes.
type Twiss3D [3]Twiss

// Get returns the parameters for plane a.
func (t Twiss3D) Get(a Axis) Twiss { return t[a] }
