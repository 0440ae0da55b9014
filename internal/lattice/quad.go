package lattice

import (
	"math"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/probe"
)

// Quad is a magnetic quadrupole with normalized gradient K1 in 1/m². K1 > 0
// focuses in x.
type Quad struct {
	base
	K1    float64
	Align Alignment
}

// NewQuad returns a quadrupole.
func NewQuad(id string, l, k1 float64) *Quad {
	return &Quad{base: base{id: id, hardware: id, length: l}, K1: k1}
}

// Alignment returns the quadrupole displacement.
func (q *Quad) Alignment() (dx, dy, dz float64) {
	return q.Align.X, q.Align.Y, q.Align.Z
}

// RequiresSubSteps reports true; quadrupoles are always sub-stepped.
func (q *Quad) RequiresSubSteps() bool { return true }

// TransferMap returns the thick-lens quadrupole map over length l.
func (q *Quad) TransferMap(p probe.Probe, l float64) (beam.PhaseMatrix, error) {
	m := driftMap(l, p.Gamma())
	if q.K1 == 0 {
		return m, nil
	}
	fx := quadBlock(q.K1, l)
	fy := quadBlock(-q.K1, l)
	m.Set(beam.X, beam.X, fx[0][0])
	m.Set(beam.X, beam.Xp, fx[0][1])
	m.Set(beam.Xp, beam.X, fx[1][0])
	m.Set(beam.Xp, beam.Xp, fx[1][1])
	m.Set(beam.Y, beam.Y, fy[0][0])
	m.Set(beam.Y, beam.Yp, fy[0][1])
	m.Set(beam.Yp, beam.Y, fy[1][0])
	m.Set(beam.Yp, beam.Yp, fy[1][1])
	return m, nil
}

// quadBlock is the 2×2 map for x'' = −k·x.
func quadBlock(k, l float64) [2][2]float64 {
	if k > 0 {
		s := math.Sqrt(k)
		c, sn := math.Cos(s*l), math.Sin(s*l)
		return [2][2]float64{{c, sn / s}, {-s * sn, c}}
	}
	s := math.Sqrt(-k)
	c, sn := math.Cosh(s*l), math.Sinh(s*l)
	return [2][2]float64{{c, sn / s}, {s * sn, c}}
}
