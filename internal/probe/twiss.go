package probe

import "github.com/banshee-data/envtrack/internal/beam"

// TwissProbe represents the beam by per-plane Twiss parameters, a centroid,
// the accumulated betatron phase and the accumulated response matrix.
type TwissProbe struct {
	Bunch

	twiss    beam.Twiss3D
	phase    [3]float64
	centroid beam.PhaseVector
	response beam.PhaseMatrix
}

// NewTwiss returns a Twiss probe with the given envelope and centroid. The
// response matrix starts at the identity.
func NewTwiss(b Bunch, tw beam.Twiss3D, centroid beam.PhaseVector) *TwissProbe {
	centroid[beam.Hom] = 1.0
	return &TwissProbe{
		Bunch:    b,
		twiss:    tw,
		centroid: centroid,
		response: beam.Identity(),
	}
}

func (p *TwissProbe) Twiss() beam.Twiss3D            { return p.twiss }
func (p *TwissProbe) SetTwiss(tw beam.Twiss3D)       { p.twiss = tw }
func (p *TwissProbe) BetatronPhase() [3]float64      { return p.phase }
func (p *TwissProbe) SetBetatronPhase(ph [3]float64) { p.phase = ph }
func (p *TwissProbe) Centroid() beam.PhaseVector     { return p.centroid }
func (p *TwissProbe) SetCentroid(c beam.PhaseVector) { p.centroid = c }

// ResponseMatrix returns the transfer map accumulated from the start.
func (p *TwissProbe) ResponseMatrix() beam.PhaseMatrix { return p.response }

// SetResponseMatrix replaces the accumulated transfer map.
func (p *TwissProbe) SetResponseMatrix(m beam.PhaseMatrix) { p.response = m }

// Covariance builds the second-moment matrix implied by the Twiss parameters
// and centroid.
func (p *TwissProbe) Covariance() beam.CovarianceMatrix {
	return beam.BuildCovarianceWithCentroid(p.twiss, p.centroid)
}

// Update records the current state.
func (p *TwissProbe) Update() error {
	s := p.state()
	s.Twiss = p.twiss
	s.BetatronPhase = p.phase
	s.Centroid = p.centroid
	s.Covariance = p.Covariance().RowMajor()
	p.Trajectory().Append(s)
	return nil
}

// Copy returns an independent deep copy.
func (p *TwissProbe) Copy() *TwissProbe {
	out := *p
	out.Bunch = p.Bunch.clone()
	out.response = p.response.Clone()
	return &out
}
