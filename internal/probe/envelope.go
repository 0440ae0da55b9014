package probe

import "github.com/banshee-data/envtrack/internal/beam"

// EnvelopeProbe represents the beam by its 7×7 second-moment matrix.
type EnvelopeProbe struct {
	Bunch
	cov beam.CovarianceMatrix
}

// NewEnvelope returns an envelope probe with initial covariance cov.
func NewEnvelope(b Bunch, cov beam.CovarianceMatrix) *EnvelopeProbe {
	return &EnvelopeProbe{Bunch: b, cov: cov.Clone()}
}

// Covariance returns the current second-moment matrix.
func (p *EnvelopeProbe) Covariance() beam.CovarianceMatrix { return p.cov }

// SetCovariance replaces the second-moment matrix.
func (p *EnvelopeProbe) SetCovariance(c beam.CovarianceMatrix) { p.cov = c }

// Twiss returns the Twiss parameters of the central moments.
func (p *EnvelopeProbe) Twiss() beam.Twiss3D { return p.cov.Twiss() }

// Update records the current state.
func (p *EnvelopeProbe) Update() error {
	s := p.state()
	s.Twiss = p.cov.Twiss()
	s.Centroid = p.cov.Mean()
	s.Covariance = p.cov.RowMajor()
	p.Trajectory().Append(s)
	return nil
}

// Copy returns an independent deep copy.
func (p *EnvelopeProbe) Copy() *EnvelopeProbe {
	return &EnvelopeProbe{Bunch: p.Bunch.clone(), cov: p.cov.Clone()}
}
