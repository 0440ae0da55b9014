package beam

// Trace3D works in mm, mrad, degrees of RF phase and keV, and quotes
// effective (5×RMS) emittances.
const (
	xalToTraceDimension = 1000.0
	traceToXalDimension = 0.001
)

// TraceConverter converts Twiss parameters between SI units and Trace3D units
// for a given RF frequency (Hz), rest energy (eV) and kinetic energy (eV).
type TraceConverter struct {
	frequency  float64
	restEnergy float64
	kinetic    float64

	lambda float64
	gamma  float64
	vnorm  float64
}

// NewTraceConverter returns a converter for the given reference.
func NewTraceConverter(frequency, restEnergy, kinetic float64) *TraceConverter {
	c := &TraceConverter{frequency: frequency, restEnergy: restEnergy, kinetic: kinetic}
	c.refresh()
	return c
}

func (c *TraceConverter) refresh() {
	c.lambda = LightSpeed / c.frequency
	c.gamma = GammaFromEnergies(c.kinetic, c.restEnergy)
	c.vnorm = BetaFromGamma(c.gamma)
}

// SetKineticEnergy changes the reference kinetic energy.
func (c *TraceConverter) SetKineticEnergy(w float64) {
	if c.kinetic == w {
		return
	}
	c.kinetic = w
	c.refresh()
}

// longitudinal conversion factors: m per degree, dp/p per eV, and 1/γ².
func (c *TraceConverter) factors() (t1, t2, t3 float64) {
	t1 = c.vnorm * c.lambda / 360.0
	t2 = (c.gamma / (c.gamma + 1.0)) / c.kinetic
	t3 = 1.0 / (c.gamma * c.gamma)
	return t1, t2, t3
}

// ToTraceTransverse converts SI transverse Twiss to Trace3D (mm·mrad,
// effective emittance).
func (c *TraceConverter) ToTraceTransverse(t Twiss) Twiss {
	return Twiss{
		Alpha:     t.Alpha,
		Beta:      t.Beta,
		Emittance: t.Emittance * xalToTraceDimension * xalToTraceDimension * 5.0,
	}
}

// FromTraceTransverse is the inverse of ToTraceTransverse.
func (c *TraceConverter) FromTraceTransverse(t Twiss) Twiss {
	return Twiss{
		Alpha:     t.Alpha,
		Beta:      t.Beta,
		Emittance: t.Emittance * traceToXalDimension * traceToXalDimension / 5.0,
	}
}

// ToTraceLongitudinal converts SI longitudinal Twiss (m/rad, m·rad) to
// Trace3D (deg/keV, deg·keV effective emittance).
func (c *TraceConverter) ToTraceLongitudinal(t Twiss) Twiss {
	t1, t2, t3 := c.factors()
	cdeg := t1 * t2 * t3
	beta := t.Beta * t3 * t2 / t1 * 1000.0
	emit := t.Emittance / cdeg / 1000.0 * 5.0
	return Twiss{Alpha: -t.Alpha, Beta: beta, Emittance: emit}
}

// FromTraceLongitudinal is the inverse of ToTraceLongitudinal.
func (c *TraceConverter) FromTraceLongitudinal(t Twiss) Twiss {
	t1, t2, t3 := c.factors()
	cdeg := t1 * t2 * t3
	beta := t.Beta * 0.001 * t1 / t2 / t3
	emit := t.Emittance * 1000.0 / 5.0 * cdeg
	return Twiss{Alpha: -t.Alpha, Beta: beta, Emittance: emit}
}
