package tracker

import (
	"fmt"

	"github.com/banshee-data/envtrack/internal/config"
)

// New builds the tracker named by rec.Type and configures it from rec.
func New(rec *config.AlgorithmRecord) (Tracker, error) {
	switch rec.Type {
	case TypeEnvelope:
		t := NewEnvelopeTracker()
		if err := t.Load(rec); err != nil {
			return nil, err
		}
		return t, nil
	case TypeTwiss:
		t := NewTwissTracker()
		if err := t.Load(rec); err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: unknown algorithm type %q", config.ErrDataFormat, rec.Type)
}

// Load reads the driver attributes from rec.
func (d *Driver) Load(rec *config.AlgorithmRecord) error {
	pol := UpdatePolicy(rec.GetUpdate())
	if !pol.Valid() {
		return fmt.Errorf("%w: update policy %d", config.ErrDataFormat, int(pol))
	}
	d.version = rec.GetVersion()
	d.policy = pol
	d.debug = rec.GetDebug()
	d.calcRfGapPhase = rec.GetCalcRfGapPhase()
	return nil
}

// Load reads the shared physics options from rec.
func (o *Options) Load(rec *config.AlgorithmRecord) error {
	m, err := ParseEmitGrowthModel(rec.GetEmitGrowthModel())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrDataFormat, err)
	}
	o.StepSize = rec.GetStepSize()
	o.SpaceCharge = rec.GetUseSpaceCharge()
	o.EmitGrowth = rec.GetEmitGrowth()
	o.Model = m
	return nil
}

// Load reads the step-control options from rec.
func (s *StepControl) Load(rec *config.AlgorithmRecord) error {
	mode, err := ParseStepMode(rec.GetStepControl())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrDataFormat, err)
	}
	n, err := ParseNorm(rec.GetNorm())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrDataFormat, err)
	}
	s.Mode = mode
	s.ErrorTolerance = rec.GetErrorTolerance()
	s.Slack = rec.GetSlack()
	s.MaxIterations = rec.GetMaxIterations()
	s.Norm = n
	return nil
}

// Load configures t from rec.
func (t *EnvelopeTracker) Load(rec *config.AlgorithmRecord) error {
	if err := t.Driver.Load(rec); err != nil {
		return err
	}
	if err := t.Options.Load(rec); err != nil {
		return err
	}
	if err := t.Steps.Load(rec); err != nil {
		return err
	}
	Opsf("%s v%d: stepsize=%g scheff=%t emitgrowth=%t model=%s steps=%s",
		t.typ, t.version, t.StepSize, t.SpaceCharge, t.EmitGrowth, t.Model, t.Steps.Mode)
	return nil
}

// Load configures t from rec. Step-control attributes are ignored.
func (t *TwissTracker) Load(rec *config.AlgorithmRecord) error {
	if err := t.Driver.Load(rec); err != nil {
		return err
	}
	if err := t.Options.Load(rec); err != nil {
		return err
	}
	Opsf("%s v%d: stepsize=%g scheff=%t emitgrowth=%t",
		t.typ, t.version, t.StepSize, t.SpaceCharge, t.EmitGrowth)
	return nil
}

func (d *Driver) record(name string) config.AlgorithmRecord {
	return config.AlgorithmRecord{
		Name:    name,
		Type:    d.typ,
		Version: config.PtrInt(d.version),
		Tracker: config.TrackerOptions{
			Update:         config.PtrInt(int(d.policy)),
			Debug:          config.PtrBool(d.debug),
			CalcRfGapPhase: config.PtrBool(d.calcRfGapPhase),
		},
	}
}

func (o *Options) store(rec *config.AlgorithmRecord) {
	rec.SetUseSpaceCharge(o.SpaceCharge)
	rec.Options.EmitGrowth = config.PtrBool(o.EmitGrowth)
	rec.Options.StepSize = config.PtrFloat64(o.StepSize)
	rec.Options.EmitGrowthModel = config.PtrString(o.Model.String())
}

// Record returns t's configuration as an algorithm record.
func (t *EnvelopeTracker) Record(name string) config.AlgorithmRecord {
	rec := t.Driver.record(name)
	t.Options.store(&rec)
	rec.Options.StepControl = config.PtrString(t.Steps.Mode.String())
	rec.Options.Adaptive = &config.AdaptiveOptions{
		ErrorTolerance: config.PtrFloat64(t.Steps.ErrorTolerance),
		Slack:          config.PtrFloat64(t.Steps.Slack),
		MaxIterations:  config.PtrInt(t.Steps.MaxIterations),
		Norm:           config.PtrString(t.Steps.Norm.String()),
	}
	return rec
}

// Record returns t's configuration as an algorithm record.
func (t *TwissTracker) Record(name string) config.AlgorithmRecord {
	rec := t.Driver.record(name)
	t.Options.store(&rec)
	return rec
}
