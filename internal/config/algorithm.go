package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultRecordName is the record used when a named record is absent.
const DefaultRecordName = "default"

// maxFileSize bounds every configuration file read by this package.
const maxFileSize = 1 * 1024 * 1024 // 1MB

var (
	// ErrDataFormat marks a malformed or invalid configuration file.
	ErrDataFormat = errors.New("configuration data format error")
	// ErrRecordNotFound is returned when neither the named record nor the
	// default record exists.
	ErrRecordNotFound = errors.New("algorithm record not found")
)

// Update policy values accepted by the "update" attribute.
const (
	UpdateNever    = 0
	UpdateAlways   = 1
	UpdateExit     = 2
	UpdateEntrance = 4
	UpdateBoth     = 6
)

// AlgorithmFile is a set of named algorithm records.
type AlgorithmFile struct {
	Records []AlgorithmRecord `json:"records" yaml:"records" validate:"required,min=1,dive"`
}

// AlgorithmRecord configures one tracking algorithm. Attribute names follow
// the archive format: tracker-level settings under "tracker", algorithm
// options under "options".
type AlgorithmRecord struct {
	Name    string           `json:"name" yaml:"name" validate:"required"`
	Type    string           `json:"type" yaml:"type" validate:"required"`
	Version *int             `json:"ver,omitempty" yaml:"ver,omitempty" validate:"omitempty,gte=0"`
	Tracker TrackerOptions   `json:"tracker" yaml:"tracker"`
	Options AlgorithmOptions `json:"options" yaml:"options"`
}

// TrackerOptions are the settings common to every tracker.
type TrackerOptions struct {
	Update         *int  `json:"update,omitempty" yaml:"update,omitempty" validate:"omitempty,oneof=0 1 2 4 6"`
	Debug          *bool `json:"debug,omitempty" yaml:"debug,omitempty"`
	CalcRfGapPhase *bool `json:"calcRfGapPhase,omitempty" yaml:"calcRfGapPhase,omitempty"`
}

// AlgorithmOptions are the envelope and Twiss algorithm settings.
type AlgorithmOptions struct {
	Scheff          *bool            `json:"scheff,omitempty" yaml:"scheff,omitempty"`
	UseSpacecharge  *bool            `json:"useSpacecharge,omitempty" yaml:"useSpacecharge,omitempty"` // legacy alias of scheff
	EmitGrowth      *bool            `json:"emitgrowth,omitempty" yaml:"emitgrowth,omitempty"`
	StepSize        *float64         `json:"stepsize,omitempty" yaml:"stepsize,omitempty" validate:"omitempty,gt=0"`
	EmitGrowthModel *string          `json:"emitGrowthModel,omitempty" yaml:"emitGrowthModel,omitempty" validate:"omitempty,oneof=TRACE3D UNIFORM1D GAUSSIAN1D UNIFORM3D GAUSSIAN3D"`
	StepControl     *string          `json:"stepControl,omitempty" yaml:"stepControl,omitempty" validate:"omitempty,oneof=fixed adaptive"`
	Adaptive        *AdaptiveOptions `json:"adaptive,omitempty" yaml:"adaptive,omitempty"`
}

// AdaptiveOptions configure error-controlled step sizing.
type AdaptiveOptions struct {
	ErrorTolerance *float64 `json:"errortolerance,omitempty" yaml:"errortolerance,omitempty" validate:"omitempty,gt=0"`
	Slack          *float64 `json:"slack,omitempty" yaml:"slack,omitempty" validate:"omitempty,gte=0,lt=1"`
	MaxIterations  *int     `json:"maxiterations,omitempty" yaml:"maxiterations,omitempty" validate:"omitempty,gt=0"`
	Norm           *string  `json:"norm,omitempty" yaml:"norm,omitempty" validate:"omitempty,oneof=one inf frobenius"`
}

// PtrFloat64, PtrBool, PtrString and PtrInt return pointers to their
// argument for filling optional record fields.
func PtrFloat64(v float64) *float64 { return &v }
func PtrBool(v bool) *bool          { return &v }
func PtrString(v string) *string    { return &v }
func PtrInt(v int) *int             { return &v }

// DefaultAlgorithmRecord returns a fully populated record named "default"
// for the given algorithm type.
func DefaultAlgorithmRecord(typ string) AlgorithmRecord {
	r := AlgorithmRecord{Name: DefaultRecordName, Type: typ, Version: PtrInt(1)}
	r.Tracker = TrackerOptions{
		Update:         PtrInt(UpdateAlways),
		Debug:          PtrBool(false),
		CalcRfGapPhase: PtrBool(false),
	}
	r.Options = AlgorithmOptions{
		EmitGrowth:      PtrBool(false),
		StepSize:        PtrFloat64(0.004),
		EmitGrowthModel: PtrString("TRACE3D"),
		StepControl:     PtrString("fixed"),
	}
	r.SetUseSpaceCharge(true)
	return r
}

// Lookup returns the record called name, falling back to the "default"
// record.
func (f *AlgorithmFile) Lookup(name string) (*AlgorithmRecord, error) {
	for i := range f.Records {
		if f.Records[i].Name == name {
			return &f.Records[i], nil
		}
	}
	for i := range f.Records {
		if f.Records[i].Name == DefaultRecordName {
			return &f.Records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q (no %q record either)", ErrRecordNotFound, name, DefaultRecordName)
}

// Put inserts r, replacing any record with the same name.
func (f *AlgorithmFile) Put(r AlgorithmRecord) {
	for i := range f.Records {
		if f.Records[i].Name == r.Name {
			f.Records[i] = r
			return
		}
	}
	f.Records = append(f.Records, r)
}

// Validate runs the struct-tag rules and the cross-field checks.
func (f *AlgorithmFile) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrDataFormat, err)
	}
	seen := make(map[string]bool, len(f.Records))
	for _, r := range f.Records {
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate record %q", ErrDataFormat, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// GetVersion returns the ver attribute or 1.
func (r *AlgorithmRecord) GetVersion() int {
	if r.Version == nil {
		return 1
	}
	return *r.Version
}

// GetUpdate returns the update policy bitmask or UpdateAlways.
func (r *AlgorithmRecord) GetUpdate() int {
	if r.Tracker.Update == nil {
		return UpdateAlways
	}
	return *r.Tracker.Update
}

// GetDebug returns the debug flag or false.
func (r *AlgorithmRecord) GetDebug() bool {
	if r.Tracker.Debug == nil {
		return false
	}
	return *r.Tracker.Debug
}

// GetCalcRfGapPhase returns the calcRfGapPhase flag or false.
func (r *AlgorithmRecord) GetCalcRfGapPhase() bool {
	if r.Tracker.CalcRfGapPhase == nil {
		return false
	}
	return *r.Tracker.CalcRfGapPhase
}

// GetUseSpaceCharge returns scheff if present, otherwise the legacy
// useSpacecharge attribute, otherwise true.
func (r *AlgorithmRecord) GetUseSpaceCharge() bool {
	if r.Options.Scheff != nil {
		return *r.Options.Scheff
	}
	if r.Options.UseSpacecharge != nil {
		return *r.Options.UseSpacecharge
	}
	return true
}

// SetUseSpaceCharge sets both the scheff attribute and its legacy alias.
func (r *AlgorithmRecord) SetUseSpaceCharge(v bool) {
	r.Options.Scheff = PtrBool(v)
	r.Options.UseSpacecharge = PtrBool(v)
}

// GetEmitGrowth returns the emitgrowth flag or false.
func (r *AlgorithmRecord) GetEmitGrowth() bool {
	if r.Options.EmitGrowth == nil {
		return false
	}
	return *r.Options.EmitGrowth
}

// GetStepSize returns the maximum sub-step length in metres, default 0.004.
func (r *AlgorithmRecord) GetStepSize() float64 {
	if r.Options.StepSize == nil {
		return 0.004
	}
	return *r.Options.StepSize
}

// GetEmitGrowthModel returns the distribution model name or "TRACE3D".
func (r *AlgorithmRecord) GetEmitGrowthModel() string {
	if r.Options.EmitGrowthModel == nil || *r.Options.EmitGrowthModel == "" {
		return "TRACE3D"
	}
	return *r.Options.EmitGrowthModel
}

// GetStepControl returns "fixed" or "adaptive"; default "fixed".
func (r *AlgorithmRecord) GetStepControl() string {
	if r.Options.StepControl == nil || *r.Options.StepControl == "" {
		return "fixed"
	}
	return *r.Options.StepControl
}

// GetErrorTolerance returns the adaptive error tolerance, default 1e-5.
func (r *AlgorithmRecord) GetErrorTolerance() float64 {
	if r.Options.Adaptive == nil || r.Options.Adaptive.ErrorTolerance == nil {
		return 1e-5
	}
	return *r.Options.Adaptive.ErrorTolerance
}

// GetSlack returns the adaptive step-growth slack, default 0.05.
func (r *AlgorithmRecord) GetSlack() float64 {
	if r.Options.Adaptive == nil || r.Options.Adaptive.Slack == nil {
		return 0.05
	}
	return *r.Options.Adaptive.Slack
}

// GetMaxIterations returns the adaptive iteration limit, default 50.
func (r *AlgorithmRecord) GetMaxIterations() int {
	if r.Options.Adaptive == nil || r.Options.Adaptive.MaxIterations == nil {
		return 50
	}
	return *r.Options.Adaptive.MaxIterations
}

// GetNorm returns the adaptive error norm name, default "inf".
func (r *AlgorithmRecord) GetNorm() string {
	if r.Options.Adaptive == nil || r.Options.Adaptive.Norm == nil || *r.Options.Adaptive.Norm == "" {
		return "inf"
	}
	return *r.Options.Adaptive.Norm
}

// LoadAlgorithmFile reads and validates an algorithm file. The extension
// selects the decoder: .json, .yaml or .yml.
func LoadAlgorithmFile(path string) (*AlgorithmFile, error) {
	data, format, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	f := &AlgorithmFile{}
	if err := decode(data, format, f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid algorithm file %s: %w", path, err)
	}
	return f, nil
}

// SaveAlgorithmFile writes f to path in the format chosen by its extension.
func SaveAlgorithmFile(path string, f *AlgorithmFile) error {
	format, err := formatFor(path)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case formatJSON:
		data, err = json.MarshalIndent(f, "", "  ")
	default:
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("failed to encode algorithm file: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, 0o644); err != nil {
		return fmt.Errorf("failed to write algorithm file: %w", err)
	}
	return nil
}
