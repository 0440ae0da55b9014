package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ProbeFile describes the initial beam state of a run.
type ProbeFile struct {
	Kind          string        `json:"kind" yaml:"kind" validate:"required,oneof=envelope twiss"`
	Species       SpeciesConfig `json:"species" yaml:"species"`
	Current       float64       `json:"current" yaml:"current" validate:"gte=0"`
	Frequency     float64       `json:"frequency" yaml:"frequency" validate:"gt=0"`
	KineticEnergy float64       `json:"kineticEnergy" yaml:"kineticEnergy" validate:"gt=0"`
	Position      float64       `json:"position,omitempty" yaml:"position,omitempty"`
	Twiss         []TwissConfig `json:"twiss" yaml:"twiss" validate:"len=3,dive"`
	Centroid      []float64     `json:"centroid,omitempty" yaml:"centroid,omitempty" validate:"omitempty,len=6"`
}

// SpeciesConfig names the particle species.
type SpeciesConfig struct {
	Name       string  `json:"name" yaml:"name" validate:"required"`
	Charge     float64 `json:"charge" yaml:"charge" validate:"ne=0"`
	RestEnergy float64 `json:"restEnergy" yaml:"restEnergy" validate:"gt=0"`
}

// TwissConfig is one plane of initial Twiss parameters in SI units.
type TwissConfig struct {
	Alpha     float64 `json:"alpha" yaml:"alpha"`
	Beta      float64 `json:"beta" yaml:"beta" validate:"gt=0"`
	Emittance float64 `json:"emittance" yaml:"emittance" validate:"gt=0"`
}

// LoadProbeFile reads and validates an initial probe description.
func LoadProbeFile(path string) (*ProbeFile, error) {
	data, format, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	p := &ProbeFile{}
	if err := decode(data, format, p); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(p); err != nil {
		return nil, fmt.Errorf("invalid probe file %s: %w: %v", path, ErrDataFormat, err)
	}
	return p, nil
}
