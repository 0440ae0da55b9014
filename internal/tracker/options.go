package tracker

import (
	"fmt"
	"math"
)

// DefaultStepSize is the default maximum sub-step length in metres.
const DefaultStepSize = 0.004

// Options are the physics switches shared by the envelope and Twiss
// trackers.
type Options struct {
	// StepSize is the maximum sub-step length in metres.
	StepSize    float64
	SpaceCharge bool
	EmitGrowth  bool
	Model       EmitGrowthModel
}

// DefaultOptions returns space charge on, emittance growth off and the
// Trace3D model.
func DefaultOptions() Options {
	return Options{StepSize: DefaultStepSize, SpaceCharge: true, Model: ModelTrace3D}
}

// SubStepCount returns the number of equal sub-steps used for an element of
// length l when sub-stepping is required, max(1, ⌈l/step⌉). It returns 1
// when sub-stepping is not required or step is not positive.
func SubStepCount(l, step float64, required bool) int {
	if !required || step <= 0 || l <= 0 {
		return 1
	}
	n := int(math.Ceil(l / step))
	if n < 1 {
		return 1
	}
	return n
}

// StepMode selects fixed or error-controlled sub-stepping.
type StepMode int

// Step modes.
const (
	StepFixed StepMode = iota
	StepAdaptive
)

func (m StepMode) String() string {
	if m == StepAdaptive {
		return "adaptive"
	}
	return "fixed"
}

// ParseStepMode accepts "fixed" and "adaptive".
func ParseStepMode(s string) (StepMode, error) {
	switch s {
	case "", "fixed":
		return StepFixed, nil
	case "adaptive":
		return StepAdaptive, nil
	}
	return 0, fmt.Errorf("unknown step control %q", s)
}

// Norm is the matrix norm used to measure the adaptive step error.
type Norm int

// Norms.
const (
	NormOne Norm = iota
	NormInf
	NormFrobenius
)

func (n Norm) String() string {
	switch n {
	case NormOne:
		return "one"
	case NormFrobenius:
		return "frobenius"
	}
	return "inf"
}

// ord maps the norm onto gonum's mat.Norm argument.
func (n Norm) ord() float64 {
	switch n {
	case NormOne:
		return 1
	case NormFrobenius:
		return 2
	}
	return math.Inf(1)
}

// ParseNorm accepts "one", "inf" and "frobenius".
func ParseNorm(s string) (Norm, error) {
	switch s {
	case "one":
		return NormOne, nil
	case "", "inf":
		return NormInf, nil
	case "frobenius":
		return NormFrobenius, nil
	}
	return 0, fmt.Errorf("unknown norm %q", s)
}

// StepControl configures sub-step sizing.
type StepControl struct {
	Mode StepMode
	// ErrorTolerance bounds the relative difference between one full step
	// and two half steps.
	ErrorTolerance float64
	// Slack is the fraction of ErrorTolerance below which the step doubles.
	Slack         float64
	MaxIterations int
	Norm          Norm
}

// DefaultStepControl returns fixed stepping with the adaptive defaults
// filled in.
func DefaultStepControl() StepControl {
	return StepControl{
		Mode:           StepFixed,
		ErrorTolerance: 1e-5,
		Slack:          0.05,
		MaxIterations:  50,
		Norm:           NormInf,
	}
}
