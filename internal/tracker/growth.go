package tracker

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/envtrack/internal/specfn"
)

// EmitGrowthModel selects the beam distribution assumed when estimating RF
// phase-spread emittance growth.
type EmitGrowthModel int

// Emittance growth models.
const (
	ModelTrace3D EmitGrowthModel = iota
	ModelUniform1D
	ModelGaussian1D
	ModelUniform3D
	ModelGaussian3D
)

var modelNames = map[EmitGrowthModel]string{
	ModelTrace3D:    "TRACE3D",
	ModelUniform1D:  "UNIFORM1D",
	ModelGaussian1D: "GAUSSIAN1D",
	ModelUniform3D:  "UNIFORM3D",
	ModelGaussian3D: "GAUSSIAN3D",
}

func (m EmitGrowthModel) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("EmitGrowthModel(%d)", int(m))
}

// ParseEmitGrowthModel maps a configuration name to a model. Matching is
// case-insensitive.
func ParseEmitGrowthModel(s string) (EmitGrowthModel, error) {
	for m, name := range modelNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// PhasePlane selects the transverse or longitudinal form of a transform.
type PhasePlane int

// Phase planes.
const (
	PlaneTransverse   PhasePlane = 1
	PlaneLongitudinal PhasePlane = 2
)

func (p PhasePlane) String() string {
	switch p {
	case PlaneTransverse:
		return "transverse"
	case PlaneLongitudinal:
		return "longitudinal"
	}
	return fmt.Sprintf("PhasePlane(%d)", int(p))
}

// kernel is one distribution's Fourier transform. The series branch is used
// below specfn.SmallArg where the closed form cancels badly.
type kernel struct {
	exact  func(x float64) float64
	series func(x float64) float64
}

func (k kernel) eval(x float64) float64 {
	if math.Abs(x) < specfn.SmallArg {
		return k.series(x)
	}
	return k.exact(x)
}

var transverseKernels = map[EmitGrowthModel]kernel{
	ModelTrace3D:    {exact: uniform3DTrans, series: uniform3DTransSeries},
	ModelUniform3D:  {exact: uniform3DTrans, series: uniform3DTransSeries},
	ModelUniform1D:  {exact: uniform1DTrans, series: uniform1DTransSeries},
	ModelGaussian3D: {exact: gaussian3DTrans, series: gaussian3DTransSeries},
	ModelGaussian1D: {exact: gaussian1DTrans, series: gaussian1DTransSeries},
}

var longitudinalKernels = map[EmitGrowthModel]kernel{
	ModelTrace3D:    {exact: trace3DLong, series: trace3DLong},
	ModelUniform3D:  {exact: uniform3DLong, series: uniform3DLongSeries},
	ModelUniform1D:  {exact: uniform1DLong, series: uniform1DLongSeries},
	ModelGaussian3D: {exact: gaussian3DLong, series: gaussian3DLongSeries},
	ModelGaussian1D: {exact: gaussian1DLong, series: gaussian1DLongSeries},
}

func kernelFor(m EmitGrowthModel, plane PhasePlane) (kernel, error) {
	var table map[EmitGrowthModel]kernel
	switch plane {
	case PlaneTransverse:
		table = transverseKernels
	case PlaneLongitudinal:
		table = longitudinalKernels
	default:
		return kernel{}, fmt.Errorf("%w: %d", ErrUnknownPlane, int(plane))
	}
	k, ok := table[m]
	if !ok {
		return kernel{}, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	return k, nil
}

// TransFourierTransform evaluates the transverse transform of the model's
// distribution at phase spread dphi (rad).
func (m EmitGrowthModel) TransFourierTransform(dphi float64) (float64, error) {
	return m.FourierTransform(PlaneTransverse, dphi)
}

// LongFourierTransform evaluates the longitudinal transform at dphi (rad).
func (m EmitGrowthModel) LongFourierTransform(dphi float64) (float64, error) {
	return m.FourierTransform(PlaneLongitudinal, dphi)
}

// FourierTransform evaluates the transform for the given plane.
func (m EmitGrowthModel) FourierTransform(plane PhasePlane, dphi float64) (float64, error) {
	k, err := kernelFor(m, plane)
	if err != nil {
		return 0, err
	}
	return k.eval(dphi), nil
}

// EmitGrowthFunction returns the growth factor
//
//	G = ½(1 − F(2Δφ)) − sin²φs·(F(Δφ)² − F(2Δφ))
//
// for synchronous phase phiS and phase spread dphi, both in radians.
func (m EmitGrowthModel) EmitGrowthFunction(plane PhasePlane, phiS, dphi float64) (float64, error) {
	k, err := kernelFor(m, plane)
	if err != nil {
		return 0, err
	}
	f := k.eval(dphi)
	f2 := k.eval(2.0 * dphi)
	s := math.Sin(phiS)
	return 0.5*(1.0-f2) - s*s*(f*f-f2), nil
}

// Uniform 3D sphere: 15·j2(x)/x².
func uniform3DTrans(x float64) float64 {
	t := 3.0 / (x * x)
	return 5.0 * t * (specfn.Sinc(x)*(t-1.0) - math.Cos(x)*t)
}

func uniform3DTransSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - x2/14.0 + x2*x2/504.0 - x2*x2*x2/33264.0
}

// Uniform 3D sphere, longitudinal: 15(j2/x² − j3/x).
func uniform3DLong(x float64) float64 {
	return 15.0 * (specfn.SphJ2(x)/(x*x) - specfn.SphJ3(x)/x)
}

func uniform3DLongSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - 3.0*x2/14.0 + 5.0*x2*x2/504.0 - x2*x2*x2/4752.0
}

func trace3DLong(x float64) float64 {
	return 1.0 - x*x/12.0
}

// Uniform 1D segment.
func uniform1DTrans(x float64) float64 {
	return 2.0 * specfn.J1(x) / x
}

func uniform1DTransSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - x2/8.0 + x2*x2/192.0 - x2*x2*x2/9216.0
}

func uniform1DLong(x float64) float64 {
	return 8.0 * (specfn.J2(x)/(x*x) - specfn.J3(x)/x)
}

func uniform1DLongSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - x2/4.0 + 5.0*x2*x2/384.0 - 7.0*x2*x2*x2/23040.0
}

func gaussian3DTrans(x float64) float64 {
	return math.Exp(-x * x / 10.0)
}

func gaussian3DTransSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - x2/10.0 + x2*x2/200.0 - x2*x2*x2/6000.0
}

func gaussian3DLong(x float64) float64 {
	x2 := x * x
	return (1.0 - x2/5.0) * math.Exp(-x2/10.0)
}

func gaussian3DLongSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - 3.0*x2/10.0 + x2*x2/40.0 - 7.0*x2*x2*x2/6000.0
}

func gaussian1DTrans(x float64) float64 {
	return math.Exp(-x * x / 8.0)
}

func gaussian1DTransSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - x2/8.0 + x2*x2/128.0 - x2*x2*x2/3072.0
}

func gaussian1DLong(x float64) float64 {
	x2 := x * x
	return (1.0 - x2/4.0) * math.Exp(-x2/8.0)
}

func gaussian1DLongSeries(x float64) float64 {
	x2 := x * x
	return 1.0 - 3.0*x2/8.0 + 5.0*x2*x2/128.0 - 7.0*x2*x2*x2/3072.0
}
