package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProbe is returned when a tracker is handed a probe type it
	// cannot propagate.
	ErrInvalidProbe = errors.New("invalid probe type")
	// ErrUnknownModel is returned for an emittance-growth model outside the
	// supported set.
	ErrUnknownModel = errors.New("unknown emittance growth model")
	// ErrUnknownPlane is returned for a phase plane other than transverse or
	// longitudinal.
	ErrUnknownPlane = errors.New("unknown phase plane")
	// ErrNotRfGap is returned when an RF-gap quantity is requested for
	// another element type.
	ErrNotRfGap = errors.New("element is not an RF gap")
	// ErrStepControl is returned when adaptive stepping cannot meet its
	// tolerance.
	ErrStepControl = errors.New("step size control failed")
)

// PropagationError reports a failure inside Propagate for a given element.
type PropagationError struct {
	ElementID string
	Op        string
	Err       error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ElementID, e.Err)
}

func (e *PropagationError) Unwrap() error { return e.Err }
