package tracker

import (
	"fmt"

	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
)

// beginPrefix is the legacy alias for a sequence entrance marker.
const beginPrefix = "BEGIN_"

// Driver is the propagation state machine shared by every algorithm. It
// brackets propagation between optional start and stop elements, records
// probe snapshots according to the update policy, and advances probe
// kinematics.
//
// A Driver is not safe for concurrent use; copy it for independent runs.
type Driver struct {
	typ     string
	version int

	policy         UpdatePolicy
	debug          bool
	calcRfGapPhase bool

	startID     string
	stopID      string
	includeStop bool

	started bool
	stopped bool
	elemPos float64
}

func newDriver(typ string, version int) Driver {
	return Driver{
		typ:         typ,
		version:     version,
		policy:      UpdateAlways,
		includeStop: true,
		started:     true,
	}
}

// Type returns the algorithm type identifier.
func (d *Driver) Type() string { return d.typ }

// Version returns the algorithm version.
func (d *Driver) Version() int { return d.version }

// Base returns d.
func (d *Driver) Base() *Driver { return d }

func (d *Driver) SetUpdatePolicy(p UpdatePolicy) { d.policy = p }
func (d *Driver) UpdatePolicy() UpdatePolicy     { return d.policy }
func (d *Driver) SetDebug(on bool)               { d.debug = on }
func (d *Driver) Debug() bool                    { return d.debug }

// SetRfGapPhaseCalculation toggles the calcRfGapPhase attribute.
func (d *Driver) SetRfGapPhaseCalculation(on bool) { d.calcRfGapPhase = on }

// RfGapPhaseCalculation returns the calcRfGapPhase attribute.
func (d *Driver) RfGapPhaseCalculation() bool { return d.calcRfGapPhase }

// StartElementID returns the start element id, or "" if unset.
func (d *Driver) StartElementID() string { return d.startID }

// StopElementID returns the stop element id, or "" if unset.
func (d *Driver) StopElementID() string { return d.stopID }

// SetStartElementID sets the element at which propagation begins. An empty
// id means propagation starts immediately.
func (d *Driver) SetStartElementID(id string) {
	d.startID = id
	d.started = id == ""
	d.stopped = false
}

// SetStopElementID sets the element after which propagation ends.
func (d *Driver) SetStopElementID(id string) {
	d.stopID = id
	d.stopped = false
}

// UnsetStartElementID clears the start element.
func (d *Driver) UnsetStartElementID() { d.SetStartElementID("") }

// UnsetStopElementID clears the stop element.
func (d *Driver) UnsetStopElementID() { d.SetStopElementID("") }

// SetIncludeStopElement selects whether the stop element itself is
// propagated.
func (d *Driver) SetIncludeStopElement(on bool) { d.includeStop = on }

// IncludeStopElement reports whether the stop element is propagated.
func (d *Driver) IncludeStopElement() bool { return d.includeStop }

// Started reports whether the start element has been reached.
func (d *Driver) Started() bool { return d.started }

// Stopped reports whether the stop element has been reached.
func (d *Driver) Stopped() bool { return d.stopped }

// ElemPosition returns the distance propagated inside the current element.
func (d *Driver) ElemPosition() float64 { return d.elemPos }

// SetElemPosition overrides the in-element position counter.
func (d *Driver) SetElemPosition(s float64) { d.elemPos = s }

// Initialize resets the bracket flags and in-element position. Call it
// before every fresh pass.
func (d *Driver) Initialize() {
	d.started = d.startID == ""
	d.stopped = false
	d.elemPos = 0
}

// ValidElement reports whether e lies inside the start/stop bracket,
// updating the bracket state as a side effect.
func (d *Driver) ValidElement(e lattice.Element) bool {
	if d.stopped {
		return false
	}
	if !d.started {
		if d.startID != e.ID() && d.startID != beginPrefix+e.ParentID() {
			return false
		}
		d.started = true
	}
	if d.stopID != "" && d.stopID == e.ID() {
		d.stopped = true
		if !d.includeStop {
			return false
		}
	}
	return true
}

// AdvanceProbe moves p forward by l metres through e: position, time,
// longitudinal phase and kinetic energy. The probe is snapshotted when the
// policy is UpdateAlways.
func (d *Driver) AdvanceProbe(p probe.Probe, e lattice.Element, l float64) error {
	advanceKinematics(p, e, l)
	d.elemPos += l

	if d.policy == UpdateAlways {
		return p.Update()
	}
	return nil
}

// RetractProbe is the inverse of AdvanceProbe.
func (d *Driver) RetractProbe(p probe.Probe, e lattice.Element, l float64) error {
	dT := e.ElapsedTime(p, l)
	dPhi := e.LongitudinalPhaseAdvance(p, l)
	dW := e.EnergyGain(p, l)

	p.SetPosition(p.Position() - l)
	p.SetTime(p.Time() - dT)
	p.SetLongitudinalPhase(p.LongitudinalPhase() - dPhi)
	p.SetKineticEnergy(p.KineticEnergy() - dW)
	d.elemPos -= l

	if d.policy == UpdateAlways {
		return p.Update()
	}
	return nil
}

// propagate runs the bracket check and entrance/exit snapshots around do.
func (d *Driver) propagate(p probe.Probe, e lattice.Element, do func() error) error {
	if !d.ValidElement(e) {
		return nil
	}

	p.SetCurrentElement(e.ID())
	p.SetCurrentHardwareID(e.HardwareID())
	d.elemPos = 0

	if d.debug {
		Diagf("%s: enter %s at s=%.6g m, W=%.6g eV", d.typ, e.ID(), p.Position(), p.KineticEnergy())
	}

	if d.policy.Has(UpdateEntrance) {
		if err := p.Update(); err != nil {
			return &PropagationError{ElementID: e.ID(), Op: "update", Err: err}
		}
	}
	if err := do(); err != nil {
		return &PropagationError{ElementID: e.ID(), Op: "propagate", Err: err}
	}
	if d.policy.Has(UpdateExit) {
		if err := p.Update(); err != nil {
			return &PropagationError{ElementID: e.ID(), Op: "update", Err: err}
		}
	}
	return nil
}

func invalidProbe(p probe.Probe, e lattice.Element, want string) error {
	return &PropagationError{
		ElementID: e.ID(),
		Op:        "propagate",
		Err:       fmt.Errorf("%w: %T, need %s", ErrInvalidProbe, p, want),
	}
}
