// Package tracker implements the propagation algorithms that advance a probe
// element by element through a lattice: the envelope (second-moment) tracker
// and the Twiss tracker, together with their shared driver, space-charge kick
// and RF phase-spread emittance-growth models.
package tracker

import (
	"github.com/banshee-data/envtrack/internal/config"
	"github.com/banshee-data/envtrack/internal/lattice"
)

// Tracker is a configured propagation algorithm.
type Tracker interface {
	lattice.Propagator

	Type() string
	Version() int
	// Base exposes the shared driver for start/stop and update settings.
	Base() *Driver
	Copy() Tracker
	// Record returns the configuration as an algorithm record called name.
	Record(name string) config.AlgorithmRecord
}

var (
	_ Tracker = (*EnvelopeTracker)(nil)
	_ Tracker = (*TwissTracker)(nil)
)
