// Package lattice models the beamline elements a tracker propagates through
// and walks a probe along an ordered sequence of them.
package lattice
