// Package probe holds the mutable beam state carried along a lattice walk.
//
// A probe is owned by the simulation loop that created it. Trackers mutate it
// in place and never keep a reference between calls.
package probe
