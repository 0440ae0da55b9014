package lattice

import (
	"fmt"

	"github.com/banshee-data/envtrack/internal/probe"
)

// Propagator advances a probe through a single element. Trackers implement
// it.
type Propagator interface {
	Initialize()
	Propagate(p probe.Probe, e Element) error
}

// Sequence is an ordered list of elements.
type Sequence struct {
	ID       string
	Elements []Element
}

// Length returns the summed element length.
func (s *Sequence) Length() float64 {
	var l float64
	for _, e := range s.Elements {
		l += e.Length()
	}
	return l
}

// Element returns the element with the given id.
func (s *Sequence) Element(id string) (Element, bool) {
	for _, e := range s.Elements {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// Walk initializes alg and propagates p through every element in order. The
// first error aborts the walk.
func (s *Sequence) Walk(alg Propagator, p probe.Probe) error {
	alg.Initialize()
	for _, e := range s.Elements {
		if err := alg.Propagate(p, e); err != nil {
			return fmt.Errorf("sequence %s: %w", s.ID, err)
		}
	}
	return nil
}
