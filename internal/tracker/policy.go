package tracker

import (
	"fmt"
	"strings"
)

// UpdatePolicy is a bitmask selecting when the probe records its state.
type UpdatePolicy int

// Update policies.
const (
	UpdateNever    UpdatePolicy = 0
	UpdateAlways   UpdatePolicy = 1
	UpdateExit     UpdatePolicy = 2
	UpdateEntrance UpdatePolicy = 4
	UpdateBoth     UpdatePolicy = UpdateEntrance | UpdateExit
)

// Has reports whether every bit of q is set in p.
func (p UpdatePolicy) Has(q UpdatePolicy) bool { return p&q == q }

// Valid reports whether p is one of the defined policies.
func (p UpdatePolicy) Valid() bool {
	switch p {
	case UpdateNever, UpdateAlways, UpdateExit, UpdateEntrance, UpdateBoth:
		return true
	}
	return false
}

func (p UpdatePolicy) String() string {
	switch p {
	case UpdateNever:
		return "never"
	case UpdateAlways:
		return "always"
	case UpdateExit:
		return "exit"
	case UpdateEntrance:
		return "entrance"
	case UpdateBoth:
		return "entrance+exit"
	}
	return fmt.Sprintf("UpdatePolicy(%d)", int(p))
}

// ParseUpdatePolicy accepts the names produced by String.
func ParseUpdatePolicy(s string) (UpdatePolicy, error) {
	for _, p := range []UpdatePolicy{UpdateNever, UpdateAlways, UpdateExit, UpdateEntrance, UpdateBoth} {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown update policy %q", s)
}
