// Package units provides shared constants and validation for energy units
package units

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit constants
const (
	EV  = "eV"
	KEV = "keV"
	MEV = "MeV"
	GEV = "GeV"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{EV, KEV, MEV, GEV}

var scale = map[string]float64{
	EV:  1,
	KEV: 1e3,
	MEV: 1e6,
	GEV: 1e9,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := scale[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertEnergy converts an energy in eV to the target units.
// Everything inside the simulator is stored in eV.
func ConvertEnergy(energyEV float64, targetUnits string) float64 {
	s, ok := scale[targetUnits]
	if !ok {
		return energyEV // default to eV if unknown unit
	}
	return energyEV / s
}

// ParseEnergy parses a value such as "2.5 MeV" or "938272088" (eV) and
// returns it in eV.
func ParseEnergy(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, fmt.Errorf("invalid energy %q", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid energy %q: %w", s, err)
	}
	if len(fields) == 1 {
		return v, nil
	}
	u := fields[1]
	if !IsValid(u) {
		return 0, fmt.Errorf("unknown energy unit %q, expected one of %s", u, GetValidUnitsString())
	}
	return v * scale[u], nil
}

// FormatEnergy renders an energy in eV using the target units.
func FormatEnergy(energyEV float64, targetUnits string) string {
	if !IsValid(targetUnits) {
		targetUnits = EV
	}
	return strconv.FormatFloat(ConvertEnergy(energyEV, targetUnits), 'g', 8, 64) + " " + targetUnits
}
