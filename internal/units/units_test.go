package units

import (
	"math"
	"testing"
)

func TestConvertEnergy(t *testing.T) {
	tests := []struct {
		name     string
		energyEV float64
		units    string
		expected float64
	}{
		{"2.5 MeV to MeV", 2.5e6, MEV, 2.5},
		{"2.5 MeV to keV", 2.5e6, KEV, 2500},
		{"proton rest energy to GeV", 938.272088e6, GEV, 0.938272088},
		{"eV unchanged", 42, EV, 42},
		{"unknown units default to eV", 42, "erg", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertEnergy(tt.energyEV, tt.units)
			if math.Abs(result-tt.expected) > 1e-9*math.Abs(tt.expected) {
				t.Errorf("ConvertEnergy(%g, %s) = %g, want %g", tt.energyEV, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid eV", EV, true},
		{"valid keV", KEV, true},
		{"valid MeV", MEV, true},
		{"valid GeV", GEV, true},
		{"invalid unit", "J", false},
		{"empty string", "", false},
		{"case sensitive", "mev", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.unit); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestParseEnergy(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"2.5 MeV", 2.5e6, false},
		{"  750 keV ", 750e3, false},
		{"1e3", 1e3, false},
		{"1 GeV", 1e9, false},
		{"", 0, true},
		{"2.5 MeV extra", 0, true},
		{"fast MeV", 0, true},
		{"2.5 J", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEnergy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEnergy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9*tt.want {
				t.Errorf("ParseEnergy(%q) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatEnergy(t *testing.T) {
	if got := FormatEnergy(2.5e6, MEV); got != "2.5 MeV" {
		t.Errorf("FormatEnergy = %q", got)
	}
	if got := FormatEnergy(12, "bogus"); got != "12 eV" {
		t.Errorf("FormatEnergy fallback = %q", got)
	}
}
