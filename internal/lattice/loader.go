package lattice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrLatticeFormat marks a malformed lattice file.
var ErrLatticeFormat = errors.New("lattice format error")

const maxLatticeFileSize = 8 * 1024 * 1024

// File is the on-disk lattice description.
type File struct {
	ID       string        `json:"id" yaml:"id" validate:"required"`
	Elements []ElementSpec `json:"elements" yaml:"elements" validate:"required,min=1,dive"`
}

// ElementSpec describes one element. Fields not used by the element type are
// ignored.
type ElementSpec struct {
	ID        string     `json:"id" yaml:"id" validate:"required"`
	Type      string     `json:"type" yaml:"type" validate:"required,oneof=drift quad rfgap marker"`
	Parent    string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Length    float64    `json:"length,omitempty" yaml:"length,omitempty" validate:"gte=0"`
	K1        float64    `json:"k1,omitempty" yaml:"k1,omitempty"`
	Frequency float64    `json:"frequency,omitempty" yaml:"frequency,omitempty" validate:"required_if=Type rfgap,gte=0"`
	ETL       float64    `json:"etl,omitempty" yaml:"etl,omitempty"`
	Phase     float64    `json:"phase,omitempty" yaml:"phase,omitempty"`
	Align     *Alignment `json:"align,omitempty" yaml:"align,omitempty"`
}

// Load reads a lattice file (.json, .yaml or .yml) and builds the sequence.
func Load(path string) (*Sequence, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("lattice file must have .json, .yaml or .yml extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat lattice file: %w", err)
	}
	if info.Size() > maxLatticeFileSize {
		return nil, fmt.Errorf("lattice file too large: %d bytes (max %d)", info.Size(), maxLatticeFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lattice file: %w", err)
	}

	var f File
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLatticeFormat, path, err)
	}
	return f.Build()
}

// Build validates f and constructs the element sequence.
func (f *File) Build() (*Sequence, error) {
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLatticeFormat, err)
	}
	seq := &Sequence{ID: f.ID}
	seen := make(map[string]bool, len(f.Elements))
	for _, spec := range f.Elements {
		if seen[spec.ID] {
			return nil, fmt.Errorf("%w: duplicate element id %q", ErrLatticeFormat, spec.ID)
		}
		seen[spec.ID] = true

		parent := spec.Parent
		if parent == "" {
			parent = f.ID
		}
		var e Element
		switch spec.Type {
		case "drift":
			d := NewDrift(spec.ID, spec.Length)
			d.parent = parent
			e = d
		case "quad":
			q := NewQuad(spec.ID, spec.Length, spec.K1)
			q.parent = parent
			if spec.Align != nil {
				q.Align = *spec.Align
			}
			e = q
		case "rfgap":
			g := NewIdealRfGap(spec.ID, spec.ETL, spec.Phase, spec.Frequency)
			g.parent = parent
			e = g
		case "marker":
			m := NewMarker(spec.ID)
			m.parent = parent
			e = m
		}
		seq.Elements = append(seq.Elements, e)
	}
	return seq, nil
}
