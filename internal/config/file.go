package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileFormat int

const (
	formatJSON fileFormat = iota
	formatYAML
)

func formatFor(path string) (fileFormat, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}
}

// readConfigFile checks the extension and size of path and returns its
// contents.
func readConfigFile(path string) ([]byte, fileFormat, error) {
	cleanPath := filepath.Clean(path)
	format, err := formatFor(cleanPath)
	if err != nil {
		return nil, 0, err
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, 0, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, format, nil
}

// decode unmarshals data strictly; unknown fields are rejected.
func decode(data []byte, format fileFormat, v any) error {
	switch format {
	case formatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: failed to parse JSON: %v", ErrDataFormat, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("%w: failed to parse YAML: %v", ErrDataFormat, err)
		}
	}
	return nil
}
