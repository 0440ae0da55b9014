// Package config loads and saves tracking-algorithm records and initial probe
// descriptions. Files may be JSON or YAML.
package config
