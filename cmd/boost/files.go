package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/thalesfsp/boost"
	"gopkg.in/yaml.v3"
)

// loadObservations reads a YAML file of the form {x: [[...]], y: [...]}.
// Unknown keys are rejected.
func loadObservations(path string) (boost.Observations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return boost.Observations{}, fmt.Errorf("read observations: %w", err)
	}

	var obs boost.Observations

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&obs); err != nil {
		return boost.Observations{}, fmt.Errorf("parse observations %s: %w", path, err)
	}

	if err := obs.Validate(); err != nil {
		return boost.Observations{}, fmt.Errorf("observations %s: %w", path, err)
	}

	return obs, nil
}

// writeYAML encodes v to path.
func writeYAML(path string, v any) error {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
