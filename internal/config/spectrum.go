package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spectrum is an emissivity or efficiency given either as a single number for
// the whole band or as a list with one value per frequency sample.
type Spectrum []float64

// UnmarshalJSON accepts a number or an array of numbers.
func (s *Spectrum) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*s = Spectrum{v}
		return nil
	}
	var list []float64
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("spectrum must be a number or a list of numbers: %w", err)
	}
	*s = list
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence of numbers.
func (s *Spectrum) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = Spectrum{v}
	case yaml.SequenceNode:
		var list []float64
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = list
	default:
		return fmt.Errorf("line %d: spectrum must be a number or a list of numbers", node.Line)
	}
	return nil
}

// MarshalJSON writes band-constant spectra as a single number.
func (s Spectrum) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]float64(s))
}
