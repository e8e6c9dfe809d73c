package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWeights reads weights from a YAML file. Weights missing from the file
// keep their default value.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}

	return ParseWeights(data)
}

// ParseWeights decodes weights from YAML on top of the defaults.
func ParseWeights(data []byte) (Weights, error) {
	w := DefaultWeights()
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, fmt.Errorf("parse weights: %w", err)
	}

	return w, nil
}
