package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// SaveEstimates writes estimated beat times keyed by track id as JSON.
func SaveEstimates(path string, estimates map[string][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create estimates file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(estimates); err != nil {
		return fmt.Errorf("failed to encode estimates: %w", err)
	}
	return nil
}

// LoadEstimates reads estimated beat times keyed by track id.
func LoadEstimates(path string) (map[string][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open estimates file: %w", err)
	}
	defer file.Close()

	var estimates map[string][]float64
	if err := json.NewDecoder(file).Decode(&estimates); err != nil {
		return nil, fmt.Errorf("failed to decode estimates: %w", err)
	}
	if estimates == nil {
		estimates = make(map[string][]float64)
	}
	return estimates, nil
}
