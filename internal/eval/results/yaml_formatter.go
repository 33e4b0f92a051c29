package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/beatbench/internal/eval/metrics"
	"gopkg.in/yaml.v3"
)

// EvalConfig represents the configuration section of the eval YAML
type EvalConfig struct {
	Method     string  `yaml:"method"`
	Dataset    string  `yaml:"dataset"`
	Version    string  `yaml:"version"`
	HopLength  int     `yaml:"hoplength"`
	Window     float64 `yaml:"window"`
	SampleSize int     `yaml:"samplesize"`
	Timestamp  string  `yaml:"timestamp"`
}

// EvalResult represents a single evaluation result
type EvalResult struct {
	Identifier     string    `yaml:"identifier"`
	Genre          string    `yaml:"genre"`
	Tempo          float64   `yaml:"tempo"`
	FMeasure       float64   `yaml:"fmeasure"`
	Precision      float64   `yaml:"precision"`
	Recall         float64   `yaml:"recall"`
	Matched        int       `yaml:"matched"`
	ReferenceBeats int       `yaml:"referencebeats"`
	EstimatedBeats []float64 `yaml:"estimatedbeats,flow"`
}

// EvalSpec represents the complete evaluation specification
type EvalSpec struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

// SaveToYAML writes the successful results of agg to
// <dir>/<dataset>-<version>-<timestamp>.yaml and returns the path.
func SaveToYAML(dir string, agg *metrics.AggregateResults) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create evals directory: %w", err)
	}

	timestamp := agg.EvaluationDate.Format("2006-01-02_15-04-05")

	spec := EvalSpec{
		Config: EvalConfig{
			Method:     "spectral_flux_plp",
			Dataset:    agg.Dataset,
			Version:    agg.Version,
			HopLength:  agg.HopLength,
			Window:     metrics.FMeasureWindow,
			SampleSize: agg.TotalTracks,
			Timestamp:  timestamp,
		},
		Results: make([]EvalResult, 0, len(agg.Results)),
	}

	for _, r := range agg.Results {
		if r.Error != "" || r.Evaluation == nil {
			continue // Skip failed evaluations
		}

		spec.Results = append(spec.Results, EvalResult{
			Identifier:     r.TrackID,
			Genre:          r.Genre,
			Tempo:          r.Tempo,
			FMeasure:       r.Evaluation.FMeasure,
			Precision:      r.Evaluation.Precision,
			Recall:         r.Evaluation.Recall,
			Matched:        r.Evaluation.Matched,
			ReferenceBeats: r.Evaluation.Reference,
			EstimatedBeats: r.EstimatedBeats,
		})
	}

	name := strings.ReplaceAll(agg.Dataset, string(os.PathSeparator), "_")
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.yaml", name, agg.Version, timestamp))

	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write YAML file: %w", err)
	}

	return filename, nil
}

// LoadYAML reads an eval spec written by SaveToYAML.
func LoadYAML(path string) (*EvalSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var spec EvalSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &spec, nil
}
