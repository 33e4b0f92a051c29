// Package beat estimates beat positions from audio with a spectral-flux
// novelty curve and a predominant local pulse.
package beat

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/beatbench/internal/audio"
	"github.com/lehigh-university-libraries/beatbench/internal/onset"
	"github.com/lehigh-university-libraries/beatbench/internal/tempo"
)

// DefaultHopLength is the analysis hop in samples.
const DefaultHopLength = 512

// Decoder loads audio files as mono signals at their native rate.
type Decoder interface {
	Decode(path string) (*audio.Signal, error)
}

// Estimator runs the novelty -> pulse -> peak picking pipeline. An Estimator
// holds no per-track state and may be shared across goroutines.
type Estimator struct {
	HopLength int
	Onset     onset.Options
	PLP       tempo.PLPOptions
	Decoder   Decoder
}

// NewEstimator returns an estimator with the default analysis settings.
func NewEstimator(hopLength int) *Estimator {
	if hopLength <= 0 {
		hopLength = DefaultHopLength
	}
	return &Estimator{
		HopLength: hopLength,
		Onset:     onset.DefaultOptions(),
		PLP:       tempo.DefaultPLPOptions(),
		Decoder:   audio.NewDecoder(),
	}
}

// Result holds the output of one estimation.
type Result struct {
	Beats      []float64
	Novelty    []float64
	Pulse      []float64
	SampleRate int
	HopLength  int
	Duration   float64
}

// EstimateBeatsSpectralFlux estimates beat times (seconds) for the audio file
// at path and returns them with the spectral-flux novelty curve.
func EstimateBeatsSpectralFlux(path string, hopLength int) ([]float64, []float64, error) {
	res, err := NewEstimator(hopLength).Estimate(path)
	if err != nil {
		return nil, nil, err
	}
	return res.Beats, res.Novelty, nil
}

// Estimate decodes path and estimates its beats.
func (e *Estimator) Estimate(path string) (*Result, error) {
	sig, err := e.Decoder.Decode(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d for %s", sig.SampleRate, path)
	}

	res := e.EstimateSignal(sig)
	slog.Debug("Estimated beats",
		"path", path,
		"sample_rate", sig.SampleRate,
		"frames", len(res.Novelty),
		"beats", len(res.Beats))
	return res, nil
}

// EstimateSignal runs the analysis on an already decoded signal.
func (e *Estimator) EstimateSignal(sig *audio.Signal) *Result {
	hop := e.HopLength
	if hop <= 0 {
		hop = DefaultHopLength
	}

	novelty := onset.StrengthWithOptions(sig.Samples, sig.SampleRate, hop, e.Onset)
	pulse := tempo.PLP(novelty, sig.SampleRate, hop, e.PLP)
	frames := LocalMax(pulse)
	return &Result{
		Beats:      FramesToTime(frames, sig.SampleRate, hop),
		Novelty:    novelty,
		Pulse:      pulse,
		SampleRate: sig.SampleRate,
		HopLength:  hop,
		Duration:   sig.Duration(),
	}
}

// LocalMax returns the indices of local maxima of x: values strictly greater
// than their left neighbour and at least as large as their right one. Edges
// are padded by repetition, so index 0 is never a maximum.
func LocalMax(x []float64) []int {
	var idx []int
	for i := range x {
		left := x[max(i-1, 0)]
		right := x[min(i+1, len(x)-1)]
		if x[i] > left && x[i] >= right {
			idx = append(idx, i)
		}
	}
	return idx
}

// FramesToTime converts frame indices to seconds: frame * hop / sr.
func FramesToTime(frames []int, sr, hop int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f) * float64(hop) / float64(sr)
	}
	return times
}
