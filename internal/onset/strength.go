// Package onset computes spectral-flux onset novelty curves.
package onset

import (
	"math"

	"github.com/lehigh-university-libraries/beatbench/internal/dsp"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultNFFT  = 2048
	DefaultNMels = 128
	// DefaultTopDB is the dynamic range kept below the loudest mel bin.
	DefaultTopDB = 80.0

	amin = 1e-10
)

// Options controls the spectral-flux computation.
type Options struct {
	NFFT  int
	NMels int
	Lag   int
	TopDB float64
}

// DefaultOptions returns the settings used for beat tracking.
func DefaultOptions() Options {
	return Options{
		NFFT:  DefaultNFFT,
		NMels: DefaultNMels,
		Lag:   1,
		TopDB: DefaultTopDB,
	}
}

// Strength computes the spectral-flux onset novelty of a mono signal with the
// default options. The result has one non-negative value per analysis frame.
func Strength(samples []float64, sr, hop int) []float64 {
	return StrengthWithOptions(samples, sr, hop, DefaultOptions())
}

// StrengthWithOptions computes spectral flux on a log-power mel spectrogram:
// the mean over bands of the positive first difference across frames.
func StrengthWithOptions(samples []float64, sr, hop int, opts Options) []float64 {
	if opts.NFFT <= 0 {
		opts.NFFT = DefaultNFFT
	}
	if opts.NMels <= 0 {
		opts.NMels = DefaultNMels
	}
	if opts.Lag <= 0 {
		opts.Lag = 1
	}

	melDB := LogMelSpectrogram(samples, sr, hop, opts)
	frames := len(melDB)
	if frames == 0 {
		return []float64{}
	}

	flux := make([]float64, 0, frames)
	for t := opts.Lag; t < frames; t++ {
		cur, prev := melDB[t], melDB[t-opts.Lag]
		var sum float64
		for m := range cur {
			if d := cur[m] - prev[m]; d > 0 {
				sum += d
			}
		}
		flux = append(flux, sum/float64(len(cur)))
	}

	// Shift so that each value lines up with the frame where the change
	// lands, accounting for frame centring, then trim to the frame count.
	padWidth := opts.Lag + opts.NFFT/(2*hop)
	novelty := make([]float64, frames)
	for i, v := range flux {
		if j := i + padWidth; j < frames {
			novelty[j] = v
		}
	}
	return novelty
}

// LogMelSpectrogram returns a [frame][band] power mel spectrogram in dB,
// floored TopDB below its peak.
func LogMelSpectrogram(samples []float64, sr, hop int, opts Options) [][]float64 {
	spec := dsp.STFT(samples, opts.NFFT, hop, dsp.Hann(opts.NFFT))
	bank := MelFilterBank(float64(sr), opts.NFFT, opts.NMels, 0, 0)

	mel := make([][]float64, len(spec))
	peak := math.Inf(-1)
	for t, frame := range spec {
		power := dsp.Power(frame)
		row := make([]float64, len(bank))
		for m, weights := range bank {
			row[m] = powerToDB(floats.Dot(weights, power))
		}
		if len(row) > 0 {
			peak = math.Max(peak, floats.Max(row))
		}
		mel[t] = row
	}

	if opts.TopDB > 0 {
		floor := peak - opts.TopDB
		for _, row := range mel {
			for m := range row {
				row[m] = math.Max(row[m], floor)
			}
		}
	}
	return mel
}

func powerToDB(p float64) float64 {
	return 10 * math.Log10(math.Max(amin, p))
}
