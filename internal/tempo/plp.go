// Package tempo derives periodicity information from onset novelty curves.
package tempo

import (
	"math"
	"math/cmplx"

	"github.com/lehigh-university-libraries/beatbench/internal/dsp"
)

const (
	DefaultWinLength = 384
	DefaultTempoMin  = 30.0
	DefaultTempoMax  = 300.0
)

// PLPOptions controls the predominant local pulse estimate.
type PLPOptions struct {
	// WinLength is the tempogram window in novelty frames.
	WinLength int
	// TempoMin and TempoMax bound the admissible tempo range in BPM.
	TempoMin float64
	TempoMax float64
}

// DefaultPLPOptions returns the settings used for beat tracking.
func DefaultPLPOptions() PLPOptions {
	return PLPOptions{
		WinLength: DefaultWinLength,
		TempoMin:  DefaultTempoMin,
		TempoMax:  DefaultTempoMax,
	}
}

// FourierTempogram is the short-time Fourier transform of a novelty curve,
// indexed [frame][tempo bin].
func FourierTempogram(novelty []float64, winLength int) [][]complex128 {
	return dsp.STFT(novelty, winLength, 1, dsp.Hann(winLength))
}

// TempoFrequencies returns the tempo in BPM of each Fourier tempogram bin.
func TempoFrequencies(sr, hop, winLength int) []float64 {
	frameRate := float64(sr) * 60 / float64(hop)
	return dsp.FFTFrequencies(frameRate, winLength)
}

// PLP computes the predominant local pulse curve for a novelty curve sampled
// every hop samples at sampling rate sr. The result has the same length as
// novelty, is non-negative and peaks at one unless it is identically zero.
func PLP(novelty []float64, sr, hop int, opts PLPOptions) []float64 {
	if opts.WinLength <= 0 {
		opts.WinLength = DefaultWinLength
	}
	if len(novelty) == 0 {
		return []float64{}
	}

	ftgram := FourierTempogram(novelty, opts.WinLength)
	freqs := TempoFrequencies(sr, hop, opts.WinLength)

	for _, frame := range ftgram {
		// restrict to the admissible tempo range
		for k, bpm := range freqs {
			if (opts.TempoMin > 0 && bpm < opts.TempoMin) || (opts.TempoMax > 0 && bpm > opts.TempoMax) {
				frame[k] = 0
			}
		}

		// keep only the dominant tempo bin of the frame
		peak := math.Inf(-1)
		logMag := make([]float64, len(frame))
		for k, c := range frame {
			logMag[k] = math.Log1p(1e6 * cmplx.Abs(c))
			peak = math.Max(peak, logMag[k])
		}
		peakAbs := 0.0
		for k := range frame {
			if logMag[k] < peak {
				frame[k] = 0
				continue
			}
			peakAbs = math.Max(peakAbs, cmplx.Abs(frame[k]))
		}

		// unit magnitude, phase only
		norm := complex(math.Sqrt(dsp.Tiny)+peakAbs, 0)
		for k := range frame {
			frame[k] /= norm
		}
	}

	pulse := dsp.ISTFT(ftgram, opts.WinLength, 1, dsp.Hann(opts.WinLength), len(novelty))
	for i, v := range pulse {
		if v < 0 {
			pulse[i] = 0
		}
	}
	dsp.NormalizeMax(pulse)
	return pulse
}
