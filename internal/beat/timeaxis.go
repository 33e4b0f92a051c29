package beat

const (
	// DefaultSampleRate is the rate assumed for spectral-flux curves when none is given.
	DefaultSampleRate = 22050
	// DefaultActivationRate is the frame rate of neural beat activation curves.
	DefaultActivationRate = 100.0
)

// SpectralFluxTimeAxis returns the time in seconds of each of n novelty frames
// computed with the given hop and sampling rate: i*hop/sr.
func SpectralFluxTimeAxis(n, hop, sr int) []float64 {
	if hop <= 0 {
		hop = DefaultHopLength
	}
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	if n <= 0 {
		return []float64{}
	}
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(i) * float64(hop) / float64(sr)
	}
	return axis
}

// FixedRateTimeAxis returns the time in seconds of each of n frames of a curve
// sampled at rate Hz: i/rate.
func FixedRateTimeAxis(n int, rate float64) []float64 {
	if rate <= 0 {
		rate = DefaultActivationRate
	}
	if n <= 0 {
		return []float64{}
	}
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(i) / rate
	}
	return axis
}
