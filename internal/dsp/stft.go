// Package dsp holds the short-time Fourier transform primitives shared by the
// onset and tempo analysis packages.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Tiny is the smallest positive normal float64, used as the "approximately
// non-zero" threshold when undoing window overlap.
const Tiny = 2.2250738585072014e-308

// Hann returns a periodic Hann window of length n, suitable for spectral
// analysis with an n-point FFT.
func Hann(n int) []float64 {
	if n <= 0 {
		return nil
	}
	// gonum computes the symmetric window; the periodic one is the first n
	// samples of a symmetric window of length n+1.
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[:n]
}

// STFT computes the short-time Fourier transform of x. Frames are centred,
// meaning x is zero padded by nFFT/2 on both sides before framing. The result
// is indexed [frame][bin] with nFFT/2+1 bins per frame.
func STFT(x []float64, nFFT, hop int, win []float64) [][]complex128 {
	if nFFT <= 0 || hop <= 0 {
		panic("dsp: bad stft params")
	}
	pad := nFFT / 2
	padded := make([]float64, len(x)+2*pad)
	copy(padded[pad:], x)

	frames := 1 + (len(padded)-nFFT)/hop
	fft := fourier.NewFFT(nFFT)
	spec := make([][]complex128, frames)
	buf := make([]float64, nFFT)
	for t := 0; t < frames; t++ {
		start := t * hop
		for k := 0; k < nFFT; k++ {
			buf[k] = padded[start+k] * win[k]
		}
		spec[t] = fft.Coefficients(nil, buf)
	}
	return spec
}

// ISTFT inverts a centred STFT by windowed overlap-add, normalising by the
// summed squared window. The output is trimmed or zero padded to length.
func ISTFT(spec [][]complex128, nFFT, hop int, win []float64, length int) []float64 {
	if length <= 0 {
		return []float64{}
	}
	frames := len(spec)
	total := nFFT + hop*(frames-1)
	if frames == 0 {
		total = nFFT
	}
	y := make([]float64, total)
	wss := make([]float64, total)

	fft := fourier.NewFFT(nFFT)
	buf := make([]float64, nFFT)
	scale := 1 / float64(nFFT)
	for t, coeff := range spec {
		fft.Sequence(buf, coeff)
		start := t * hop
		for k := 0; k < nFFT; k++ {
			y[start+k] += buf[k] * scale * win[k]
			wss[start+k] += win[k] * win[k]
		}
	}
	for i := range y {
		if wss[i] > Tiny {
			y[i] /= wss[i]
		}
	}

	out := make([]float64, length)
	start := nFFT / 2
	if start < len(y) {
		copy(out, y[start:])
	}
	return out
}

// Magnitude returns |c| for every coefficient of a frame.
func Magnitude(frame []complex128) []float64 {
	mag := make([]float64, len(frame))
	for i, c := range frame {
		mag[i] = cmplx.Abs(c)
	}
	return mag
}

// Power returns |c|^2 for every coefficient of a frame.
func Power(frame []complex128) []float64 {
	p := make([]float64, len(frame))
	for i, c := range frame {
		re, im := real(c), imag(c)
		p[i] = re*re + im*im
	}
	return p
}

// FFTFrequencies returns the centre frequency of each of the nFFT/2+1 bins
// for the given sampling rate.
func FFTFrequencies(sr float64, nFFT int) []float64 {
	n := nFFT/2 + 1
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i) * sr / float64(nFFT)
	}
	return freqs
}

// NormalizeMax scales x in place so its largest absolute value is one. An
// all-zero input is left untouched.
func NormalizeMax(x []float64) {
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak <= Tiny {
		return
	}
	for i := range x {
		x[i] /= peak
	}
}
