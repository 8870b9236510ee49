package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitudes of the first half of the FFT of
// data, with the mean removed so bin 0 does not dominate. Any length works.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean, _ := Describe(data)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(spectrum)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod finds the strongest non-zero bin of ps, a spectrum of n
// samples, and converts it to a period in samples. ok is false when the
// spectrum is flat.
func DominantPeriod(ps []float64, n int) (period float64, ok bool) {
	best, bin := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, bin = ps[i], i
		}
	}
	if bin == 0 || best < 1e-9 {
		return 0, false
	}
	return float64(n) / float64(bin), true
}
