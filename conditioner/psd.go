package conditioner

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/carbocation/gwprep/strain"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var (
	// ErrInsufficientData means the buffer is too short for the requested
	// spectral estimate or filter. Callers treat it as a reason to skip a
	// unit of work, not to abort a run.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrFilterDesign means the requested filter cannot be built for the
	// buffer's sampling rate.
	ErrFilterDesign = errors.New("invalid filter design")
)

// Welch segment geometry shared by whitening and SNR estimation.
const (
	SegmentSeconds = 4.0
	StrideSeconds  = 2.0
)

type Averaging int

const (
	Median Averaging = iota
	Mean
)

func (a Averaging) String() string {
	switch a {
	case Median:
		return "median"
	case Mean:
		return "mean"
	}
	return fmt.Sprintf("Averaging(%d)", int(a))
}

// PSD is a one-sided power spectral density sampled every DeltaF Hz, starting
// at 0 Hz.
type PSD struct {
	Values []float64
	DeltaF float64
}

func (p PSD) Len() int {
	return len(p.Values)
}

func (p PSD) Frequencies() []float64 {
	out := make([]float64, len(p.Values))
	for i := range out {
		out[i] = float64(i) * p.DeltaF
	}
	return out
}

// ASD returns the amplitude spectral density, sqrt(PSD).
func (p PSD) ASD() []float64 {
	out := make([]float64, len(p.Values))
	for i, v := range p.Values {
		out[i] = math.Sqrt(v)
	}
	return out
}

// SegmentGeometry returns the default Welch segment length and stride, in
// samples, for the given sample spacing.
func SegmentGeometry(deltaT float64) (segLen, stride int) {
	return strain.SamplesIn(SegmentSeconds, deltaT), strain.SamplesIn(StrideSeconds, deltaT)
}

// WelchDefault estimates the PSD with 4 second Hann-windowed segments spaced 2
// seconds apart, median averaged.
func WelchDefault(samples []float64, deltaT float64) (PSD, error) {
	segLen, stride := SegmentGeometry(deltaT)
	return Welch(samples, deltaT, segLen, stride, Median)
}

// Welch estimates the one-sided PSD of samples by averaging the periodograms
// of Hann-windowed segments of segLen samples placed every stride samples.
// Trailing samples that do not fill a segment are ignored. Median averaging is
// corrected for its bias relative to the mean.
func Welch(samples []float64, deltaT float64, segLen, stride int, avg Averaging) (PSD, error) {
	if deltaT <= 0 {
		return PSD{}, fmt.Errorf("%w: delta_t must be positive, got %v", ErrInsufficientData, deltaT)
	}
	if segLen < 2 || stride < 1 {
		return PSD{}, fmt.Errorf("%w: segment length %d and stride %d cannot segment the data", ErrInsufficientData, segLen, stride)
	}
	if len(samples) < segLen {
		return PSD{}, fmt.Errorf("%w: %d samples is shorter than one %d-sample PSD segment", ErrInsufficientData, len(samples), segLen)
	}

	nSegments := len(samples) / stride
	for nSegments > 1 && (nSegments-1)*stride+segLen > len(samples) {
		nSegments--
	}

	hann := make([]float64, segLen)
	for i := range hann {
		hann[i] = 1
	}
	hann = window.Hann(hann)

	wNorm := 0.0
	for _, w := range hann {
		wNorm += w * w
	}

	nBins := segLen/2 + 1
	fft := fourier.NewFFT(segLen)
	segment := make([]float64, segLen)
	coeffs := make([]complex128, nBins)

	// periodograms[bin][segment] for median averaging; sums only for mean.
	var periodograms [][]float64
	sums := make([]float64, nBins)
	if avg == Median {
		periodograms = make([][]float64, nBins)
		for i := range periodograms {
			periodograms[i] = make([]float64, nSegments)
		}
	}

	for s := 0; s < nSegments; s++ {
		start := s * stride
		for i := range segment {
			segment[i] = samples[start+i] * hann[i]
		}
		coeffs = fft.Coefficients(coeffs, segment)

		for k, c := range coeffs {
			power := cmplx.Abs(c)
			power *= power
			if avg == Median {
				periodograms[k][s] = power
			} else {
				sums[k] += power
			}
		}
	}

	norm := 2 * deltaT / wNorm
	out := PSD{
		Values: make([]float64, nBins),
		DeltaF: 1.0 / (float64(segLen) * deltaT),
	}

	switch avg {
	case Median:
		bias := medianBias(nSegments)
		for k := range out.Values {
			med, err := stats.Median(periodograms[k])
			if err != nil {
				return PSD{}, err
			}
			out.Values[k] = norm * med / bias
		}
	case Mean:
		for k := range out.Values {
			out.Values[k] = norm * sums[k] / float64(nSegments)
		}
	default:
		return PSD{}, fmt.Errorf("unknown averaging %v", avg)
	}

	return out, nil
}

// medianBias is the ratio of the median to the mean of n chi-squared(2)
// variates, used to unbias median-averaged periodograms.
func medianBias(n int) float64 {
	if n >= 1000 {
		return math.Log(2)
	}

	ans := 1.0
	for i := 1; i <= (n-1)/2; i++ {
		ans += 1.0/float64(2*i+1) - 1.0/float64(2*i)
	}

	return ans
}
