package conditioner

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"math/cmplx"

	"github.com/carbocation/gwprep/strain"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Conditioner performs whitening and bandpass filtering on single strain
// buffers. It holds no per-buffer state and is safe for concurrent use.
type Conditioner struct {
	logger    *log.Logger
	averaging Averaging
}

// New returns a Conditioner that logs to logger. A nil logger discards output.
func New(logger *log.Logger) *Conditioner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Conditioner{logger: logger, averaging: Median}
}

// WithAveraging returns a copy that uses avg for every Welch estimate.
func (c *Conditioner) WithAveraging(avg Averaging) *Conditioner {
	out := *c
	out.averaging = avg
	return &out
}

// Whitened is the result of Whiten. WhitenedPSD and Frequencies are
// diagnostics; WhitenedPSD is empty when the trimmed output is shorter than
// one PSD segment.
type Whitened struct {
	Series      strain.Series
	WhitenedPSD PSD
	RawPSD      PSD
	Frequencies []float64
}

// Whiten flattens the noise spectrum of s. The whitening filter is the inverse
// amplitude spectrum truncated to whiteningWindow seconds with a Hann taper and
// zeroed below lowpassCutoff Hz. Half a filter length is corrupted at each end
// and is dropped, so the output is shorter than s and its StartTime is later.
// The output is multiplied by the minimum of the raw amplitude spectrum so that
// the whitened data keep an absolute strain scale.
func (c *Conditioner) Whiten(ctx context.Context, s strain.Series, lowpassCutoff, whiteningWindow float64) (Whitened, error) {
	if err := s.Validate(); err != nil {
		return Whitened{}, err
	}

	segLen, stride := SegmentGeometry(s.DeltaT)
	raw, err := Welch(s.Samples, s.DeltaT, segLen, stride, c.averaging)
	if err != nil {
		return Whitened{}, fmt.Errorf("%s file %d: raw PSD: %w", s.Detector, s.FileIndex, err)
	}
	if err := ctx.Err(); err != nil {
		return Whitened{}, err
	}

	n := s.Len()
	filterLen := strain.SamplesIn(whiteningWindow, s.DeltaT)
	if filterLen < 2 {
		return Whitened{}, fmt.Errorf("%w: whitening window %vs is shorter than 2 samples", ErrFilterDesign, whiteningWindow)
	}
	if filterLen >= n {
		return Whitened{}, fmt.Errorf("%w: whitening filter of %d samples does not fit in %d samples", ErrInsufficientData, filterLen, n)
	}

	full, err := InterpolateTo(raw, 1.0/(float64(n)*s.DeltaT), n/2+1)
	if err != nil {
		return Whitened{}, err
	}

	truncated, err := InverseSpectrumTruncation(full, filterLen, lowpassCutoff)
	if err != nil {
		return Whitened{}, err
	}
	if err := ctx.Err(); err != nil {
		return Whitened{}, err
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, s.Samples)
	for k, v := range truncated.Values {
		if v <= 0 || math.IsInf(v, 1) || math.IsNaN(v) {
			coeffs[k] = 0
			continue
		}
		coeffs[k] /= complex(math.Sqrt(v), 0)
	}
	white := fft.Sequence(nil, coeffs)
	floats.Scale(1/float64(n), white)

	half := filterLen / 2
	white = white[half : n-half]

	scale := math.Sqrt(floats.Min(raw.Values))
	floats.Scale(scale, white)

	out := Whitened{
		Series:      s.WithSamples(white, s.TimeAt(half)),
		RawPSD:      raw,
		Frequencies: raw.Frequencies(),
	}

	out.WhitenedPSD, err = Welch(white, s.DeltaT, segLen, stride, c.averaging)
	if err != nil {
		c.logger.Printf("%s file %d: skipping whitened PSD diagnostics: %v\n", s.Detector, s.FileIndex, err)
		out.WhitenedPSD = PSD{}
	}

	return out, ctx.Err()
}

// InverseSpectrumTruncation limits the impulse response of the inverse
// amplitude spectrum of psd to maxFilterLen samples. The inverse spectrum is
// zero below lowFrequencyCutoff and at the Nyquist bin. The returned PSD has
// the same length and spacing as psd; bins the filter cannot pass hold +Inf.
func InverseSpectrumTruncation(psd PSD, maxFilterLen int, lowFrequencyCutoff float64) (PSD, error) {
	if psd.Len() < 2 || psd.DeltaF <= 0 {
		return PSD{}, fmt.Errorf("%w: cannot truncate a PSD with %d bins", ErrInsufficientData, psd.Len())
	}

	n := 2 * (psd.Len() - 1)
	if maxFilterLen < 2 || maxFilterLen > n {
		return PSD{}, fmt.Errorf("%w: filter length %d must be within [2, %d]", ErrFilterDesign, maxFilterLen, n)
	}

	kmin := 0
	if lowFrequencyCutoff > 0 {
		kmin = int(lowFrequencyCutoff / psd.DeltaF)
	}

	invASD := make([]complex128, psd.Len())
	for k := kmin; k < n/2; k++ {
		if v := psd.Values[k]; v > 0 {
			invASD[k] = complex(1/math.Sqrt(v), 0)
		}
	}

	fft := fourier.NewFFT(n)
	q := fft.Sequence(nil, invASD)
	floats.Scale(1/float64(n), q)

	taper := make([]float64, maxFilterLen)
	for i := range taper {
		taper[i] = 1
	}
	taper = window.Hann(taper)

	truncStart := maxFilterLen / 2
	truncEnd := n - maxFilterLen/2

	for i := 0; i < truncStart; i++ {
		q[i] *= taper[maxFilterLen-truncStart+i]
	}
	for i := truncEnd; i < n; i++ {
		q[i] *= taper[i-truncEnd]
	}
	for i := truncStart; i < truncEnd; i++ {
		q[i] = 0
	}

	coeffs := fft.Coefficients(nil, q)

	out := PSD{
		Values: make([]float64, psd.Len()),
		DeltaF: psd.DeltaF,
	}
	for k, c := range coeffs {
		power := cmplx.Abs(c)
		power *= power
		if power == 0 {
			out.Values[k] = math.Inf(1)
			continue
		}
		out.Values[k] = 1 / power
	}

	return out, nil
}
