package conditioner

import (
	"context"
	"fmt"
	"math"

	"github.com/carbocation/gwprep/strain"
	"github.com/jfcg/butter"
)

// DefaultFilterOrder is the highpass and FIR lowpass order used when callers
// do not specify one.
const DefaultFilterOrder = 8

// Filtered is the result of Bandpass. PSD is a diagnostic and is empty when
// the output is shorter than one PSD segment.
type Filtered struct {
	Series strain.Series
	PSD    PSD
}

// Bandpass restricts s to [fMin, fMax] Hz: a zero-phase highpass at fMin
// followed by a linear-phase FIR lowpass at fMax, both of the given order.
// The output has the same length and timing as s; the first and last
// order/2 samples are zero because the FIR stage cannot compute them.
func (c *Conditioner) Bandpass(ctx context.Context, s strain.Series, fMin, fMax float64, order int) (Filtered, error) {
	if err := s.Validate(); err != nil {
		return Filtered{}, err
	}
	if order <= 0 {
		order = DefaultFilterOrder
	}
	if fMin <= 0 || fMax <= fMin || fMax >= 0.5*s.SampleRate() {
		return Filtered{}, fmt.Errorf("%w: band [%v, %v] Hz is not valid at %v Hz sampling", ErrFilterDesign, fMin, fMax, s.SampleRate())
	}

	high, err := Highpass(s.Samples, fMin, s.SampleRate(), order)
	if err != nil {
		return Filtered{}, err
	}
	if err := ctx.Err(); err != nil {
		return Filtered{}, err
	}

	low, err := LowpassFIR(high, fMax, s.SampleRate(), order)
	if err != nil {
		return Filtered{}, err
	}

	out := Filtered{Series: s.WithSamples(low, s.StartTime)}

	segLen, stride := SegmentGeometry(s.DeltaT)
	out.PSD, err = Welch(low, s.DeltaT, segLen, stride, c.averaging)
	if err != nil {
		c.logger.Printf("%s file %d: skipping bandpassed PSD diagnostics: %v\n", s.Detector, s.FileIndex, err)
		out.PSD = PSD{}
	}

	return out, ctx.Err()
}

// Highpass removes content below cutoff Hz. It cascades first order
// Butterworth sections and runs them forward and then backward over the data,
// so the result has no phase shift and the combined order of both passes is
// order (rounded up to even).
func Highpass(samples []float64, cutoff, sampleRate float64, order int) ([]float64, error) {
	wc := 2.0 * math.Pi * cutoff / sampleRate
	sections := (order + 1) / 2

	forward, err := highpassSections(wc, sections)
	if err != nil {
		return nil, err
	}
	backward, err := highpassSections(wc, sections)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	for i, v := range samples {
		for _, filt := range forward {
			v = filt.Next(v)
		}
		out[i] = v
	}

	for i := len(out) - 1; i >= 0; i-- {
		v := out[i]
		for _, filt := range backward {
			v = filt.Next(v)
		}
		out[i] = v
	}

	return out, nil
}

// section is one stateful stage of a filter cascade.
type section interface {
	Next(u float64) float64
}

func highpassSections(wc float64, n int) ([]section, error) {
	out := make([]section, 0, n)
	for i := 0; i < n; i++ {
		filt := butter.NewHighPass1(wc)
		if filt == nil {
			return nil, fmt.Errorf("%w: invalid high-pass filter (attempted wc=%f, but expect .0001 < wc && wc < 3.1415)", ErrFilterDesign, wc)
		}
		out = append(out, filt)
	}

	return out, nil
}

// LowpassFIR removes content above cutoff Hz with a Kaiser-windowed sinc
// filter of order+1 taps. The filter delay is compensated, and the samples the
// filter cannot fully compute at each edge are set to zero.
func LowpassFIR(samples []float64, cutoff, sampleRate float64, order int) ([]float64, error) {
	numTaps := order + 1
	if len(samples) < numTaps {
		return nil, fmt.Errorf("%w: %d samples cannot hold a %d-tap filter", ErrInsufficientData, len(samples), numTaps)
	}

	nyquistFraction := cutoff / (0.5 * sampleRate)
	if nyquistFraction <= 0 || nyquistFraction >= 1 {
		return nil, fmt.Errorf("%w: lowpass cutoff %v Hz must lie below Nyquist (%v Hz)", ErrFilterDesign, cutoff, 0.5*sampleRate)
	}

	taps := LowpassTaps(numTaps, nyquistFraction, KaiserBeta)

	return zeroPhaseFIR(taps, samples), nil
}

// zeroPhaseFIR applies taps causally and shifts the result back by half the
// filter length. Edge samples that would need data from outside the buffer
// are left at zero.
func zeroPhaseFIR(taps, samples []float64) []float64 {
	n := len(samples)
	half := len(taps) / 2

	out := make([]float64, n)
	for i := 2 * half; i < n; i++ {
		acc := 0.0
		for j, h := range taps {
			if i-j < 0 {
				break
			}
			acc += h * samples[i-j]
		}
		out[i-half] = acc
	}

	return out
}
