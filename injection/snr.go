package injection

import (
	"math"
	"math/cmplx"

	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/gwprep/strain"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// SNRWindowSeconds is the amount of noise context, split evenly before
	// and after the waveform, used to estimate the PSD for an injection's
	// SNR.
	SNRWindowSeconds = 4.0

	// SNRLowFrequencyCutoff excludes frequencies below it from the SNR
	// integral.
	SNRLowFrequencyCutoff = 1.0
)

// EstimateSNR returns the optimal matched-filter SNR of waveform against the
// noise in noiseSegment. It returns 0 when the segment is shorter than the
// waveform or than one PSD segment.
func (p *Planner) EstimateSNR(waveform, noiseSegment []float64, sampleDuration float64) float64 {
	if len(noiseSegment) < len(waveform) {
		p.logger.Printf("Waveform length %d exceeds noise segment length %d. Returning snr = 0\n", len(waveform), len(noiseSegment))
		return 0
	}

	segLen, stride := conditioner.SegmentGeometry(sampleDuration)
	if len(noiseSegment) < segLen {
		p.logger.Printf("Noise segment of %d samples is shorter than one %d-sample PSD segment. Returning snr = 0\n", len(noiseSegment), segLen)
		return 0
	}

	psd, err := conditioner.Welch(noiseSegment, sampleDuration, segLen, stride, p.averaging)
	if err != nil {
		p.logger.Println("SNR PSD estimate failed, returning snr = 0:", err)
		return 0
	}

	n := len(waveform)
	if n < 2 {
		return 0
	}

	deltaF := 1.0 / (float64(n) * sampleDuration)
	psd, err = conditioner.InterpolateTo(psd, deltaF, n/2+1)
	if err != nil {
		p.logger.Println("SNR PSD interpolation failed, returning snr = 0:", err)
		return 0
	}

	return OptimalSNR(waveform, psd, sampleDuration, SNRLowFrequencyCutoff)
}

// OptimalSNR computes sqrt(4 Δf Σ |h̃(f)|²/S(f)) over fLow ≤ f < Nyquist, where
// h̃ is the continuous-normalized Fourier transform of waveform. psd must
// have len(waveform)/2+1 bins at spacing 1/(len(waveform)·deltaT). Bins with a
// non-positive PSD are ignored.
func OptimalSNR(waveform []float64, psd conditioner.PSD, deltaT, fLow float64) float64 {
	n := len(waveform)
	if n < 2 || psd.Len() < n/2+1 {
		return 0
	}

	fft := fourier.NewFFT(n)
	htilde := fft.Coefficients(nil, waveform)

	deltaF := 1.0 / (float64(n) * deltaT)
	kmin := 0
	if fLow > 0 {
		kmin = int(fLow / deltaF)
	}
	kmax := (n + 1) / 2

	sum := 0.0
	for k := kmin; k < kmax; k++ {
		s := psd.Values[k]
		if !(s > 0) || math.IsInf(s, 1) {
			continue
		}
		a := cmplx.Abs(htilde[k]) * deltaT
		sum += a * a / s
	}

	return math.Sqrt(4 * deltaF * sum)
}

// analysisWindow returns the [left, right) bounds of the noise context used
// for the SNR of a waveform of length n injected at position, clipped to the
// buffer.
func analysisWindow(position, n, bufferLength int, sampleDuration float64) (left, right int) {
	half := int(0.5 * float64(strain.SamplesIn(SNRWindowSeconds, sampleDuration)))

	left = position - half
	if left < 0 {
		left = 0
	}

	right = position + n + half
	if right > bufferLength {
		right = bufferLength
	}

	return left, right
}
