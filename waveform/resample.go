package waveform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// minSplinePoints is the smallest input Resample accepts.
const minSplinePoints = 4

// Resample interpolates h, sampled at time, onto a uniform grid at frequency
// Hz that starts at time[0] and stops before the last input time. The
// interpolant is a natural cubic spline through every input point.
func Resample(time, h []float64, frequency float64) (newTime, newH []float64, err error) {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return nil, nil, fmt.Errorf("%w: target frequency must be positive, got %v", ErrResampling, frequency)
	}
	if len(time) != len(h) {
		return nil, nil, fmt.Errorf("%w: %d time points but %d amplitudes", ErrResampling, len(time), len(h))
	}
	if len(time) < minSplinePoints {
		return nil, nil, fmt.Errorf("%w: need at least %d points, have %d", ErrResampling, minSplinePoints, len(time))
	}
	for i := 1; i < len(time); i++ {
		if !(time[i] > time[i-1]) {
			return nil, nil, fmt.Errorf("%w: time grid is not strictly increasing at point %d", ErrResampling, i)
		}
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(time, h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrResampling, err)
	}

	start, stop := time[0], time[len(time)-1]
	n := int(math.Ceil((stop - start) * frequency))
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: %v s span holds no samples at %v Hz", ErrResampling, stop-start, frequency)
	}

	newTime = make([]float64, 0, n)
	newH = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := start + float64(i)/frequency
		if t >= stop {
			break
		}
		newTime = append(newTime, t)
		newH = append(newH, spline.Predict(t))
	}

	return newTime, newH, nil
}
