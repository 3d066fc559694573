package conditioner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Interpolate linearly resamples p onto a grid with spacing deltaF that covers
// the same maximum frequency. Values beyond the last input frequency are held
// at the last input value.
func Interpolate(p PSD, deltaF float64) (PSD, error) {
	if deltaF <= 0 || p.DeltaF <= 0 {
		return PSD{}, fmt.Errorf("%w: cannot interpolate from %v Hz to %v Hz", ErrInsufficientData, p.DeltaF, deltaF)
	}

	n := int(math.Floor(float64(p.Len()-1)*p.DeltaF/deltaF+1e-9)) + 1
	return InterpolateTo(p, deltaF, n)
}

// InterpolateTo is Interpolate with an explicit output length, for callers that
// must match the length of an existing spectrum.
func InterpolateTo(p PSD, deltaF float64, n int) (PSD, error) {
	if p.Len() < 2 {
		return PSD{}, fmt.Errorf("%w: need at least 2 PSD bins to interpolate, have %d", ErrInsufficientData, p.Len())
	}
	if n < 1 {
		return PSD{}, fmt.Errorf("%w: cannot interpolate onto %d bins", ErrInsufficientData, n)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(p.Frequencies(), p.Values); err != nil {
		return PSD{}, err
	}

	out := PSD{
		Values: make([]float64, n),
		DeltaF: deltaF,
	}
	for i := range out.Values {
		out.Values[i] = pl.Predict(float64(i) * deltaF)
	}

	return out, nil
}
