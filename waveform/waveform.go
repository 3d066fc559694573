package waveform

import (
	"errors"
	"fmt"
)

var (
	// ErrResampling means a waveform could not be interpolated onto a new
	// time grid. The affected file is skipped.
	ErrResampling = errors.New("waveform resampling failed")

	ErrInvalidWaveform = errors.New("invalid waveform")
)

// Polarization selects one of the two waveform channels.
type Polarization string

const (
	HPlus  Polarization = "h_plus"
	HCross Polarization = "h_cross"
)

func ParsePolarization(s string) (Polarization, error) {
	switch Polarization(s) {
	case HPlus, HCross:
		return Polarization(s), nil
	}
	return "", fmt.Errorf("%w: unknown polarization %q (expected %q or %q)", ErrInvalidWaveform, s, HPlus, HCross)
}

// Waveform is a simulated signal on a (not necessarily uniform) time grid,
// with both polarizations.
type Waveform struct {
	Time   []float64
	HPlus  []float64
	HCross []float64
}

func (w Waveform) Len() int {
	return len(w.Time)
}

// Duration is the span of the time grid, last minus first.
func (w Waveform) Duration() float64 {
	if len(w.Time) == 0 {
		return 0
	}
	return w.Time[len(w.Time)-1] - w.Time[0]
}

func (w Waveform) Channel(p Polarization) ([]float64, error) {
	var out []float64
	switch p {
	case HPlus:
		out = w.HPlus
	case HCross:
		out = w.HCross
	default:
		return nil, fmt.Errorf("%w: unknown polarization %q", ErrInvalidWaveform, p)
	}

	if len(out) != len(w.Time) {
		return nil, fmt.Errorf("%w: %s has %d points but the time grid has %d", ErrInvalidWaveform, p, len(out), len(w.Time))
	}

	return out, nil
}

func (w Waveform) Validate() error {
	if len(w.Time) < 2 {
		return fmt.Errorf("%w: need at least 2 time points, have %d", ErrInvalidWaveform, len(w.Time))
	}
	for i := 1; i < len(w.Time); i++ {
		if !(w.Time[i] > w.Time[i-1]) {
			return fmt.Errorf("%w: time grid is not strictly increasing at point %d", ErrInvalidWaveform, i)
		}
	}
	if len(w.HPlus) != len(w.Time) || len(w.HCross) != len(w.Time) {
		return fmt.Errorf("%w: polarizations have %d and %d points but the time grid has %d", ErrInvalidWaveform, len(w.HPlus), len(w.HCross), len(w.Time))
	}

	return nil
}
