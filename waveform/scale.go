package waveform

import (
	"fmt"
)

// CentimetersPerKiloparsec converts simulation output, which reports strain
// times source distance in centimeters, into strain at 1 kpc.
const CentimetersPerKiloparsec = 3.0856775814913673e21

// DefaultReferenceDistance is the distance, in kpc, that Rescale treats as
// unit amplitude.
const DefaultReferenceDistance = 10.0

// Scaling converts simulated amplitudes to detector strain at a distance.
type Scaling struct {
	ReferenceDistance        float64 // kpc
	CentimetersPerKiloparsec float64
}

func DefaultScaling() Scaling {
	return Scaling{
		ReferenceDistance:        DefaultReferenceDistance,
		CentimetersPerKiloparsec: CentimetersPerKiloparsec,
	}
}

// ToDimensionless divides a distance-weighted amplitude (in cm) by the length
// of a kiloparsec. The input is not modified.
func (s Scaling) ToDimensionless(h []float64) []float64 {
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = v / s.CentimetersPerKiloparsec
	}
	return out
}

// Rescale places a dimensionless waveform at distance kpc: amplitudes fall off
// as ReferenceDistance/distance. The input is not modified.
func (s Scaling) Rescale(h []float64, distance float64) ([]float64, error) {
	if !(distance > 0) {
		return nil, fmt.Errorf("%w: distance must be positive, got %v kpc", ErrInvalidWaveform, distance)
	}

	factor := s.ReferenceDistance / distance
	out := make([]float64, len(h))
	for i, v := range h {
		out[i] = v * factor
	}

	return out, nil
}
