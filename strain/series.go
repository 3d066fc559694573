package strain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSeries is returned when a series cannot describe a sampled signal,
// e.g., a non-positive sample spacing.
var ErrInvalidSeries = errors.New("invalid strain series")

// sampleEpsilon absorbs floating point error when converting a duration into a
// sample count, so that 4/(1/16000) yields 64000 and not 63999.
const sampleEpsilon = 1e-6

// SamplesIn returns the number of whole samples spanned by the given duration
// at the given sample spacing.
func SamplesIn(seconds, deltaT float64) int {
	if deltaT <= 0 || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds/deltaT + sampleEpsilon))
}

// Series is a uniformly sampled strain buffer from one detector file.
// StartTime is relative to the beginning of the file, in seconds. It is zero
// for freshly loaded data and advances when conditioning trims corrupted
// edges.
type Series struct {
	Samples   []float64
	DeltaT    float64
	StartTime float64
	GPSStart  float64
	Detector  string
	FileIndex int
}

func (s Series) Len() int {
	return len(s.Samples)
}

func (s Series) SampleRate() float64 {
	return 1.0 / s.DeltaT
}

// Duration is the time spanned by the samples.
func (s Series) Duration() float64 {
	return float64(len(s.Samples)) * s.DeltaT
}

// TimeAt returns the time of the i-th sample, relative to the file start.
func (s Series) TimeAt(i int) float64 {
	return s.StartTime + float64(i)*s.DeltaT
}

// SampleTimes returns the time of every sample in [from, to).
func (s Series) SampleTimes(from, to int) []float64 {
	if from < 0 {
		from = 0
	}
	if to > len(s.Samples) {
		to = len(s.Samples)
	}
	if to <= from {
		return nil
	}

	out := make([]float64, to-from)
	for i := range out {
		out[i] = s.TimeAt(from + i)
	}

	return out
}

// WithSamples returns a series that shares this series' metadata but carries
// different samples and start time. The samples are not copied.
func (s Series) WithSamples(samples []float64, startTime float64) Series {
	out := s
	out.Samples = samples
	out.StartTime = startTime
	return out
}

func (s Series) Validate() error {
	if s.DeltaT <= 0 || math.IsNaN(s.DeltaT) || math.IsInf(s.DeltaT, 0) {
		return fmt.Errorf("%w: delta_t must be positive, got %v", ErrInvalidSeries, s.DeltaT)
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("%w: %s file %d has no samples", ErrInvalidSeries, s.Detector, s.FileIndex)
	}

	return nil
}
