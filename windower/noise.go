package windower

import (
	"math"

	"github.com/carbocation/gwprep/strain"
)

const (
	// DefaultWarmupSeconds skips the start of a noise file, where the
	// detector data in a fresh 4096 s file are least stationary.
	DefaultWarmupSeconds = 2048.0

	// DefaultMaxDurationSeconds stops windowing a few seconds short of the
	// end of a 4096 s file, ahead of the samples lost to whitening.
	DefaultMaxDurationSeconds = 4090.0
)

// NoisePolicy configures plain-noise windowing.
type NoisePolicy struct {
	WindowSize float64 // seconds

	// WarmupSeconds of data after the first sample are skipped before the
	// first window.
	WarmupSeconds float64

	// MaxDurationSeconds is the file time, relative to the file start, at
	// which windowing stops. Zero windows the whole buffer.
	MaxDurationSeconds float64

	// NSamples caps the number of windows. Zero or less is uncapped.
	NSamples int
}

func DefaultNoisePolicy(windowSize float64, nSamples int) NoisePolicy {
	return NoisePolicy{
		WindowSize:         windowSize,
		WarmupSeconds:      DefaultWarmupSeconds,
		MaxDurationSeconds: DefaultMaxDurationSeconds,
		NSamples:           nSamples,
	}
}

// Noise slices s into contiguous, non-overlapping windows. Windowing starts
// WarmupSeconds into the buffer and stops at whichever comes first: the
// NSamples cap, the MaxDurationSeconds cutoff, or a window that would run past
// the end of the buffer. Running out of data is not an error.
func (w *Windower) Noise(policy NoisePolicy, s strain.Series) ([]Sample, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	points, err := samplePoints(policy.WindowSize, s.DeltaT)
	if err != nil {
		return nil, err
	}

	offset := strain.SamplesIn(policy.WarmupSeconds, s.DeltaT)
	if offset >= s.Len() {
		w.logger.Printf("%s file %d: warm-up of %d samples consumes the whole %d-sample buffer, no noise windows\n", s.Detector, s.FileIndex, offset, s.Len())
		return nil, nil
	}

	nWindows := (s.Len() - offset) / points
	if policy.MaxDurationSeconds > 0 {
		available := policy.MaxDurationSeconds - s.TimeAt(offset)
		if available <= 0 {
			return nil, nil
		}
		if byTime := int(math.Floor(available/policy.WindowSize + 1e-9)); byTime < nWindows {
			nWindows = byTime
		}
	}
	if policy.NSamples > 0 && nWindows > policy.NSamples {
		nWindows = policy.NSamples
	}

	out := make([]Sample, 0, nWindows)
	for i := 0; i < nWindows; i++ {
		start := offset + i*points
		if start+points > s.Len() {
			break
		}

		times, samples := window(s, start, points)
		out = append(out, Sample{
			Time:        times,
			Strain:      samples,
			SampleIndex: i,
			FileIndex:   s.FileIndex,
			Detector:    s.Detector,
			GPSStart:    s.GPSStart,
		})
	}

	return out, nil
}
