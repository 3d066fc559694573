package windower

import (
	"fmt"
	"math"

	"github.com/carbocation/gwprep/injection"
	"github.com/carbocation/gwprep/strain"
)

// AlignedPolicy configures injection-aligned windowing.
type AlignedPolicy struct {
	WindowSize float64 // seconds

	// NSamples caps the number of windows. Zero or less is uncapped.
	NSamples int
}

// Validate checks that a window can hold a whole waveform of the given
// duration.
func (p AlignedPolicy) Validate(waveformDuration float64) error {
	if p.WindowSize <= waveformDuration {
		return fmt.Errorf("%w: window_size (%vs) must be greater than waveform duration (%.4fs)", ErrConfiguration, p.WindowSize, waveformDuration)
	}
	return nil
}

// Aligned emits one window per injection, centered on the injected waveform.
// Injections whose window would start before the first sample of s, as
// happens when whitening trims the start of the buffer, are dropped. Windows
// that would end past the buffer are skipped with a warning. SampleIndex is
// the injection's position among those that start inside the buffer.
func (w *Windower) Aligned(policy AlignedPolicy, s strain.Series, distance float64, records []injection.Record) ([]Sample, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	points, err := samplePoints(policy.WindowSize, s.DeltaT)
	if err != nil {
		return nil, err
	}

	first := s.TimeAt(0)
	firstIndex := int(math.Floor(first / s.DeltaT))

	kept := make([]injection.Record, 0, len(records))
	starts := make([]float64, 0, len(records))
	for _, rec := range records {
		twin := rec.InjectionTime + 0.5*(rec.WaveformDuration-policy.WindowSize)
		if twin < first {
			continue
		}
		kept = append(kept, rec)
		starts = append(starts, twin)
	}

	out := make([]Sample, 0, len(kept))
	for j, rec := range kept {
		if policy.NSamples > 0 && len(out) >= policy.NSamples {
			break
		}

		start := int(math.Floor(starts[j]/s.DeltaT)) - firstIndex
		end := start + points
		if start < 0 || end > s.Len() {
			w.logger.Printf("%s file %d: window %d [%d, %d) exceeds strain length %d, skipping\n", s.Detector, s.FileIndex, j, start, end, s.Len())
			continue
		}

		times, samples := window(s, start, points)
		out = append(out, Sample{
			Time:        times,
			Strain:      samples,
			SampleIndex: j,
			FileIndex:   s.FileIndex,
			Detector:    s.Detector,
			GPSStart:    s.GPSStart,
			Injection: &InjectionMeta{
				Distance:      distance,
				SNR:           rec.SNR,
				InjectionTime: rec.InjectionTime,
			},
		})
	}

	return out, nil
}
