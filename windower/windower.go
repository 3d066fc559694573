package windower

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/carbocation/gwprep/strain"
)

// ErrConfiguration is returned for window settings that can never produce a
// valid sample. It is fatal for a run.
var ErrConfiguration = errors.New("invalid window configuration")

// Sample is one fixed-length window of conditioned strain. Injection is nil for
// plain-noise samples. SampleIndex counts windows within one file, so a sample
// is identified by its detector, FileIndex and SampleIndex together.
type Sample struct {
	Time        []float64
	Strain      []float64
	SampleIndex int
	FileIndex   int
	Detector    string
	GPSStart    float64
	Injection   *InjectionMeta
}

// InjectionMeta labels a window that contains an injected waveform.
type InjectionMeta struct {
	Distance      float64 // kpc
	SNR           float64
	InjectionTime float64 // seconds from the start of the source file
}

// Windower slices conditioned strain into samples. It holds no per-buffer
// state and is safe for concurrent use.
type Windower struct {
	logger *log.Logger
}

// New returns a Windower that logs to logger. A nil logger discards output.
func New(logger *log.Logger) *Windower {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Windower{logger: logger}
}

func window(s strain.Series, start, points int) (times, samples []float64) {
	samples = make([]float64, points)
	copy(samples, s.Samples[start:start+points])
	return s.SampleTimes(start, start+points), samples
}

func samplePoints(windowSize, deltaT float64) (int, error) {
	points := strain.SamplesIn(windowSize, deltaT)
	if points < 1 {
		return 0, fmt.Errorf("%w: window of %vs holds no samples at delta_t %v", ErrConfiguration, windowSize, deltaT)
	}
	return points, nil
}
