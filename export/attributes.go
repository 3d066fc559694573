package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/gwprep/windower"
	"github.com/montanaflynn/stats"
)

// Attribute is one key/value pair of container metadata.
type Attribute struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Attributes summarizes samples: their count and shape, the detectors, files
// and GPS range they came from, and for injection samples the distance and SNR
// distribution. The window geometry is taken from the first sample. Empty
// input yields no attributes.
func Attributes(samples []windower.Sample) []Attribute {
	if len(samples) == 0 {
		return nil
	}

	first := samples[0]
	points := len(first.Time)
	windowDuration := 0.0
	samplingRate := 0.0
	if points > 1 {
		windowDuration = first.Time[points-1] - first.Time[0]
		samplingRate = float64(points) / windowDuration
	}

	detectorSet := make(map[string]struct{})
	fileSet := make(map[int]struct{})
	gpsMin, gpsMax := first.GPSStart, first.GPSStart
	var snrs []float64
	for _, s := range samples {
		detectorSet[s.Detector] = struct{}{}
		fileSet[s.FileIndex] = struct{}{}
		if s.GPSStart < gpsMin {
			gpsMin = s.GPSStart
		}
		if s.GPSStart > gpsMax {
			gpsMax = s.GPSStart
		}
		if s.Injection != nil {
			snrs = append(snrs, s.Injection.SNR)
		}
	}

	detectors := make([]string, 0, len(detectorSet))
	for d := range detectorSet {
		detectors = append(detectors, d)
	}
	sort.Strings(detectors)

	out := []Attribute{
		{"n_samples", strconv.Itoa(len(samples))},
		{"window_duration", formatFloat(windowDuration)},
		{"sampling_rate", formatFloat(samplingRate)},
		{"n_points_per_sample", strconv.Itoa(points)},
		{"detectors", strings.Join(detectors, ",")},
		{"n_files", strconv.Itoa(len(fileSet))},
		{"gps_start_min", formatFloat(gpsMin)},
		{"gps_start_max", formatFloat(gpsMax)},
	}

	if first.Injection == nil || len(snrs) == 0 {
		return out
	}

	// The stats functions only fail on empty input, which is excluded above.
	min, _ := stats.Min(snrs)
	max, _ := stats.Max(snrs)
	mean, _ := stats.Mean(snrs)
	std, _ := stats.StandardDeviationPopulation(snrs)

	return append(out,
		Attribute{"distance_kpc", formatFloat(first.Injection.Distance)},
		Attribute{"snr_min", formatFloat(min)},
		Attribute{"snr_max", formatFloat(max)},
		Attribute{"snr_mean", formatFloat(mean)},
		Attribute{"snr_std", formatFloat(std)},
	)
}
