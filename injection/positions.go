package injection

import (
	"math"
)

// PlanPositions returns the sample indices at which waveforms are injected:
// one every intervalSeconds, starting one interval in (never at index 0). With
// useFirstHalf only half of the intervals that fit are used, which keeps the
// back half of the buffer free of injections.
func PlanPositions(strainLength int, intervalSeconds, samplingFrequency float64, useFirstHalf bool) []int {
	samplesPerInterval := int(math.Floor(intervalSeconds*samplingFrequency + 1e-9))
	if samplesPerInterval <= 0 || strainLength <= 0 {
		return nil
	}

	maxCount := strainLength / samplesPerInterval

	count := maxCount
	if useFirstHalf {
		count = int(float64(maxCount) * 0.5)
	}

	if count == 0 {
		return nil
	}

	out := make([]int, count)
	for i := range out {
		out[i] = (i + 1) * samplesPerInterval
	}

	return out
}
