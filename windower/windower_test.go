package windower

import (
	"testing"

	"github.com/carbocation/gwprep/injection"
	"github.com/carbocation/gwprep/strain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 16

func ramp(n int, startTime float64) strain.Series {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i)
	}
	return strain.Series{
		Samples:   samples,
		DeltaT:    dt,
		StartTime: startTime,
		GPSStart:  1126259462,
		Detector:  "H1",
		FileIndex: 3,
	}
}

func TestNoiseWindowCounts(t *testing.T) {
	w := New(nil)

	for _, v := range []struct {
		Name      string
		StartTime float64
		Policy    NoisePolicy
		Expected  int
	}{
		{"whole buffer", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 10}, 45},
		{"duration cutoff", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 10, MaxDurationSeconds: 50}, 20},
		{"trimmed start", 1.5, NoisePolicy{WindowSize: 2, WarmupSeconds: 10, MaxDurationSeconds: 50}, 19},
		{"capped", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 10, NSamples: 5}, 5},
		{"cutoff beyond buffer", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 10, MaxDurationSeconds: 4090}, 45},
		{"warm-up consumes buffer", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 100}, 0},
		{"cutoff before warm-up", 0, NoisePolicy{WindowSize: 2, WarmupSeconds: 10, MaxDurationSeconds: 5}, 0},
	} {
		s := ramp(1600, v.StartTime)
		samples, err := w.Noise(v.Policy, s)
		require.NoError(t, err, v.Name)
		require.Len(t, samples, v.Expected, v.Name)

		offset := strain.SamplesIn(v.Policy.WarmupSeconds, dt)
		for i, sample := range samples {
			start := offset + i*32
			assert.Equal(t, i, sample.SampleIndex, v.Name)
			assert.Len(t, sample.Strain, 32, v.Name)
			assert.Len(t, sample.Time, 32, v.Name)
			assert.LessOrEqual(t, start+32, s.Len(), v.Name)
			assert.Equal(t, float64(start), sample.Strain[0], v.Name)
			assert.Equal(t, s.TimeAt(start), sample.Time[0], v.Name)
			assert.Equal(t, "H1", sample.Detector)
			assert.Equal(t, 3, sample.FileIndex)
			assert.Equal(t, 1126259462.0, sample.GPSStart)
			assert.Nil(t, sample.Injection)
		}
	}
}

func TestNoiseDeterministic(t *testing.T) {
	w := New(nil)
	policy := NoisePolicy{WindowSize: 1, WarmupSeconds: 3, MaxDurationSeconds: 60}

	first, err := w.Noise(policy, ramp(1600, 0.25))
	require.NoError(t, err)
	second, err := w.Noise(policy, ramp(1600, 0.25))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNoiseCopiesStrain(t *testing.T) {
	s := ramp(1600, 0)
	samples, err := New(nil).Noise(NoisePolicy{WindowSize: 1}, s)
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	samples[0].Strain[0] = -1
	assert.Equal(t, 0.0, s.Samples[0])
}

func TestNoiseInvalidWindow(t *testing.T) {
	_, err := New(nil).Noise(NoisePolicy{WindowSize: dt / 2}, ramp(100, 0))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAligned(t *testing.T) {
	s := ramp(1600, 0.5)
	records := []injection.Record{
		{InjectionTime: 0.25, SNR: 1, WaveformDuration: 0.25},  // starts before the first sample
		{InjectionTime: 4, SNR: 2, WaveformDuration: 0.25},     // index 50
		{InjectionTime: 99.9, SNR: 3, WaveformDuration: 0.25},  // ends exactly at the buffer end
		{InjectionTime: 100.3, SNR: 4, WaveformDuration: 0.25}, // overruns
	}

	samples, err := New(nil).Aligned(AlignedPolicy{WindowSize: 1}, s, 5, records)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, 0, first.SampleIndex)
	assert.Equal(t, 50.0, first.Strain[0])
	assert.InDelta(t, 3.625, first.Time[0], 1e-12)
	require.NotNil(t, first.Injection)
	assert.Equal(t, 5.0, first.Injection.Distance)
	assert.Equal(t, 2.0, first.Injection.SNR)
	assert.Equal(t, 4.0, first.Injection.InjectionTime)

	last := samples[1]
	assert.Equal(t, 1, last.SampleIndex)
	assert.Equal(t, 1584.0, last.Strain[0])
	assert.Equal(t, 1599.0, last.Strain[15])
	assert.Equal(t, 3.0, last.Injection.SNR)

	for _, sample := range samples {
		assert.GreaterOrEqual(t, sample.Time[0], s.TimeAt(0))
		assert.Len(t, sample.Strain, 16)
	}
}

func TestAlignedCap(t *testing.T) {
	s := ramp(1600, 0)
	var records []injection.Record
	for i := 1; i <= 10; i++ {
		records = append(records, injection.Record{InjectionTime: float64(2 * i), WaveformDuration: 0.5})
	}

	samples, err := New(nil).Aligned(AlignedPolicy{WindowSize: 1, NSamples: 3}, s, 1, records)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	for i, sample := range samples {
		assert.Equal(t, i, sample.SampleIndex)
	}
}

func TestAlignedValidate(t *testing.T) {
	policy := AlignedPolicy{WindowSize: 1}
	assert.ErrorIs(t, policy.Validate(1), ErrConfiguration)
	assert.ErrorIs(t, policy.Validate(1.5), ErrConfiguration)
	assert.NoError(t, policy.Validate(0.9))
}
