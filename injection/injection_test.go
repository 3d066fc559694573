package injection

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 256.0

func gaussian(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

// chirp is a short windowed sweep, roughly what a burst waveform looks like.
func chirp(n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / testRate
		env := math.Sin(math.Pi * float64(i) / float64(n))
		out[i] = amplitude * env * math.Sin(2*math.Pi*(20+40*t)*t)
	}
	return out
}

func TestPlanPositions(t *testing.T) {
	for _, v := range []struct {
		Length       int
		Interval     float64
		Rate         float64
		UseFirstHalf bool
		Expected     []int
	}{
		{16384, 2.0, 4096, true, []int{8192}},
		{16384, 2.0, 4096, false, []int{8192, 16384}},
		{16383, 2.0, 4096, false, []int{8192}},
		{8191, 2.0, 4096, false, nil},
		{16384, 1.0 / 8192, 4096, false, nil},
		{40960, 1.0, 4096, true, []int{4096, 8192, 12288, 16384, 20480}},
	} {
		got := PlanPositions(v.Length, v.Interval, v.Rate, v.UseFirstHalf)
		assert.Equal(t, v.Expected, got, "PlanPositions(%d, %v, %v, %v)", v.Length, v.Interval, v.Rate, v.UseFirstHalf)

		for _, pos := range got {
			assert.NotZero(t, pos)
		}
	}
}

func TestEstimateSNRShortSegment(t *testing.T) {
	p := NewPlanner(nil)
	dt := 1 / testRate
	wf := chirp(256, 1)

	// Shorter than the waveform.
	assert.Equal(t, 0.0, p.EstimateSNR(wf, gaussian(1, 255), dt))

	// One sample shorter than a 4 second PSD segment.
	assert.Equal(t, 0.0, p.EstimateSNR(wf, gaussian(1, 1023), dt))

	// Exactly one segment proceeds normally.
	snr := p.EstimateSNR(wf, gaussian(1, 1024), dt)
	assert.Greater(t, snr, 0.0)
	assert.False(t, math.IsNaN(snr) || math.IsInf(snr, 0))
}

func TestEstimateSNRScalesWithAmplitude(t *testing.T) {
	p := NewPlanner(nil)
	dt := 1 / testRate
	noise := gaussian(7, 2048)

	weak := p.EstimateSNR(chirp(256, 1), noise, dt)
	strong := p.EstimateSNR(chirp(256, 2), noise, dt)

	require.Greater(t, weak, 0.0)
	assert.InDelta(t, 2*weak, strong, 1e-9*strong)

	// Louder noise means a quieter signal.
	loud := make([]float64, len(noise))
	for i, v := range noise {
		loud[i] = 3 * v
	}
	assert.InDelta(t, weak/3, p.EstimateSNR(chirp(256, 1), loud, dt), 1e-9*weak)
}

func TestInject(t *testing.T) {
	p := NewPlanner(nil)
	noise := gaussian(3, 16*int(testRate))
	original := append([]float64(nil), noise...)
	wf := chirp(256, 0.5)

	// 4 s spacing over 16 s gives positions 1024, 2048, 3072 and 4096. The last
	// would run off the end of the buffer and must be skipped.
	injected, records, err := p.Inject(context.Background(), noise, wf, Options{
		IntervalSeconds:   4,
		SamplingFrequency: testRate,
		SampleDuration:    1 / testRate,
	})
	require.NoError(t, err)

	assert.Equal(t, original, noise, "noise buffer was modified")
	require.Len(t, injected, len(noise))
	require.Len(t, records, 3)

	for i, rec := range records {
		pos := (i + 1) * 1024
		assert.Equal(t, pos, rec.Position)
		assert.InDelta(t, float64(pos)/testRate, rec.InjectionTime, 1e-12)
		assert.InDelta(t, 1.0, rec.WaveformDuration, 1e-12)
		assert.Greater(t, rec.SNR, 0.0)

		for j, v := range wf {
			assert.InDelta(t, noise[pos+j]+v, injected[pos+j], 1e-12)
		}
	}

	// Untouched samples stay untouched.
	assert.Equal(t, noise[:1024], injected[:1024])
	assert.Equal(t, noise[1024+256:2048], injected[1024+256:2048])
}

func TestInjectMaxInjections(t *testing.T) {
	p := NewPlanner(nil)
	noise := gaussian(4, 16*int(testRate))
	opts := Options{
		IntervalSeconds:   2,
		SamplingFrequency: testRate,
		SampleDuration:    1 / testRate,
		UseFirstHalf:      true,
		MaxInjections:     2,
	}

	_, records, err := p.Inject(context.Background(), noise, chirp(128, 1), opts)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 512, records[0].Position)
	assert.Equal(t, 1024, records[1].Position)

	// Asking for more than fit yields what fits: 8 intervals, first half.
	opts.MaxInjections = 10
	_, records, err = p.Inject(context.Background(), noise, chirp(128, 1), opts)
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestInjectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, records, err := NewPlanner(nil).Inject(ctx, gaussian(5, 4096), chirp(128, 1), Options{
		IntervalSeconds:   2,
		SamplingFrequency: testRate,
		SampleDuration:    1 / testRate,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
}

func TestInjectInvalidOptions(t *testing.T) {
	_, _, err := NewPlanner(nil).Inject(context.Background(), gaussian(5, 4096), chirp(128, 1), Options{
		IntervalSeconds:   2,
		SamplingFrequency: 0,
		SampleDuration:    1 / testRate,
	})
	assert.Error(t, err)
}
