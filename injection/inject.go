package injection

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/carbocation/gwprep/conditioner"
	"gonum.org/v1/gonum/floats"
)

// Record describes one waveform added to a noise buffer. InjectionTime is in
// seconds from the start of the buffer.
type Record struct {
	Position         int
	InjectionTime    float64
	SNR              float64
	WaveformDuration float64
}

// Options controls a call to Inject.
type Options struct {
	IntervalSeconds   float64
	SamplingFrequency float64
	SampleDuration    float64 // 1/SamplingFrequency, as declared by the source file
	MaxInjections     int     // <= 0 means every planned position
	UseFirstHalf      bool
}

func (o Options) validate() error {
	if !(o.SamplingFrequency > 0) {
		return fmt.Errorf("sampling frequency must be positive, got %v", o.SamplingFrequency)
	}
	if !(o.SampleDuration > 0) {
		return fmt.Errorf("sample duration must be positive, got %v", o.SampleDuration)
	}
	if !(o.IntervalSeconds > 0) {
		return fmt.Errorf("injection interval must be positive, got %v", o.IntervalSeconds)
	}
	return nil
}

// Planner places waveforms into noise and scores them. It holds no
// per-buffer state and is safe for concurrent use.
type Planner struct {
	logger    *log.Logger
	averaging conditioner.Averaging
}

// NewPlanner returns a Planner that logs to logger. A nil logger discards
// output.
func NewPlanner(logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Planner{logger: logger, averaging: conditioner.Median}
}

// Inject adds waveform into a copy of noise at every planned position, up to
// opts.MaxInjections. An injection that would write past the end of the buffer
// is skipped with a warning and produces no Record. The noise buffer is never
// modified.
func (p *Planner) Inject(ctx context.Context, noise, waveform []float64, opts Options) ([]float64, []Record, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	out := make([]float64, len(noise))
	copy(out, noise)

	if len(waveform) == 0 {
		return out, nil, nil
	}

	positions := PlanPositions(len(noise), opts.IntervalSeconds, opts.SamplingFrequency, opts.UseFirstHalf)
	if opts.MaxInjections > 0 && len(positions) > opts.MaxInjections {
		positions = positions[:opts.MaxInjections]
	} else if opts.MaxInjections > len(positions) {
		p.logger.Printf("Requested %d injections but only %d fit in %d samples at %vs spacing\n", opts.MaxInjections, len(positions), len(noise), opts.IntervalSeconds)
	}

	if len(positions) > 0 {
		p.logger.Printf("First injection at sample %d (%.3fs)\n", positions[0], float64(positions[0])/opts.SamplingFrequency)
	}

	duration := float64(len(waveform)) * opts.SampleDuration
	records := make([]Record, 0, len(positions))
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return out, records, err
		}

		if pos+len(waveform) > len(out) {
			p.logger.Printf("Skipping injection at sample %d: waveform of %d samples would end past the buffer (%d samples)\n", pos, len(waveform), len(out))
			continue
		}

		floats.Add(out[pos:pos+len(waveform)], waveform)

		left, right := analysisWindow(pos, len(waveform), len(out), opts.SampleDuration)
		snr := p.EstimateSNR(waveform, out[left:right], opts.SampleDuration)

		rec := Record{
			Position:         pos,
			InjectionTime:    float64(pos) / opts.SamplingFrequency,
			SNR:              snr,
			WaveformDuration: duration,
		}
		p.logger.Printf("Injected at %.3fs, snr %.3f\n", rec.InjectionTime, rec.SNR)

		records = append(records, rec)
	}

	return out, records, nil
}
