package assembler

import (
	"context"
	"fmt"

	"github.com/carbocation/gwprep/injection"
	"github.com/carbocation/gwprep/strain"
	"github.com/carbocation/gwprep/waveform"
	"github.com/carbocation/gwprep/windower"
)

// InjectionSet is an injection dataset partitioned by source distance.
// Distances preserves configuration order.
type InjectionSet struct {
	Distances []float64
	Samples   map[float64][]windower.Sample
}

// Total is the number of samples across all distances.
func (s InjectionSet) Total() int {
	n := 0
	for _, v := range s.Samples {
		n += len(v)
	}
	return n
}

// AssembleInjections injects wf into every configured detector's files at
// every configured distance, then conditions and windows the result. The
// selected polarization is converted to dimensionless strain once and rescaled
// once per distance. Each detector contributes at most NSamples windows per
// distance.
//
// A window too short to contain the waveform is a configuration error and
// nothing is processed. Any other failure skips only the file it occurs in.
func (a *Assembler) AssembleInjections(ctx context.Context, ds strain.Dataset, wf waveform.Waveform) (InjectionSet, error) {
	out := InjectionSet{
		Distances: append([]float64(nil), a.cfg.Distances...),
		Samples:   make(map[float64][]windower.Sample, len(a.cfg.Distances)),
	}

	if err := wf.Validate(); err != nil {
		return out, err
	}
	policy := a.cfg.AlignedPolicy()
	if err := policy.Validate(wf.Duration()); err != nil {
		return out, err
	}

	pol, err := waveform.ParsePolarization(a.cfg.Polarization)
	if err != nil {
		return out, err
	}
	raw, err := wf.Channel(pol)
	if err != nil {
		return out, err
	}

	scaling := a.cfg.Scaling()
	a.logger.Println("Converting waveform to dimensionless")
	dimensionless := scaling.ToDimensionless(raw)

	rescaled := make([][]float64, len(out.Distances))
	for i, distance := range out.Distances {
		if rescaled[i], err = scaling.Rescale(dimensionless, distance); err != nil {
			return out, err
		}
	}

	groups := a.detectorGroups(ds)

	// One slot per (distance, detector), distance-major.
	slots := make([][]windower.Sample, len(out.Distances)*len(groups))
	run(ctx, len(slots), a.cfg.Workers, func(i int) {
		d, g := i/len(groups), i%len(groups)
		slots[i] = a.injectionGroup(ctx, groups[g], out.Distances[d], wf.Time, rescaled[d], policy)
	})

	for d, distance := range out.Distances {
		var samples []windower.Sample
		for g := range groups {
			samples = append(samples, slots[d*len(groups)+g]...)
		}
		out.Samples[distance] = samples
		a.logger.Printf("Generated %d samples at %v kpc\n", len(samples), distance)
	}

	return out, ctx.Err()
}

func (a *Assembler) injectionGroup(ctx context.Context, group strain.DetectorFiles, distance float64, wfTime, wfStrain []float64, policy windower.AlignedPolicy) []windower.Sample {
	a.logger.Printf("Processing detector %s at %v kpc\n", group.Detector, distance)

	var samples []windower.Sample
	for _, file := range group.Files {
		if a.cfg.NSamples > 0 && len(samples) >= a.cfg.NSamples {
			break
		}
		if ctx.Err() != nil {
			break
		}

		a.logger.Printf("%s: processing file %d/%d\n", group.Detector, file.FileIndex+1, len(group.Files))

		windows, err := a.injectionUnit(ctx, file.Series, distance, wfTime, wfStrain, policy)
		if err != nil {
			a.logger.Printf("%s file %d at %v kpc: skipping: %v\n", group.Detector, file.FileIndex, distance, err)
			continue
		}

		samples = append(samples, windows...)
	}

	return a.capGroup(samples)
}

func (a *Assembler) injectionUnit(ctx context.Context, s strain.Series, distance float64, wfTime, wfStrain []float64, policy windower.AlignedPolicy) ([]windower.Sample, error) {
	fs := s.SampleRate()

	possible := len(injection.PlanPositions(s.Len(), a.cfg.InjectionIntervalSeconds, fs, a.cfg.UseFirstHalf))
	if a.cfg.NSamples > possible {
		a.logger.Printf("n_samples (%d) > injections possible (%d), will only generate %d samples per file\n", a.cfg.NSamples, possible, possible)
	}

	_, resampled, err := waveform.Resample(wfTime, wfStrain, fs)
	if err != nil {
		return nil, fmt.Errorf("resampling waveform: %w", err)
	}

	a.logger.Printf("%s file %d: injecting waveforms into noise\n", s.Detector, s.FileIndex)
	injected, records, err := a.planner.Inject(ctx, s.Samples, resampled, injection.Options{
		IntervalSeconds:   a.cfg.InjectionIntervalSeconds,
		SamplingFrequency: fs,
		SampleDuration:    s.DeltaT,
		MaxInjections:     a.cfg.NSamples + 2,
		UseFirstHalf:      a.cfg.UseFirstHalf,
	})
	if err != nil {
		return nil, err
	}

	// Injection times are relative to the buffer; windows are placed in file
	// time.
	for i := range records {
		records[i].InjectionTime += s.StartTime
	}

	conditioned, err := a.condition(ctx, s.WithSamples(injected, s.StartTime))
	if err != nil {
		return nil, err
	}

	return a.windower.Aligned(policy, conditioned, distance, records)
}
