package assembler

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/gwprep/config"
	"github.com/carbocation/gwprep/injection"
	"github.com/carbocation/gwprep/strain"
	"github.com/carbocation/gwprep/windower"
)

// Assembler builds datasets from loaded strain. Each (distance, detector)
// group is an independent unit of work; units may run concurrently, but their
// results are always concatenated in configuration order.
type Assembler struct {
	cfg         config.Config
	logger      *log.Logger
	conditioner *conditioner.Conditioner
	planner     *injection.Planner
	windower    *windower.Windower
}

// New returns an Assembler for cfg that logs to logger. A nil logger discards
// output. cfg is assumed to have been validated.
func New(cfg config.Config, logger *log.Logger) *Assembler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Assembler{
		cfg:         cfg,
		logger:      logger,
		conditioner: conditioner.New(logger),
		planner:     injection.NewPlanner(logger),
		windower:    windower.New(logger),
	}
}

// condition whitens then bandpasses a series.
func (a *Assembler) condition(ctx context.Context, s strain.Series) (strain.Series, error) {
	a.logger.Printf("%s file %d: applying whitening\n", s.Detector, s.FileIndex)
	w, err := a.conditioner.Whiten(ctx, s, a.cfg.WhiteningCut, a.cfg.WhiteningWindow)
	if err != nil {
		return strain.Series{}, err
	}

	a.logger.Printf("%s file %d: applying band-pass filter\n", s.Detector, s.FileIndex)
	f, err := a.conditioner.Bandpass(ctx, w.Series, a.cfg.BandpassFMin, a.cfg.BandpassFMax, a.cfg.BandpassOrder)
	if err != nil {
		return strain.Series{}, err
	}

	return f.Series, nil
}

// detectorGroups resolves the configured detectors against the dataset, in
// configuration order. Detectors without data are skipped with a warning.
func (a *Assembler) detectorGroups(ds strain.Dataset) []strain.DetectorFiles {
	out := make([]strain.DetectorFiles, 0, len(a.cfg.Detectors))
	for _, name := range a.cfg.Detectors {
		files, ok := ds.Lookup(name)
		if !ok || len(files.Files) == 0 {
			a.logger.Printf("Detector %s not found in loaded data, skipping\n", name)
			continue
		}
		out = append(out, files)
	}
	return out
}

// capGroup truncates a group's samples to the configured per-group maximum.
func (a *Assembler) capGroup(samples []windower.Sample) []windower.Sample {
	if a.cfg.NSamples > 0 && len(samples) > a.cfg.NSamples {
		return samples[:a.cfg.NSamples]
	}
	return samples
}

// run calls work(i) for i in [0, n), at most workers at a time. Results are
// expected to be written to slot i by work, so completion order does not
// matter. Once ctx is done no new units are started.
func run(ctx context.Context, n, workers int, work func(i int)) {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() != nil {
				return
			}
			work(i)
		}
		return
	}

	concurrencyLimit := make(chan struct{}, workers)
	pool := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}

		concurrencyLimit <- struct{}{}
		pool.Add(1)
		go func(i int) {
			defer func() {
				<-concurrencyLimit
				pool.Done()
			}()
			work(i)
		}(i)
	}

	pool.Wait()
}
