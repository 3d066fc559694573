package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/carbocation/gwprep/assembler"
	"github.com/carbocation/gwprep/strain"
	"github.com/carbocation/gwprep/waveform"
	"github.com/carbocation/gwprep/windower"
)

// Input is what a Loader produces. Waveform is nil for noise-only runs.
type Input struct {
	Dataset  strain.Dataset
	Waveform *waveform.Waveform
}

// Output is what a Transformer produces: either plain noise samples or an
// injection set, never both.
type Output struct {
	Noise      []windower.Sample
	Injections *assembler.InjectionSet
}

// Len is the number of samples in the output.
func (o Output) Len() int {
	if o.Injections != nil {
		return o.Injections.Total()
	}
	return len(o.Noise)
}

type Loader interface {
	Load(ctx context.Context) (Input, error)
}

type Transformer interface {
	Transform(ctx context.Context, in Input) (Output, error)
}

type Exporter interface {
	Export(ctx context.Context, out Output) error
}

// Pipeline runs load, transform and export in order.
type Pipeline struct {
	Loader      Loader
	Transformer Transformer
	Exporter    Exporter // Optional

	Logger *log.Logger
}

// Execute runs the pipeline and returns the transformed data. Nothing is
// exported if the transform fails, but whatever it produced is still returned.
func (p Pipeline) Execute(ctx context.Context) (Output, error) {
	logger := p.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if p.Loader == nil || p.Transformer == nil {
		return Output{}, fmt.Errorf("pipeline needs both a loader and a transformer")
	}

	logger.Println("Loading data")
	in, err := p.Loader.Load(ctx)
	if err != nil {
		return Output{}, fmt.Errorf("loading: %w", err)
	}
	logger.Printf("Loaded %d files from %d detectors\n", in.Dataset.FileCount(), len(in.Dataset.Detectors))

	logger.Println("Transforming data")
	out, err := p.Transformer.Transform(ctx, in)
	if err != nil {
		return out, fmt.Errorf("transforming: %w", err)
	}
	logger.Printf("Produced %d samples\n", out.Len())

	if p.Exporter == nil {
		return out, nil
	}

	logger.Println("Exporting data")
	if err := p.Exporter.Export(ctx, out); err != nil {
		return out, fmt.Errorf("exporting: %w", err)
	}

	return out, nil
}

// NoiseTransformer builds a plain-noise dataset.
type NoiseTransformer struct {
	Assembler *assembler.Assembler
}

func (t NoiseTransformer) Transform(ctx context.Context, in Input) (Output, error) {
	samples, err := t.Assembler.AssembleNoise(ctx, in.Dataset)
	return Output{Noise: samples}, err
}

// InjectionTransformer builds an injection dataset from the loaded waveform.
type InjectionTransformer struct {
	Assembler *assembler.Assembler
}

func (t InjectionTransformer) Transform(ctx context.Context, in Input) (Output, error) {
	if in.Waveform == nil {
		return Output{}, fmt.Errorf("injection runs need a waveform, but the loader provided none")
	}

	set, err := t.Assembler.AssembleInjections(ctx, in.Dataset, *in.Waveform)
	return Output{Injections: &set}, err
}
