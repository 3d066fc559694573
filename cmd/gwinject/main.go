package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/assembler"
	"github.com/carbocation/gwprep/buildinfo"
	"github.com/carbocation/gwprep/config"
	"github.com/carbocation/gwprep/diagnostics"
	"github.com/carbocation/gwprep/export"
	"github.com/carbocation/gwprep/loader"
	"github.com/carbocation/gwprep/pipeline"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
// Consider aliasing in .profile: alias gobuild='go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"'
var builddate string

func main() {
	fmt.Fprintln(os.Stderr, buildinfo.Read("gwinject", builddate))
	fmt.Fprintln(os.Stderr, strings.Join(os.Args, " "))

	var configPath, manifestPath, waveformPath, outDir string
	var filesPerDetector int
	var skipUnreadable, writeCSV, showHistogram bool
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration file. Flags set on the command line override it.")
	flag.StringVar(&manifestPath, "manifest", "", "CSV with 'detector' and 'path' columns listing GWOSC strain files (local or gs://).")
	flag.StringVar(&waveformPath, "waveform", "", "Waveform table with time, h_plus and h_cross columns, in cm at the reference distance.")
	flag.StringVar(&outDir, "out", ".", "Directory to write one dataset per distance into.")
	flag.IntVar(&filesPerDetector, "files_per_detector", 0, "If set, read at most this many files per detector.")
	flag.BoolVar(&skipUnreadable, "skip_unreadable", false, "Log and skip strain files that cannot be read instead of exiting.")
	flag.BoolVar(&writeCSV, "csv", false, "Also write a per-sample metadata CSV next to each dataset.")
	flag.BoolVar(&showHistogram, "histogram", true, "Print a histogram of injection SNRs per distance when done.")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if manifestPath == "" || waveformPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Defaults()
	if configPath != "" {
		var err error
		if cfg, err = config.ParseFromPath(configPath); err != nil {
			log.Fatalln(err)
		}
	}
	if err := overrides.Apply(&cfg); err != nil {
		log.Fatalln(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	if err := cfg.RequireDistances(); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := gwprep.StorageClientFor(ctx, manifestPath, waveformPath)
	if err != nil {
		log.Fatalln(err)
	}

	logger := log.Default()

	p := pipeline.Pipeline{
		Loader: loader.ManifestLoader{
			ManifestPath:     manifestPath,
			WaveformPath:     waveformPath,
			Detectors:        cfg.Detectors,
			FilesPerDetector: filesPerDetector,
			SkipUnreadable:   skipUnreadable,
			Client:           client,
			Logger:           logger,
		},
		Transformer: pipeline.InjectionTransformer{Assembler: assembler.New(cfg, logger)},
		Exporter: export.SQLiteExporter{
			Destination:   outDir,
			WriteManifest: writeCSV,
			Logger:        logger,
		},
		Logger: logger,
	}

	out, err := p.Execute(ctx)
	if err != nil {
		log.Fatalln(err)
	}

	log.Printf("Injection dataset generation complete: %d samples\n", out.Len())

	if !showHistogram || out.Injections == nil {
		return
	}

	for _, distance := range out.Injections.Distances {
		samples := out.Injections.Samples[distance]
		if len(samples) == 0 {
			continue
		}
		fmt.Printf("SNR at %v kpc (%d samples):\n", distance, len(samples))
		if err := diagnostics.FprintSNRHistogram(os.Stdout, samples, 10); err != nil {
			log.Println(err)
		}
	}
}
