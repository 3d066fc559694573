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
	"github.com/carbocation/gwprep/export"
	"github.com/carbocation/gwprep/loader"
	"github.com/carbocation/gwprep/pipeline"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
// Consider aliasing in .profile: alias gobuild='go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"'
var builddate string

func main() {
	fmt.Fprintln(os.Stderr, buildinfo.Read("gwnoise", builddate))
	fmt.Fprintln(os.Stderr, strings.Join(os.Args, " "))

	var configPath, manifestPath, outDir string
	var filesPerDetector int
	var skipUnreadable, writeCSV bool
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration file. Flags set on the command line override it.")
	flag.StringVar(&manifestPath, "manifest", "", "CSV with 'detector' and 'path' columns listing GWOSC strain files (local or gs://).")
	flag.StringVar(&outDir, "out", ".", "Directory to write the noise dataset into.")
	flag.IntVar(&filesPerDetector, "files_per_detector", 0, "If set, read at most this many files per detector.")
	flag.BoolVar(&skipUnreadable, "skip_unreadable", false, "Log and skip strain files that cannot be read instead of exiting.")
	flag.BoolVar(&writeCSV, "csv", false, "Also write a per-sample metadata CSV next to the dataset.")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if manifestPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath, overrides)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := gwprep.StorageClientFor(ctx, manifestPath)
	if err != nil {
		log.Fatalln(err)
	}

	logger := log.Default()

	p := pipeline.Pipeline{
		Loader: loader.ManifestLoader{
			ManifestPath:     manifestPath,
			Detectors:        cfg.Detectors,
			FilesPerDetector: filesPerDetector,
			SkipUnreadable:   skipUnreadable,
			Client:           client,
			Logger:           logger,
		},
		Transformer: pipeline.NoiseTransformer{Assembler: assembler.New(cfg, logger)},
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

	log.Printf("Noise dataset generation complete: %d samples\n", out.Len())
}

func loadConfig(path string, overrides *config.Flags) (config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		var err error
		if cfg, err = config.ParseFromPath(path); err != nil {
			return cfg, err
		}
	}

	if err := overrides.Apply(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}
