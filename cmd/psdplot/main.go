package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/buildinfo"
	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/gwprep/config"
	"github.com/carbocation/gwprep/diagnostics"
	"github.com/carbocation/gwprep/loader"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
// Consider aliasing in .profile: alias gobuild='go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"'
var builddate string

func main() {
	fmt.Fprintln(os.Stderr, buildinfo.Read("psdplot", builddate))

	var configPath, strainPath, outDir string
	var plotMin, plotMax float64
	var mean bool
	flag.StringVar(&configPath, "config", "", "Optional JSON or YAML configuration file. Flags set on the command line override it.")
	flag.StringVar(&strainPath, "strain", "", "GWOSC strain file (local or gs://, optionally compressed).")
	flag.StringVar(&outDir, "out", ".", "Directory for the PNG files.")
	flag.Float64Var(&plotMin, "plot_fmin", 10, "Lowest frequency to plot, in Hz.")
	flag.Float64Var(&plotMax, "plot_fmax", 0, "Highest frequency to plot, in Hz. 0 plots up to Nyquist.")
	flag.BoolVar(&mean, "mean", false, "Use mean instead of median averaging for the Welch estimates.")
	overrides := config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if strainPath == "" {
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

	ctx := context.Background()
	client, err := gwprep.StorageClientFor(ctx, strainPath)
	if err != nil {
		log.Fatalln(err)
	}

	file, err := loader.StrainReader{Client: client}.ReadFile(ctx, strainPath)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Read %d samples of %s strain at %v Hz\n", file.Len(), file.Detector, file.SampleRate())

	cond := conditioner.New(log.Default())
	if mean {
		cond = cond.WithAveraging(conditioner.Mean)
	}

	w, err := cond.Whiten(ctx, file.Series, cfg.WhiteningCut, cfg.WhiteningWindow)
	if err != nil {
		log.Fatalln(err)
	}

	f, err := cond.Bandpass(ctx, w.Series, cfg.BandpassFMin, cfg.BandpassFMax, cfg.BandpassOrder)
	if err != nil {
		log.Fatalln(err)
	}

	base := strings.TrimSuffix(filepath.Base(strainPath), filepath.Ext(strainPath))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	plots := []struct {
		name   string
		series []diagnostics.PSDSeries
	}{
		{"raw", []diagnostics.PSDSeries{{Name: file.Detector + " raw", PSD: w.RawPSD}}},
		{"conditioned", []diagnostics.PSDSeries{
			{Name: "whitened", PSD: w.WhitenedPSD},
			{Name: "bandpassed", PSD: f.PSD},
		}},
	}

	for _, v := range plots {
		filename := filepath.Join(outDir, base+"_"+v.name+".png")
		if err := diagnostics.PlotPSD(filename, v.series, plotMin, plotMax); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Wrote %s\n", filename)
	}

	fmt.Fprintln(os.Stdout, "detector\tsamples_in\tsamples_whitened\tstart_time")
	fmt.Fprintf(os.Stdout, "%s\t%d\t%d\t%.5g\n", file.Detector, file.Len(), w.Series.Len(), w.Series.StartTime)
}
