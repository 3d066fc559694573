package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/carbocation/gwprep/buildinfo"
	"github.com/carbocation/gwprep/diagnostics"
	"github.com/carbocation/gwprep/export"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
// Consider aliasing in .profile: alias gobuild='go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"'
var builddate string

func main() {
	fmt.Fprintln(os.Stderr, buildinfo.Read("gwinspect", builddate))

	var bins int
	var manifest bool
	flag.IntVar(&bins, "bins", 10, "Number of SNR histogram buckets.")
	flag.BoolVar(&manifest, "manifest", false, "Print per-sample metadata as CSV instead of the summary.")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] dataset.sqlite [dataset.sqlite ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	for _, path := range flag.Args() {
		c, err := export.ReadContainer(ctx, path)
		if err != nil {
			log.Fatalln(err)
		}

		if manifest {
			if err := export.WriteManifestCSV(os.Stdout, c.Samples); err != nil {
				log.Fatalln(err)
			}
			continue
		}

		fmt.Printf("== %s ==\n", path)

		keys := make([]string, 0, len(c.Attributes))
		for k := range c.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s\t%s\n", k, c.Attributes[k])
		}
		fmt.Println()

		if err := diagnostics.FprintSummaries(os.Stdout, diagnostics.Summarize(c.Samples)); err != nil {
			log.Fatalln(err)
		}

		if len(diagnostics.SNRs(c.Samples)) > 0 {
			fmt.Println()
			if err := diagnostics.FprintSNRHistogram(os.Stdout, c.Samples, bins); err != nil {
				log.Fatalln(err)
			}
		}
		fmt.Println()
	}
}
