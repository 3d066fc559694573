package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/pipeline"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// ManifestEntry is one row of an input manifest: a strain file and the
// detector it belongs to. Rows for a detector are loaded in manifest order.
type ManifestEntry struct {
	Detector string `csv:"detector"`
	Path     string `csv:"path"`
}

// ReadManifest parses a comma or tab delimited manifest with a header row
// naming the detector and path columns.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.Comma = gwprep.DetermineDelimiter(br)
	if cr.Comma == gwprep.Whitespace {
		cr.Comma = ','
	}
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	entries := []ManifestEntry{}
	if err := gocsv.UnmarshalCSV(cr, &entries); err != nil {
		return nil, err
	}

	for i, v := range entries {
		entries[i].Detector = strings.TrimSpace(v.Detector)
		entries[i].Path = strings.TrimSpace(v.Path)
		if entries[i].Detector == "" || entries[i].Path == "" {
			return nil, fmt.Errorf("%w: manifest row %d needs both a detector and a path", ErrFormat, i+1)
		}
	}

	return entries, nil
}

// ManifestLoader loads the strain files listed in a manifest, and optionally a
// waveform. It satisfies pipeline.Loader.
type ManifestLoader struct {
	ManifestPath string
	WaveformPath string // Optional

	// Detectors restricts loading to these detectors. Empty loads all.
	Detectors []string

	// FilesPerDetector caps how many files are read per detector. Zero or
	// less reads them all.
	FilesPerDetector int

	// SkipUnreadable logs and skips strain files that fail to load instead
	// of failing the whole load.
	SkipUnreadable bool

	Client *storage.Client
	Logger *log.Logger
}

func (m ManifestLoader) Load(ctx context.Context) (pipeline.Input, error) {
	logger := m.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	rc, err := gwprep.OpenDecompressed(ctx, m.ManifestPath, m.Client)
	if err != nil {
		return pipeline.Input{}, err
	}
	entries, err := ReadManifest(rc)
	rc.Close()
	if err != nil {
		return pipeline.Input{}, pfx.Err(fmt.Errorf("%s: %w", m.ManifestPath, err))
	}

	wanted := make(map[string]bool, len(m.Detectors))
	for _, v := range m.Detectors {
		wanted[v] = true
	}

	var out pipeline.Input
	loaded := make(map[string]int)
	reader := StrainReader{Client: m.Client}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if len(wanted) > 0 && !wanted[entry.Detector] {
			continue
		}
		if m.FilesPerDetector > 0 && loaded[entry.Detector] >= m.FilesPerDetector {
			continue
		}

		logger.Printf("Loading %s strain from %s\n", entry.Detector, entry.Path)
		file, err := reader.ReadFile(ctx, entry.Path)
		if err != nil {
			if m.SkipUnreadable {
				logger.Printf("Skipping %s: %v\n", entry.Path, err)
				continue
			}
			return out, err
		}
		if file.Detector != entry.Detector {
			logger.Printf("%s declares detector %s but the manifest lists it under %s; using %s\n", entry.Path, file.Detector, entry.Detector, entry.Detector)
			file.Detector = entry.Detector
		}

		out.Dataset.Add(file)
		loaded[entry.Detector]++
		logger.Printf("Loaded data for %s, file %d\n", entry.Detector, loaded[entry.Detector])
	}

	if m.WaveformPath != "" {
		logger.Printf("Loading waveform from %s\n", m.WaveformPath)
		wf, err := WaveformReader{Client: m.Client}.ReadFile(ctx, m.WaveformPath)
		if err != nil {
			return out, err
		}
		logger.Printf("Waveform loaded: %d points, duration: %.4fs\n", wf.Len(), wf.Duration())
		out.Waveform = &wf
	}

	return out, nil
}

// SupportedSourceRates are the sampling rates, in Hz, of the published strain
// files.
var SupportedSourceRates = []int{4096, 16000}

// SourcesPerSample returns how many source files are needed to produce
// nSamples samples at the given sampling rate. Two extra samples are budgeted
// because windowing discards injections near the edges.
func SourcesPerSample(nSamples, frequency int) (int, error) {
	supported := false
	for _, v := range SupportedSourceRates {
		if v == frequency {
			supported = true
			break
		}
	}
	if !supported {
		return 0, fmt.Errorf("Value of 'frequency' (%d) is not a valid choice in %v", frequency, SupportedSourceRates)
	}

	return int(math.Ceil(float64(nSamples+2) / float64(frequency))), nil
}
