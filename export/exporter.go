package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/pipeline"
	"github.com/carbocation/gwprep/windower"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

const (
	NoiseFileName = "noise_dataset"
	Extension     = ".sqlite"
)

// InjectionFileName names the partition for one source distance.
func InjectionFileName(distance float64) string {
	return fmt.Sprintf("gw_strain_%s_kpc", strconv.FormatFloat(distance, 'f', -1, 64))
}

// SQLiteExporter writes one SQLite container per dataset partition into
// Destination. It satisfies pipeline.Exporter.
type SQLiteExporter struct {
	Destination string

	// WriteManifest also writes a CSV of per-sample metadata next to each
	// container.
	WriteManifest bool

	Logger *log.Logger
}

func (e SQLiteExporter) Export(ctx context.Context, out pipeline.Output) error {
	logger := e.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	dest := gwprep.ExpandHome(e.Destination)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return pfx.Err(err)
	}

	if out.Injections == nil {
		return e.partition(ctx, logger, filepath.Join(dest, NoiseFileName), out.Noise, "noise")
	}

	for _, distance := range out.Injections.Distances {
		samples := out.Injections.Samples[distance]
		label := fmt.Sprintf("%v kpc", distance)
		if err := e.partition(ctx, logger, filepath.Join(dest, InjectionFileName(distance)), samples, label); err != nil {
			return err
		}
	}

	return nil
}

func (e SQLiteExporter) partition(ctx context.Context, logger *log.Logger, base string, samples []windower.Sample, label string) error {
	if len(samples) == 0 {
		logger.Printf("No samples for %s, skipping\n", label)
		return nil
	}

	logger.Printf("Exporting %d samples (%s)\n", len(samples), label)
	path := base + Extension
	if err := WriteContainer(ctx, path, samples, Attributes(samples)); err != nil {
		return err
	}
	logger.Printf("Dataset saved to: %s\n", path)

	if !e.WriteManifest {
		return nil
	}

	f, err := os.Create(base + ".csv")
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	return WriteManifestCSV(f, samples)
}

// ManifestRow is the per-sample metadata written by WriteManifestCSV.
type ManifestRow struct {
	Row           int     `csv:"row"`
	Detector      string  `csv:"detector"`
	FileIndex     int     `csv:"file_index"`
	SampleIndex   int     `csv:"sample_index"`
	GPSStart      float64 `csv:"gps_start"`
	WindowStart   float64 `csv:"window_start"`
	Distance      string  `csv:"distance_kpc"`
	SNR           string  `csv:"snr"`
	InjectionTime string  `csv:"injection_time"`
}

// WriteManifestCSV writes one row of metadata per sample. Injection columns
// are empty for noise samples.
func WriteManifestCSV(w io.Writer, samples []windower.Sample) error {
	rows := make([]ManifestRow, 0, len(samples))
	for i, s := range samples {
		row := ManifestRow{
			Row:         i,
			Detector:    s.Detector,
			FileIndex:   s.FileIndex,
			SampleIndex: s.SampleIndex,
			GPSStart:    s.GPSStart,
		}
		if len(s.Time) > 0 {
			row.WindowStart = s.Time[0]
		}
		if s.Injection != nil {
			row.Distance = formatFloat(s.Injection.Distance)
			row.SNR = formatFloat(s.Injection.SNR)
			row.InjectionTime = formatFloat(s.Injection.InjectionTime)
		}
		rows = append(rows, row)
	}

	return gocsv.Marshal(&rows, w)
}
