package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/strain"
	"github.com/carbocation/pfx"
)

// ErrFormat is returned for strain or waveform files that cannot be parsed.
var ErrFormat = errors.New("unrecognized file format")

var (
	headerRate     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s+samples per second`)
	headerRateHz   = regexp.MustCompile(`sampled at\s+(\d+(?:\.\d+)?)\s*Hz`)
	headerGPS      = regexp.MustCompile(`starting GPS\s+(\d+(?:\.\d+)?)\s+duration\s+(\d+(?:\.\d+)?)`)
	headerDetector = regexp.MustCompile(`strain for\s+(?:[A-Z]-)?([A-Z][0-9])`)

	// GWOSC file names look like H-H1_GWOSC_4KHZ_R1-1256652800-4096.txt.gz
	gwoscName = regexp.MustCompile(`^[A-Z]-([A-Z][0-9])_.*-(\d+)-(\d+)\.`)
)

// header is what a GWOSC ASCII file declares about its contents. Fields that
// the file does not declare are zero.
type header struct {
	Detector   string
	GPSStart   float64
	Duration   float64
	SampleRate float64
}

func (h *header) parseLine(line string) {
	if m := headerRate.FindStringSubmatch(line); m != nil {
		h.SampleRate, _ = strconv.ParseFloat(m[1], 64)
	} else if m := headerRateHz.FindStringSubmatch(line); m != nil {
		h.SampleRate, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := headerGPS.FindStringSubmatch(line); m != nil {
		h.GPSStart, _ = strconv.ParseFloat(m[1], 64)
		h.Duration, _ = strconv.ParseFloat(m[2], 64)
	}
	if m := headerDetector.FindStringSubmatch(line); m != nil && h.Detector == "" {
		h.Detector = m[1]
	}
}

// fillFromName supplies anything the header left out from a GWOSC-style file
// name.
func (h *header) fillFromName(name string) {
	m := gwoscName.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return
	}
	if h.Detector == "" {
		h.Detector = m[1]
	}
	if h.GPSStart == 0 {
		h.GPSStart, _ = strconv.ParseFloat(m[2], 64)
	}
	if h.Duration == 0 {
		h.Duration, _ = strconv.ParseFloat(m[3], 64)
	}
}

// ReadStrain parses a GWOSC ASCII strain file: '#' header lines followed by
// one strain value per line. name is used for error messages and, for GWOSC
// file names, to fill in metadata the header omits. If the header gives no
// sample rate it is derived from the sample count and declared duration.
func ReadStrain(r io.Reader, name string) (strain.File, error) {
	var h header
	var samples []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			h.parseLine(line)
			continue
		}

		// Some exports carry a time column ahead of the strain column.
		fields := strings.Fields(line)
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			return strain.File{}, fmt.Errorf("%w: %s line %d: %v", ErrFormat, name, lineNo, err)
		}
		samples = append(samples, v)
	}
	if err := scanner.Err(); err != nil {
		return strain.File{}, pfx.Err(fmt.Errorf("%s: %w", name, err))
	}

	h.fillFromName(name)

	if len(samples) == 0 {
		return strain.File{}, fmt.Errorf("%w: %s contains no strain samples", ErrFormat, name)
	}
	if h.SampleRate == 0 && h.Duration > 0 {
		h.SampleRate = math.Round(float64(len(samples)) / h.Duration)
	}
	if !(h.SampleRate > 0) {
		return strain.File{}, fmt.Errorf("%w: %s declares neither a sample rate nor a duration", ErrFormat, name)
	}
	if h.Detector == "" {
		return strain.File{}, fmt.Errorf("%w: cannot determine the detector of %s", ErrFormat, name)
	}
	if h.Duration == 0 {
		h.Duration = float64(len(samples)) / h.SampleRate
	}

	return strain.File{
		Series: strain.Series{
			Samples:  samples,
			DeltaT:   1 / h.SampleRate,
			GPSStart: h.GPSStart,
			Detector: h.Detector,
		},
		Duration: h.Duration,
		Source:   name,
	}, nil
}

// StrainReader reads strain files from local disk or Google Storage,
// decompressing them as needed.
type StrainReader struct {
	// Client is needed only for gs:// paths.
	Client *storage.Client
}

func (s StrainReader) ReadFile(ctx context.Context, path string) (strain.File, error) {
	rc, err := gwprep.OpenDecompressed(ctx, path, s.Client)
	if err != nil {
		return strain.File{}, err
	}
	defer rc.Close()

	return ReadStrain(rc, path)
}
