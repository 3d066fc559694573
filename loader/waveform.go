package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/waveform"
)

// ReadWaveform parses a three column table of time, h_plus and h_cross. The
// delimiter is detected from the data. A header row is optional; when present
// its column names select the columns, otherwise they are taken in order.
func ReadWaveform(r io.Reader, name string) (waveform.Waveform, error) {
	br := bufio.NewReader(r)
	delim := gwprep.DetermineDelimiter(br)

	rows, err := readRows(br, delim)
	if err != nil {
		return waveform.Waveform{}, fmt.Errorf("%w: %s: %v", ErrFormat, name, err)
	}
	if len(rows) == 0 {
		return waveform.Waveform{}, fmt.Errorf("%w: %s is empty", ErrFormat, name)
	}

	cols := [3]int{0, 1, 2}
	if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][0]), 64); err != nil {
		cols, err = headerColumns(rows[0])
		if err != nil {
			return waveform.Waveform{}, fmt.Errorf("%w: %s: %v", ErrFormat, name, err)
		}
		rows = rows[1:]
	}

	var out waveform.Waveform
	for i, row := range rows {
		var vals [3]float64
		for j, col := range cols {
			if col >= len(row) {
				return waveform.Waveform{}, fmt.Errorf("%w: %s row %d has %d columns", ErrFormat, name, i+1, len(row))
			}
			if vals[j], err = strconv.ParseFloat(strings.TrimSpace(row[col]), 64); err != nil {
				return waveform.Waveform{}, fmt.Errorf("%w: %s row %d: %v", ErrFormat, name, i+1, err)
			}
		}
		out.Time = append(out.Time, vals[0])
		out.HPlus = append(out.HPlus, vals[1])
		out.HCross = append(out.HCross, vals[2])
	}

	if err := out.Validate(); err != nil {
		return waveform.Waveform{}, fmt.Errorf("%s: %w", name, err)
	}

	return out, nil
}

func readRows(r io.Reader, delim rune) ([][]string, error) {
	if delim != gwprep.Whitespace {
		cr := csv.NewReader(r)
		cr.Comma = delim
		cr.Comment = '#'
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		return cr.ReadAll()
	}

	var out [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line))
	}

	return out, scanner.Err()
}

func headerColumns(header []string) ([3]int, error) {
	out := [3]int{-1, -1, -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "time", "t":
			out[0] = i
		case string(waveform.HPlus), "hplus", "hp":
			out[1] = i
		case string(waveform.HCross), "hcross", "hc":
			out[2] = i
		}
	}
	for _, v := range out {
		if v < 0 {
			return out, fmt.Errorf("header %v must name time, h_plus and h_cross columns", header)
		}
	}
	return out, nil
}

// WaveformReader reads waveform tables from local disk or Google Storage.
type WaveformReader struct {
	Client *storage.Client
}

func (w WaveformReader) ReadFile(ctx context.Context, path string) (waveform.Waveform, error) {
	rc, err := gwprep.OpenDecompressed(ctx, path, w.Client)
	if err != nil {
		return waveform.Waveform{}, err
	}
	defer rc.Close()

	return ReadWaveform(rc, path)
}
