package export

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/carbocation/gwprep/windower"
	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE samples (
	sample_row INTEGER PRIMARY KEY,
	times BLOB NOT NULL,
	strains BLOB NOT NULL,
	sample_indices INTEGER NOT NULL,
	file_indices INTEGER NOT NULL,
	detectors TEXT NOT NULL,
	gps_starts REAL NOT NULL,
	distances REAL,
	snrs REAL,
	injection_times REAL
);
CREATE TABLE attributes (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// sampleRow is the on-disk form of a windower.Sample. Time and strain vectors
// are stored as little-endian float64 blobs so they round trip bit for bit.
type sampleRow struct {
	Row           int        `db:"sample_row"`
	Times         []byte     `db:"times"`
	Strains       []byte     `db:"strains"`
	SampleIndex   int        `db:"sample_indices"`
	FileIndex     int        `db:"file_indices"`
	Detector      string     `db:"detectors"`
	GPSStart      float64    `db:"gps_starts"`
	Distance      null.Float `db:"distances"`
	SNR           null.Float `db:"snrs"`
	InjectionTime null.Float `db:"injection_times"`
}

func toRow(i int, s windower.Sample) sampleRow {
	row := sampleRow{
		Row:         i,
		Times:       encodeFloats(s.Time),
		Strains:     encodeFloats(s.Strain),
		SampleIndex: s.SampleIndex,
		FileIndex:   s.FileIndex,
		Detector:    s.Detector,
		GPSStart:    s.GPSStart,
	}
	if s.Injection != nil {
		row.Distance = null.FloatFrom(s.Injection.Distance)
		row.SNR = null.FloatFrom(s.Injection.SNR)
		row.InjectionTime = null.FloatFrom(s.Injection.InjectionTime)
	}
	return row
}

func (r sampleRow) sample() (windower.Sample, error) {
	times, err := decodeFloats(r.Times)
	if err != nil {
		return windower.Sample{}, err
	}
	strains, err := decodeFloats(r.Strains)
	if err != nil {
		return windower.Sample{}, err
	}

	out := windower.Sample{
		Time:        times,
		Strain:      strains,
		SampleIndex: r.SampleIndex,
		FileIndex:   r.FileIndex,
		Detector:    r.Detector,
		GPSStart:    r.GPSStart,
	}
	if r.Distance.Valid {
		out.Injection = &windower.InjectionMeta{
			Distance:      r.Distance.Float64,
			SNR:           r.SNR.Float64,
			InjectionTime: r.InjectionTime.Float64,
		}
	}
	return out, nil
}

func encodeFloats(v []float64) []byte {
	out := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(f))
	}
	return out
}

func decodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("float64 blob has %d bytes, which is not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

func open(path string) (*sqlx.DB, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return sqlx.Connect("sqlite3", path)
}

// WriteContainer replaces any file at path with a container holding samples
// and attrs.
func WriteContainer(ctx context.Context, path string, samples []windower.Sample, attrs []Attribute) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return pfx.Err(err)
	}

	db, err := open(path)
	if err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return pfx.Err(err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return pfx.Err(err)
	}
	defer tx.Rollback()

	insert, err := tx.PrepareNamedContext(ctx, `INSERT INTO samples
		(sample_row, times, strains, sample_indices, file_indices, detectors, gps_starts, distances, snrs, injection_times)
		VALUES
		(:sample_row, :times, :strains, :sample_indices, :file_indices, :detectors, :gps_starts, :distances, :snrs, :injection_times)`)
	if err != nil {
		return pfx.Err(err)
	}
	defer insert.Close()

	for i, s := range samples {
		if _, err := insert.ExecContext(ctx, toRow(i, s)); err != nil {
			return pfx.Err(fmt.Errorf("sample %d: %w", i, err))
		}
	}

	for _, a := range attrs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO attributes (key, value) VALUES (?, ?)", a.Key, a.Value); err != nil {
			return pfx.Err(fmt.Errorf("attribute %s: %w", a.Key, err))
		}
	}

	return pfx.Err(tx.Commit())
}

// Container is the content of one exported dataset partition.
type Container struct {
	Samples    []windower.Sample
	Attributes map[string]string
}

// ReadContainer loads a container written by WriteContainer, with samples in
// their original order.
func ReadContainer(ctx context.Context, path string) (Container, error) {
	if _, err := os.Stat(path); err != nil {
		return Container{}, pfx.Err(err)
	}

	db, err := open(path)
	if err != nil {
		return Container{}, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer db.Close()

	var rows []sampleRow
	if err := db.SelectContext(ctx, &rows, "SELECT * FROM samples ORDER BY sample_row"); err != nil {
		return Container{}, pfx.Err(err)
	}

	out := Container{
		Samples:    make([]windower.Sample, 0, len(rows)),
		Attributes: make(map[string]string),
	}
	for _, r := range rows {
		s, err := r.sample()
		if err != nil {
			return Container{}, pfx.Err(fmt.Errorf("%s row %d: %w", path, r.Row, err))
		}
		out.Samples = append(out.Samples, s)
	}

	var attrs []Attribute
	if err := db.SelectContext(ctx, &attrs, "SELECT key, value FROM attributes"); err != nil {
		return Container{}, pfx.Err(err)
	}
	for _, a := range attrs {
		out.Attributes[a.Key] = a.Value
	}

	return out, nil
}
