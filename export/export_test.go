package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/gwprep/assembler"
	"github.com/carbocation/gwprep/pipeline"
	"github.com/carbocation/gwprep/windower"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(detector string, file, index int, gps float64, meta *windower.InjectionMeta) windower.Sample {
	s := windower.Sample{
		Time:        []float64{10, 10.25, 10.5, 10.75},
		Strain:      []float64{1e-21, -math.Pi * 1e-22, math.SmallestNonzeroFloat64, 0},
		SampleIndex: index,
		FileIndex:   file,
		Detector:    detector,
		GPSStart:    gps,
		Injection:   meta,
	}
	return s
}

func TestInjectionFileName(t *testing.T) {
	assert.Equal(t, "gw_strain_10_kpc", InjectionFileName(10))
	assert.Equal(t, "gw_strain_0.5_kpc", InjectionFileName(0.5))
}

func TestContainerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "round.sqlite")
	in := []windower.Sample{
		sample("H1", 0, 0, 1256652800, nil),
		sample("L1", 1, 1, 1256656896, &windower.InjectionMeta{Distance: 5, SNR: 12.5, InjectionTime: 2}),
	}
	attrs := []Attribute{{"n_samples", "2"}, {"detectors", "H1,L1"}}

	ctx := context.Background()
	require.NoError(t, WriteContainer(ctx, path, in, attrs))

	// Writing twice replaces the container instead of failing on the schema.
	require.NoError(t, WriteContainer(ctx, path, in, attrs))

	out, err := ReadContainer(ctx, path)
	require.NoError(t, err)
	require.Len(t, out.Samples, 2)

	for i := range in {
		assert.Equal(t, in[i], out.Samples[i])
		for j := range in[i].Strain {
			assert.Equal(t, math.Float64bits(in[i].Strain[j]), math.Float64bits(out.Samples[i].Strain[j]))
		}
	}
	assert.Nil(t, out.Samples[0].Injection)
	assert.Equal(t, map[string]string{"n_samples": "2", "detectors": "H1,L1"}, out.Attributes)
}

func TestReadContainerMissing(t *testing.T) {
	_, err := ReadContainer(context.Background(), filepath.Join(t.TempDir(), "nope.sqlite"))
	assert.Error(t, err)
}

func TestDecodeFloatsRejectsPartialValues(t *testing.T) {
	_, err := decodeFloats([]byte{1, 2, 3})
	assert.Error(t, err)
}

func attrMap(attrs []Attribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.Key] = a.Value
	}
	return out
}

func TestAttributesNoise(t *testing.T) {
	assert.Empty(t, Attributes(nil))

	got := attrMap(Attributes([]windower.Sample{
		sample("L1", 0, 0, 300, nil),
		sample("H1", 0, 1, 100, nil),
		sample("H1", 1, 0, 200, nil),
	}))

	assert.Equal(t, "3", got["n_samples"])
	assert.Equal(t, "0.75", got["window_duration"])
	assert.Equal(t, "5.333333333333333", got["sampling_rate"])
	assert.Equal(t, "4", got["n_points_per_sample"])
	assert.Equal(t, "H1,L1", got["detectors"])
	assert.Equal(t, "2", got["n_files"])
	assert.Equal(t, "100", got["gps_start_min"])
	assert.Equal(t, "300", got["gps_start_max"])

	_, ok := got["snr_mean"]
	assert.False(t, ok)
	_, ok = got["distance_kpc"]
	assert.False(t, ok)
}

func TestAttributesInjection(t *testing.T) {
	got := attrMap(Attributes([]windower.Sample{
		sample("H1", 0, 0, 100, &windower.InjectionMeta{Distance: 10, SNR: 2}),
		sample("H1", 0, 1, 100, &windower.InjectionMeta{Distance: 10, SNR: 4}),
	}))

	assert.Equal(t, "10", got["distance_kpc"])
	assert.Equal(t, "2", got["snr_min"])
	assert.Equal(t, "4", got["snr_max"])
	assert.Equal(t, "3", got["snr_mean"])
	assert.Equal(t, "1", got["snr_std"])
}

func TestSQLiteExporterNoise(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := SQLiteExporter{Destination: dir, WriteManifest: true}

	out := pipeline.Output{Noise: []windower.Sample{
		sample("H1", 0, 0, 100, nil),
		sample("H1", 0, 1, 100, nil),
	}}
	require.NoError(t, e.Export(context.Background(), out))

	c, err := ReadContainer(context.Background(), filepath.Join(dir, NoiseFileName+Extension))
	require.NoError(t, err)
	assert.Len(t, c.Samples, 2)
	assert.Equal(t, "2", c.Attributes["n_samples"])

	f, err := os.Open(filepath.Join(dir, NoiseFileName+".csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "detector", records[0][1])
	assert.Equal(t, "", records[1][6])
}

func TestSQLiteExporterInjections(t *testing.T) {
	dir := t.TempDir()
	e := SQLiteExporter{Destination: dir}

	near := &windower.InjectionMeta{Distance: 1, SNR: 20, InjectionTime: 3}
	set := &assembler.InjectionSet{
		Distances: []float64{1, 2.5},
		Samples: map[float64][]windower.Sample{
			1: {sample("H1", 0, 0, 100, near)},
		},
	}
	require.NoError(t, e.Export(context.Background(), pipeline.Output{Injections: set}))

	c, err := ReadContainer(context.Background(), filepath.Join(dir, "gw_strain_1_kpc.sqlite"))
	require.NoError(t, err)
	require.Len(t, c.Samples, 1)
	assert.Equal(t, *near, *c.Samples[0].Injection)
	assert.Equal(t, "1", c.Attributes["distance_kpc"])

	// The empty partition is skipped, not written.
	_, err = os.Stat(filepath.Join(dir, "gw_strain_2.5_kpc.sqlite"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, NoiseFileName+Extension))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteManifestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifestCSV(&buf, []windower.Sample{
		sample("V1", 2, 3, 42, &windower.InjectionMeta{Distance: 0.5, SNR: 8, InjectionTime: 1.5}),
	}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"row", "detector", "file_index", "sample_index", "gps_start", "window_start", "distance_kpc", "snr", "injection_time"}, records[0])
	assert.Equal(t, []string{"0", "V1", "2", "3", "42", "10", "0.5", "8", "1.5"}, records[1])
}
