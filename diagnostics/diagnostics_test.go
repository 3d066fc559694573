package diagnostics

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/gwprep/windower"
)

func testPSD() conditioner.PSD {
	p := conditioner.PSD{DeltaF: 0.5, Values: make([]float64, 200)}
	for i := range p.Values {
		p.Values[i] = 1e-40 * float64(1+i)
	}
	p.Values[10] = 0
	return p
}

func TestLog10Band(t *testing.T) {
	x, y := log10Band(testPSD(), 2, 10)

	// 2..10 Hz at 0.5 Hz is 17 bins, and the zero at 5 Hz is dropped.
	if len(x) != 16 || len(y) != 16 {
		t.Fatalf("Expected 16 points, got %d and %d", len(x), len(y))
	}
	if x[0] != 2 || x[len(x)-1] != 10 {
		t.Errorf("Expected band 2-10 Hz, got %v-%v", x[0], x[len(x)-1])
	}
	for _, f := range x {
		if f == 5 {
			t.Errorf("Expected the zero-valued 5 Hz bin to be dropped")
		}
	}
}

func TestRenderPSD(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPSD(&buf, []PSDSeries{{Name: "H1", PSD: testPSD()}, {Name: "L1", PSD: testPSD()}}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Errorf("Expected PNG output")
	}
}

func TestRenderPSDEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPSD(&buf, []PSDSeries{{Name: "H1", PSD: conditioner.PSD{DeltaF: 1, Values: []float64{0, 0, 0}}}}, 0, 0)
	if !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("Expected ErrNothingToPlot, got %v", err)
	}
}

func TestPlotPSD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psd.png")
	if err := PlotPSD(path, []PSDSeries{{Name: "H1", PSD: testPSD()}}, 0, 50); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Errorf("Expected a non-empty PNG at %s (%v)", path, err)
	}
}

func TestSummarize(t *testing.T) {
	samples := []windower.Sample{
		{Detector: "L1", Strain: []float64{1, -1, 1, -1}},
		{Detector: "H1", Strain: []float64{1, 2, 3}},
		{Detector: "H1", Strain: []float64{4, 5}},
	}

	got := Summarize(samples)
	if len(got) != 2 {
		t.Fatalf("Expected 2 detectors, got %d", len(got))
	}

	h1 := got[0]
	if h1.Detector != "H1" || h1.Samples != 2 || h1.Points != 5 {
		t.Errorf("Unexpected H1 summary %+v", h1)
	}
	if math.Abs(h1.Mean-3) > 1e-12 || h1.Min != 1 || h1.Max != 5 {
		t.Errorf("Unexpected H1 moments %+v", h1)
	}
	if h1.StdDev <= 0 {
		t.Errorf("Expected a positive standard deviation, got %v", h1.StdDev)
	}

	l1 := got[1]
	if math.Abs(l1.Mean) > 1e-12 || l1.MedianRMS != 1 {
		t.Errorf("Unexpected L1 summary %+v", l1)
	}

	var buf bytes.Buffer
	if err := FprintSummaries(&buf, got); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("Expected a header and 2 rows, got %d lines", lines)
	}
}

func TestSNRHistogram(t *testing.T) {
	samples := []windower.Sample{
		{Detector: "H1"},
		{Detector: "H1", Injection: &windower.InjectionMeta{SNR: 1}},
		{Detector: "H1", Injection: &windower.InjectionMeta{SNR: 5}},
		{Detector: "L1", Injection: &windower.InjectionMeta{SNR: 9}},
	}

	if snrs := SNRs(samples); len(snrs) != 3 {
		t.Fatalf("Expected 3 SNRs, got %v", snrs)
	}

	hist, err := SNRHistogram(samples, 4)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, b := range hist.Buckets {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("Expected 3 counts across buckets, got %d", total)
	}

	var buf bytes.Buffer
	if err := FprintSNRHistogram(&buf, samples, 4); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Errorf("Expected histogram output")
	}

	if _, err := SNRHistogram(samples[:1], 4); !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("Expected ErrNothingToPlot for noise-only samples, got %v", err)
	}
}
