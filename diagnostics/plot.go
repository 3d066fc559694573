package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
)

var ErrNothingToPlot = errors.New("nothing to plot")

// PSDSeries is one labeled PSD curve.
type PSDSeries struct {
	Name string
	PSD  conditioner.PSD
}

// log10Band returns the frequencies in [fMin, fMax] and the log10 of the
// corresponding PSD values. Non-positive values are dropped. fMax <= 0 means
// no upper limit.
func log10Band(p conditioner.PSD, fMin, fMax float64) (x, y []float64) {
	for i, v := range p.Values {
		f := float64(i) * p.DeltaF
		if f < fMin || (fMax > 0 && f > fMax) {
			continue
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		x = append(x, f)
		y = append(y, math.Log10(v))
	}
	return x, y
}

// RenderPSD draws each series as log10(PSD) against frequency and writes a
// PNG to w.
func RenderPSD(w io.Writer, series []PSDSeries, fMin, fMax float64) error {
	graph := chart.Chart{
		Width:  1024,
		Height: 512,
		XAxis: chart.XAxis{
			Name: "Frequency (Hz)",
		},
		YAxis: chart.YAxis{
			Name: "log10 PSD (1/Hz)",
		},
	}

	for _, s := range series {
		x, y := log10Band(s.PSD, fMin, fMax)
		if len(x) < 2 {
			continue
		}
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: x,
			YValues: y,
		})
	}

	if len(graph.Series) == 0 {
		return ErrNothingToPlot
	}

	if len(graph.Series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return err
	}

	_, err := buffer.WriteTo(w)
	return err
}

// PlotPSD renders series to a PNG file at filename.
func PlotPSD(filename string, series []PSDSeries, fMin, fMax float64) error {
	outFile, err := os.Create(filename)
	if err != nil {
		return pfx.Err(err)
	}
	defer outFile.Close()

	if err := RenderPSD(outFile, series, fMin, fMax); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", filename, err))
	}

	return outFile.Close()
}
