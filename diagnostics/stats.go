package diagnostics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/gwprep/windower"
	"github.com/carbocation/runningvariance"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DetectorSummary describes the strain values of every window from one
// detector.
type DetectorSummary struct {
	Detector  string
	Samples   int
	Points    int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	MedianRMS float64
}

// Summarize returns one summary per detector, sorted by detector name.
func Summarize(samples []windower.Sample) []DetectorSummary {
	type acc struct {
		rv   *runningvariance.RunningStat
		sum  DetectorSummary
		rmss []float64
	}

	byDetector := make(map[string]*acc)
	for _, s := range samples {
		a, ok := byDetector[s.Detector]
		if !ok {
			a = &acc{
				rv: runningvariance.NewRunningStat(),
				sum: DetectorSummary{
					Detector: s.Detector,
					Min:      math.Inf(1),
					Max:      math.Inf(-1),
				},
			}
			byDetector[s.Detector] = a
		}

		a.sum.Samples++
		a.sum.Points += len(s.Strain)
		for _, x := range s.Strain {
			a.rv.Push(x)
		}
		if len(s.Strain) > 0 {
			a.sum.Min = math.Min(a.sum.Min, floats.Min(s.Strain))
			a.sum.Max = math.Max(a.sum.Max, floats.Max(s.Strain))
			a.rmss = append(a.rmss, math.Sqrt(floats.Dot(s.Strain, s.Strain)/float64(len(s.Strain))))
		}
	}

	out := make([]DetectorSummary, 0, len(byDetector))
	for _, a := range byDetector {
		if a.sum.Points > 0 {
			a.sum.Mean = a.rv.Mean()
			a.sum.StdDev = a.rv.StandardDeviation()
		}
		if len(a.rmss) > 0 {
			sort.Float64s(a.rmss)
			a.sum.MedianRMS = stat.Quantile(0.5, stat.Empirical, a.rmss, nil)
		}
		out = append(out, a.sum)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Detector < out[j].Detector })

	return out
}

// FprintSummaries writes summaries as an aligned table.
func FprintSummaries(w io.Writer, summaries []DetectorSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "detector\tsamples\tpoints\tmean\tstd\tmin\tmax\tmedian_rms")
	for _, v := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.5g\t%.5g\t%.5g\t%.5g\t%.5g\n", v.Detector, v.Samples, v.Points, v.Mean, v.StdDev, v.Min, v.Max, v.MedianRMS)
	}
	return tw.Flush()
}

// SNRs collects the SNR of every injection sample.
func SNRs(samples []windower.Sample) []float64 {
	var out []float64
	for _, s := range samples {
		if s.Injection != nil {
			out = append(out, s.Injection.SNR)
		}
	}
	return out
}

// SNRHistogram bins the injection SNRs of samples.
func SNRHistogram(samples []windower.Sample, bins int) (histogram.Histogram, error) {
	snrs := SNRs(samples)
	if len(snrs) == 0 {
		return histogram.Histogram{}, ErrNothingToPlot
	}
	if bins < 1 {
		bins = 1
	}
	return histogram.Hist(bins, snrs), nil
}

// FprintSNRHistogram draws the SNR histogram of samples as text.
func FprintSNRHistogram(w io.Writer, samples []windower.Sample, bins int) error {
	hist, err := SNRHistogram(samples, bins)
	if err != nil {
		return err
	}
	return histogram.Fprint(w, hist, histogram.Linear(40))
}
