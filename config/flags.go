package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flags binds one command line flag per tunable Config field. Only flags that
// were explicitly set override a Config in Apply, so a config file can supply
// the rest.
type Flags struct {
	fs        *flag.FlagSet
	values    Config
	detectors string
	distances string
}

// RegisterFlags registers the Config flags on fs, with Defaults as the
// displayed defaults.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	def := Defaults()
	f := &Flags{fs: fs, values: def}
	v := &f.values

	fs.StringVar(&f.detectors, "detectors", strings.Join(def.Detectors, ","), "Comma-separated detectors to process, in order.")
	fs.StringVar(&f.distances, "distances", "", "Comma-separated source distances in kpc. Required for injection runs.")
	fs.Float64Var(&v.WindowSize, "window_size", def.WindowSize, "Length of each sample window, in seconds.")
	fs.Float64Var(&v.WhiteningCut, "whitening_cut", def.WhiteningCut, "Whitening low frequency cutoff, in Hz.")
	fs.Float64Var(&v.WhiteningWindow, "whitening_window", def.WhiteningWindow, "Whitening filter length, in seconds.")
	fs.Float64Var(&v.BandpassFMin, "fmin", def.BandpassFMin, "Bandpass lower edge, in Hz.")
	fs.Float64Var(&v.BandpassFMax, "fmax", def.BandpassFMax, "Bandpass upper edge, in Hz.")
	fs.IntVar(&v.BandpassOrder, "order", def.BandpassOrder, "Bandpass filter order.")
	fs.Float64Var(&v.InjectionIntervalSeconds, "interval", def.InjectionIntervalSeconds, "Spacing between injections, in seconds.")
	fs.StringVar(&v.Polarization, "polarization", def.Polarization, "Waveform channel to inject: h_plus or h_cross.")
	fs.IntVar(&v.NSamples, "n_samples", def.NSamples, "Maximum samples per detector (and per distance for injections).")
	fs.BoolVar(&v.UseFirstHalf, "first_half", def.UseFirstHalf, "Only inject into the first half of each file.")
	fs.Float64Var(&v.NoiseWarmupSeconds, "warmup", def.NoiseWarmupSeconds, "Noise windows start this many seconds into each file.")
	fs.Float64Var(&v.NoiseMaxDurationSeconds, "max_duration", def.NoiseMaxDurationSeconds, "Noise windows end before this time, in seconds. 0 disables the limit.")
	fs.IntVar(&v.Workers, "workers", def.Workers, "Number of files to condition concurrently.")
	fs.Float64Var(&v.ReferenceDistance, "reference_distance", def.ReferenceDistance, "Distance, in kpc, at which the waveform was simulated.")

	return f
}

// Apply copies every explicitly set flag into c.
func (f *Flags) Apply(c *Config) error {
	var err error

	f.fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}

		switch fl.Name {
		case "detectors":
			c.Detectors = splitList(f.detectors)
		case "distances":
			c.Distances, err = parseFloats(f.distances)
		case "window_size":
			c.WindowSize = f.values.WindowSize
		case "whitening_cut":
			c.WhiteningCut = f.values.WhiteningCut
		case "whitening_window":
			c.WhiteningWindow = f.values.WhiteningWindow
		case "fmin":
			c.BandpassFMin = f.values.BandpassFMin
		case "fmax":
			c.BandpassFMax = f.values.BandpassFMax
		case "order":
			c.BandpassOrder = f.values.BandpassOrder
		case "interval":
			c.InjectionIntervalSeconds = f.values.InjectionIntervalSeconds
		case "polarization":
			c.Polarization = f.values.Polarization
		case "n_samples":
			c.NSamples = f.values.NSamples
		case "first_half":
			c.UseFirstHalf = f.values.UseFirstHalf
		case "warmup":
			c.NoiseWarmupSeconds = f.values.NoiseWarmupSeconds
		case "max_duration":
			c.NoiseMaxDurationSeconds = f.values.NoiseMaxDurationSeconds
		case "workers":
			c.Workers = f.values.Workers
		case "reference_distance":
			c.ReferenceDistance = f.values.ReferenceDistance
		}
	})

	return err
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, v := range splitList(s) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: distance %q is not a number", ErrInvalid, v)
		}
		out = append(out, f)
	}
	return out, nil
}
