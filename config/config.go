package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/gwprep"
	"github.com/carbocation/gwprep/conditioner"
	"github.com/carbocation/gwprep/waveform"
	"github.com/carbocation/gwprep/windower"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of dataset preparation settings. It can be read from
// JSON or YAML; command line flags override individual fields.
type Config struct {
	ConfigPath string `json:"-" yaml:"-"`

	Detectors []string `json:"detectors" yaml:"detectors"`

	// Window length of each emitted sample, in seconds.
	WindowSize float64 `json:"window_size" yaml:"window_size"`

	// Whitening: the low frequency cutoff in Hz and the filter length in
	// seconds.
	WhiteningCut    float64 `json:"whitening_cut" yaml:"whitening_cut"`
	WhiteningWindow float64 `json:"whitening_window" yaml:"whitening_window"`

	BandpassFMin  float64 `json:"bandpass_fmin" yaml:"bandpass_fmin"`
	BandpassFMax  float64 `json:"bandpass_fmax" yaml:"bandpass_fmax"`
	BandpassOrder int     `json:"bandpass_order" yaml:"bandpass_order"`

	InjectionIntervalSeconds float64   `json:"injection_interval_seconds" yaml:"injection_interval_seconds"`
	Distances                []float64 `json:"distances" yaml:"distances"`
	Polarization             string    `json:"polarization" yaml:"polarization"`

	// Per-group sample cap.
	NSamples     int  `json:"n_samples" yaml:"n_samples"`
	UseFirstHalf bool `json:"use_first_half" yaml:"use_first_half"`

	NoiseWarmupSeconds      float64 `json:"noise_warmup_seconds" yaml:"noise_warmup_seconds"`
	NoiseMaxDurationSeconds float64 `json:"noise_max_duration_seconds" yaml:"noise_max_duration_seconds"`

	Workers int `json:"workers" yaml:"workers"`

	ReferenceDistance        float64 `json:"reference_distance" yaml:"reference_distance"`
	CentimetersPerKiloparsec float64 `json:"cm_per_kpc" yaml:"cm_per_kpc"`
}

// Defaults mirrors the settings used for the published datasets.
func Defaults() Config {
	return Config{
		Detectors:                []string{"H1", "L1", "V1"},
		WindowSize:               1.0,
		WhiteningCut:             10,
		WhiteningWindow:          0.5,
		BandpassFMin:             100,
		BandpassFMax:             1600,
		BandpassOrder:            conditioner.DefaultFilterOrder,
		InjectionIntervalSeconds: 2.0,
		Polarization:             string(waveform.HPlus),
		NSamples:                 1,
		UseFirstHalf:             true,
		NoiseWarmupSeconds:       windower.DefaultWarmupSeconds,
		NoiseMaxDurationSeconds:  windower.DefaultMaxDurationSeconds,
		Workers:                  1,
		ReferenceDistance:        waveform.DefaultReferenceDistance,
		CentimetersPerKiloparsec: waveform.CentimetersPerKiloparsec,
	}
}

// ParseFromPath reads a configuration file on top of Defaults. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func ParseFromPath(path string) (Config, error) {
	out := Defaults()
	out.ConfigPath = gwprep.ExpandHome(path)

	f, err := os.Open(out.ConfigPath)
	if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(out.ConfigPath)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(f).Decode(&out); err != nil {
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	default:
		if err := json.NewDecoder(f).Decode(&out); err != nil {
			if e, ok := err.(*json.SyntaxError); ok {
				log.Printf("syntax error at byte offset %d", e.Offset)
			}
			return out, pfx.Err(fmt.Errorf("%s: %w", path, err))
		}
	}

	return out, nil
}

// Validate checks the settings that can be checked without data. The
// window-versus-waveform check needs the waveform and lives in the
// assembler.
func (c Config) Validate() error {
	var problems []string

	if len(c.Detectors) == 0 {
		problems = append(problems, "no detectors")
	}
	if !(c.WindowSize > 0) {
		problems = append(problems, fmt.Sprintf("window_size must be positive, got %v", c.WindowSize))
	}
	if !(c.WhiteningCut >= 0) {
		problems = append(problems, fmt.Sprintf("whitening_cut must not be negative, got %v", c.WhiteningCut))
	}
	if !(c.WhiteningWindow > 0) {
		problems = append(problems, fmt.Sprintf("whitening_window must be positive, got %v", c.WhiteningWindow))
	}
	if !(c.BandpassFMin > 0) || !(c.BandpassFMax > c.BandpassFMin) {
		problems = append(problems, fmt.Sprintf("bandpass needs 0 < fmin < fmax, got %v and %v", c.BandpassFMin, c.BandpassFMax))
	}
	if c.BandpassOrder < 1 {
		problems = append(problems, fmt.Sprintf("bandpass_order must be at least 1, got %d", c.BandpassOrder))
	}
	if !(c.InjectionIntervalSeconds > 0) {
		problems = append(problems, fmt.Sprintf("injection_interval_seconds must be positive, got %v", c.InjectionIntervalSeconds))
	}
	seen := make(map[float64]bool, len(c.Distances))
	for _, d := range c.Distances {
		if !(d > 0) {
			problems = append(problems, fmt.Sprintf("distances must be positive, got %v", d))
		}
		if seen[d] {
			problems = append(problems, fmt.Sprintf("distance %v is listed more than once", d))
		}
		seen[d] = true
	}
	if _, err := waveform.ParsePolarization(c.Polarization); err != nil {
		problems = append(problems, err.Error())
	}
	if c.NSamples < 1 {
		problems = append(problems, fmt.Sprintf("n_samples must be at least 1, got %d", c.NSamples))
	}
	if c.NoiseWarmupSeconds < 0 || c.NoiseMaxDurationSeconds < 0 {
		problems = append(problems, "noise warm-up and max duration must not be negative")
	}
	if !(c.ReferenceDistance > 0) || !(c.CentimetersPerKiloparsec > 0) {
		problems = append(problems, "reference_distance and cm_per_kpc must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	return nil
}

// RequireDistances is Validate plus the settings only injection runs need.
func (c Config) RequireDistances() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Distances) == 0 {
		return fmt.Errorf("%w: injection runs need at least one distance", ErrInvalid)
	}
	return nil
}

func (c Config) Scaling() waveform.Scaling {
	return waveform.Scaling{
		ReferenceDistance:        c.ReferenceDistance,
		CentimetersPerKiloparsec: c.CentimetersPerKiloparsec,
	}
}

func (c Config) NoisePolicy() windower.NoisePolicy {
	return windower.NoisePolicy{
		WindowSize:         c.WindowSize,
		WarmupSeconds:      c.NoiseWarmupSeconds,
		MaxDurationSeconds: c.NoiseMaxDurationSeconds,
		NSamples:           c.NSamples,
	}
}

func (c Config) AlignedPolicy() windower.AlignedPolicy {
	return windower.AlignedPolicy{
		WindowSize: c.WindowSize,
		NSamples:   c.NSamples,
	}
}
