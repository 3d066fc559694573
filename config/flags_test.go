package config

import (
	"errors"
	"flag"
	"io"
	"testing"
)

func TestFlagsApplyOnlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := RegisterFlags(fs)

	if err := fs.Parse([]string{"-detectors", "L1, H1", "-distances", "1,2.5", "-n_samples", "7", "-first_half=false"}); err != nil {
		t.Fatal(err)
	}

	// Pretend a config file already set these.
	c := Defaults()
	c.WindowSize = 2
	c.BandpassFMax = 800

	if err := flags.Apply(&c); err != nil {
		t.Fatal(err)
	}

	if len(c.Detectors) != 2 || c.Detectors[0] != "L1" || c.Detectors[1] != "H1" {
		t.Errorf("Expected detectors [L1 H1], got %v", c.Detectors)
	}
	if len(c.Distances) != 2 || c.Distances[1] != 2.5 {
		t.Errorf("Expected distances [1 2.5], got %v", c.Distances)
	}
	if c.NSamples != 7 || c.UseFirstHalf {
		t.Errorf("Expected n_samples 7 and first_half false, got %d and %v", c.NSamples, c.UseFirstHalf)
	}
	if c.WindowSize != 2 || c.BandpassFMax != 800 {
		t.Errorf("Unset flags overrode the file values: window %v fmax %v", c.WindowSize, c.BandpassFMax)
	}
}

func TestFlagsBadDistance(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flags := RegisterFlags(fs)

	if err := fs.Parse([]string{"-distances", "1,far"}); err != nil {
		t.Fatal(err)
	}

	c := Defaults()
	if err := flags.Apply(&c); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}
