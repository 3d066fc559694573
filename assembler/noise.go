package assembler

import (
	"context"

	"github.com/carbocation/gwprep/strain"
	"github.com/carbocation/gwprep/windower"
)

// AssembleNoise conditions and windows every configured detector's files,
// walking each detector's files in order until it has NSamples windows. The
// result holds at most NSamples windows per detector, concatenated in
// configuration order. Files that cannot be conditioned are logged and
// skipped. If ctx is canceled the samples gathered so far are returned along
// with ctx.Err().
func (a *Assembler) AssembleNoise(ctx context.Context, ds strain.Dataset) ([]windower.Sample, error) {
	groups := a.detectorGroups(ds)
	policy := a.cfg.NoisePolicy()

	slots := make([][]windower.Sample, len(groups))
	run(ctx, len(groups), a.cfg.Workers, func(i int) {
		slots[i] = a.noiseGroup(ctx, groups[i], policy)
	})

	var out []windower.Sample
	for _, v := range slots {
		out = append(out, v...)
	}

	a.logger.Printf("Generated %d total windowed noise samples\n", len(out))

	return out, ctx.Err()
}

func (a *Assembler) noiseGroup(ctx context.Context, group strain.DetectorFiles, policy windower.NoisePolicy) []windower.Sample {
	a.logger.Printf("Processing noise data for detector %s\n", group.Detector)

	var samples []windower.Sample
	for _, file := range group.Files {
		if a.cfg.NSamples > 0 && len(samples) >= a.cfg.NSamples {
			break
		}
		if ctx.Err() != nil {
			break
		}

		a.logger.Printf("%s: processing file %d/%d\n", group.Detector, file.FileIndex+1, len(group.Files))

		conditioned, err := a.condition(ctx, file.Series)
		if err != nil {
			a.logger.Printf("%s file %d: skipping: %v\n", group.Detector, file.FileIndex, err)
			continue
		}

		windows, err := a.windower.Noise(policy, conditioned)
		if err != nil {
			a.logger.Printf("%s file %d: skipping: %v\n", group.Detector, file.FileIndex, err)
			continue
		}

		samples = append(samples, windows...)
	}

	return a.capGroup(samples)
}
