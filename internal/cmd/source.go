package cmd

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/viper"

	"github.com/MeKo-Tech/wrapnoise/internal/baseline"
	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

const (
	algorithmWrap   = "wrap"
	algorithmPerlin = "perlin"
)

// noiseConfigFromViper reads the shared noise.* keys.
func noiseConfigFromViper() (noise.Config, error) {
	dim := viper.GetInt("noise.dimension")
	cfg := noise.Config{
		Dimension: dim,
		Octaves:   viper.GetInt("noise.octaves"),
		Periods:   fitPeriods(viper.GetIntSlice("noise.periods"), dim, viper.IsSet("noise.periods")),
		Unbias:    viper.GetBool("noise.unbias"),
	}
	if s := strings.TrimSpace(viper.GetString("noise.seed")); s != "" {
		seed := noise.SeedFromString(s)
		cfg.Seed = &seed
	}
	if err := cfg.Validate(); err != nil {
		return noise.Config{}, err
	}
	return cfg, nil
}

// fitPeriods trims the default periods to dim axes. Periods the user set
// explicitly are returned unchanged so that a mismatch is reported.
func fitPeriods(periods []int, dim int, explicit bool) []int {
	if explicit || dim < 0 || len(periods) <= dim {
		return periods
	}
	return periods[:dim]
}

// newSource builds the field named by algorithm.
func newSource(cfg noise.Config, algorithm string) (noise.Source, error) {
	switch algorithm {
	case algorithmWrap, "":
		f, err := noise.New(cfg, noise.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to build noise factory: %w", err)
		}
		return f, nil
	case algorithmPerlin:
		seed := rand.Int64()
		if cfg.Seed != nil {
			seed = *cfg.Seed
		}
		return baseline.NewPerlin(cfg.Dimension, seed)
	default:
		return nil, fmt.Errorf("invalid algorithm %q: must be %s or %s", algorithm, algorithmWrap, algorithmPerlin)
	}
}

// sourceFromViper combines noiseConfigFromViper and newSource.
func sourceFromViper() (noise.Source, noise.Config, error) {
	cfg, err := noiseConfigFromViper()
	if err != nil {
		return nil, noise.Config{}, err
	}
	src, err := newSource(cfg, viper.GetString("noise.algorithm"))
	if err != nil {
		return nil, noise.Config{}, err
	}
	return src, cfg, nil
}

// warmSource pre-populates every gradient a tile of the periodic world can
// touch. Without it, concurrent renderers would create lazy gradients in
// scheduling order and the same seed could yield different tiles.
func warmSource(src noise.Source, periods []int) error {
	f, ok := src.(*noise.Factory)
	if !ok || f.Dimension() != 2 {
		return nil
	}
	world := tile.NewProjection(periods, 1).Periods
	if err := f.Warm([]float64{0, 0}, world[:]); err != nil {
		return fmt.Errorf("failed to warm noise lattice: %w", err)
	}
	logger.Debug("Warmed noise lattice", "gradients", f.Gradients())
	return nil
}
