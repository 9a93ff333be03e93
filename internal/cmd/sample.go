package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
)

var sampleCmd = &cobra.Command{
	Use:   "sample POINT...",
	Short: "Print noise values at points",
	Long: `Print the noise value at each point. Points are comma-separated coordinates
with one value per dimension, e.g.

  wrapnoise sample 0.5,0.5 5.5,0.5 --octaves 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	src, _, err := sourceFromViper()
	if err != nil {
		return err
	}
	return printSamples(cmd.OutOrStdout(), src, args)
}

// printSamples writes one "point<TAB>value" line per argument.
func printSamples(out io.Writer, src noise.Source, args []string) error {
	for _, arg := range args {
		point, err := parsePoint(arg)
		if err != nil {
			return err
		}
		v, err := src.Sample(point...)
		if err != nil {
			return fmt.Errorf("failed to sample %s: %w", arg, err)
		}
		fmt.Fprintf(out, "%s\t%.12f\n", arg, v)
	}
	return nil
}

func parsePoint(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	point := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", s, err)
		}
		point[i] = v
	}
	return point, nil
}
