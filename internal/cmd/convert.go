package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/wrapnoise/internal/mbtiles"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Pack a tile folder into an MBTiles database",
	Long: `Convert a folder written by "wrapnoise tiles --format folder" into an MBTiles
database. Flat (z{z}_x{x}_y{y}.png) and nested ({z}/{x}/{y}.png) layouts are
both recognised. The current noise flags are recorded in the metadata.`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", "./tiles", "Input directory containing tiles")
	convertCmd.Flags().StringP("output", "o", "", "Output MBTiles file path (required)")
	convertCmd.Flags().String("name", "wrapnoise", "Tileset name")
	convertCmd.Flags().String("description", "Seamless noise tiles", "Tileset description")

	bindFlags(convertCmd, map[string]string{
		"convert.input_dir":   "input-dir",
		"convert.output":      "output",
		"convert.name":        "name",
		"convert.description": "description",
	})
}

func runConvert(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	inputDir := viper.GetString("convert.input_dir")
	outputFile := viper.GetString("convert.output")
	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	cfg, err := noiseConfigFromViper()
	if err != nil {
		return err
	}

	meta := mbtiles.Metadata{
		Name:        viper.GetString("convert.name"),
		Description: viper.GetString("convert.description"),
		Format:      "png",
		Type:        "baselayer",
		Version:     "1.0",
		Bounds:      [4]float64{-180, -85.051129, 180, 85.051129},
		Seed:        viper.GetString("noise.seed"),
		Octaves:     cfg.Octaves,
		Periods:     cfg.Periods,
		Unbias:      cfg.Unbias,
	}

	n, err := convertFolder(inputDir, outputFile, meta)
	if err != nil {
		return err
	}
	logger.Info("Conversion complete", "output", outputFile, "tiles", n)
	return nil
}

// convertFolder copies every tile under inputDir into a new MBTiles file
// and returns the number of tiles written. Zoom metadata comes from the
// tiles found.
func convertFolder(inputDir, outputFile string, meta mbtiles.Metadata) (int, error) {
	if _, err := os.Stat(inputDir); err != nil {
		return 0, fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	tiles, minZoom, maxZoom, err := scanTilesDirectory(inputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to scan tiles directory: %w", err)
	}
	if len(tiles) == 0 {
		return 0, fmt.Errorf("no tiles found in %s", inputDir)
	}
	meta.MinZoom, meta.MaxZoom = minZoom, maxZoom
	meta.Center = [3]float64{(meta.Bounds[0] + meta.Bounds[2]) / 2, (meta.Bounds[1] + meta.Bounds[3]) / 2, float64(minZoom)}

	writer, err := mbtiles.New(outputFile, meta)
	if err != nil {
		return 0, fmt.Errorf("failed to create MBTiles writer: %w", err)
	}
	defer writer.Close()

	for _, t := range tiles {
		data, err := os.ReadFile(t.path)
		if err != nil {
			return 0, fmt.Errorf("failed to read tile %s: %w", t.path, err)
		}
		if err := writer.WriteTile(t.z, t.x, t.y, data); err != nil {
			return 0, err
		}
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return len(tiles), nil
}

type tileInfo struct {
	path    string
	z, x, y int
}

var (
	flatTilePattern   = regexp.MustCompile(`^z(\d+)_x(\d+)_y(\d+)\.png$`)
	nestedTilePattern = regexp.MustCompile(`(?:^|/)(\d+)/(\d+)/(\d+)\.png$`)
)

// scanTilesDirectory finds flat and nested tiles below dir. @2x tiles
// are skipped because a tileset has a single tile size.
func scanTilesDirectory(dir string) ([]tileInfo, int, int, error) {
	var tiles []tileInfo
	minZoom, maxZoom := tile.MaxZoom+1, 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		m := flatTilePattern.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			m = nestedTilePattern.FindStringSubmatch(filepath.ToSlash(rel))
		}
		if m == nil {
			return nil
		}

		z, _ := strconv.Atoi(m[1])
		x, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		tiles = append(tiles, tileInfo{path: path, z: z, x: x, y: y})
		minZoom = min(minZoom, z)
		maxZoom = max(maxZoom, z)
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	if len(tiles) == 0 {
		return nil, 0, 0, nil
	}
	return tiles, minZoom, maxZoom, nil
}
