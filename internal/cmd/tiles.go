package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/wrapnoise/internal/mbtiles"
	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
	"github.com/MeKo-Tech/wrapnoise/internal/worker"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Render a web-map tile pyramid",
	Long: `Render z/x/y tiles of the noise world to a folder or an MBTiles database.

The world is equirectangular: longitude spans periods[0] lattice cells and
latitude spans periods[1], so tiles wrap seamlessly at the antimeridian.
Without --bbox every tile of each zoom level is rendered.`,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	tilesCmd.Flags().Int("zoom-min", 0, "Minimum zoom level")
	tilesCmd.Flags().Int("zoom-max", 3, "Maximum zoom level")
	tilesCmd.Flags().String("bbox", "", "Restrict to minLon,minLat,maxLon,maxLat")
	tilesCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	tilesCmd.Flags().Bool("progress", true, "Show a progress bar")
	tilesCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some tiles fail")
	tilesCmd.Flags().Bool("force", false, "Overwrite tiles that already exist")
	tilesCmd.Flags().Int("tile-size", 256, "Tile size in pixels")
	tilesCmd.Flags().Bool("hidpi", false, "Also render @2x tiles at twice the size")
	tilesCmd.Flags().String("mode", "terrain", "Tile mode: terrain, height or mask")
	tilesCmd.Flags().Float32("smooth", 0, "Gaussian blur sigma for height and mask modes")
	tilesCmd.Flags().Float64("sea-level", 0, "Noise value separating sea from land in mask mode")
	tilesCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	tilesCmd.Flags().String("format", "folder", "Output format: folder or mbtiles")
	tilesCmd.Flags().String("output-file", "", "MBTiles path (required with --format=mbtiles)")
	tilesCmd.Flags().String("folder-structure", "flat", "flat (z{z}_x{x}_y{y}.png) or nested ({z}/{x}/{y}.png)")

	bindFlags(tilesCmd, map[string]string{
		"tiles.zoom_min":         "zoom-min",
		"tiles.zoom_max":         "zoom-max",
		"tiles.bbox":             "bbox",
		"tiles.workers":          "workers",
		"tiles.progress":         "progress",
		"tiles.allow_failures":   "allow-failures",
		"tiles.force":            "force",
		"tiles.tile_size":        "tile-size",
		"tiles.hidpi":            "hidpi",
		"tiles.mode":             "mode",
		"tiles.smooth":           "smooth",
		"tiles.sea_level":        "sea-level",
		"tiles.png_compression":  "png-compression",
		"tiles.format":           "format",
		"tiles.output_file":      "output-file",
		"tiles.folder_structure": "folder-structure",
	})
}

// tilesOptions is the tiles command's configuration.
type tilesOptions struct {
	Format          string
	OutputDir       string
	OutputFile      string
	FolderStructure string
	BBox            string
	Generator       pipeline.GeneratorOptions
	ZoomMin         int
	ZoomMax         int
	TileSize        int
	Workers         int
	Force           bool
	HiDPI           bool
	Progress        bool
	AllowFailures   bool
}

func tilesOptionsFromViper() (tilesOptions, error) {
	opts := tilesOptions{
		Format:          viper.GetString("tiles.format"),
		OutputDir:       viper.GetString("output-dir"),
		OutputFile:      viper.GetString("tiles.output_file"),
		FolderStructure: viper.GetString("tiles.folder_structure"),
		BBox:            viper.GetString("tiles.bbox"),
		ZoomMin:         viper.GetInt("tiles.zoom_min"),
		ZoomMax:         viper.GetInt("tiles.zoom_max"),
		TileSize:        viper.GetInt("tiles.tile_size"),
		Workers:         viper.GetInt("tiles.workers"),
		Force:           viper.GetBool("tiles.force"),
		HiDPI:           viper.GetBool("tiles.hidpi"),
		Progress:        viper.GetBool("tiles.progress"),
		AllowFailures:   viper.GetBool("tiles.allow_failures"),
	}

	mode, err := pipeline.ParseMode(viper.GetString("tiles.mode"))
	if err != nil {
		return opts, err
	}
	level, err := render.ParseCompression(viper.GetString("tiles.png_compression"))
	if err != nil {
		return opts, err
	}
	opts.Generator = pipeline.GeneratorOptions{
		Mode:           mode,
		PNGCompression: level,
		SmoothSigma:    float32(viper.GetFloat64("tiles.smooth")),
		SeaLevel:       viper.GetFloat64("tiles.sea_level"),
	}
	return opts, opts.validate()
}

func (o tilesOptions) validate() error {
	if o.Format != "folder" && o.Format != "mbtiles" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'mbtiles'", o.Format)
	}
	if o.FolderStructure != "flat" && o.FolderStructure != "nested" {
		return fmt.Errorf("invalid folder-structure %q: must be 'flat' or 'nested'", o.FolderStructure)
	}
	if o.Format == "mbtiles" && o.OutputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=mbtiles")
	}
	if o.ZoomMin < 0 || o.ZoomMax > tile.MaxZoom {
		return fmt.Errorf("zoom range must lie within 0-%d", tile.MaxZoom)
	}
	if o.ZoomMin > o.ZoomMax {
		return fmt.Errorf("--zoom-min (%d) must be <= --zoom-max (%d)", o.ZoomMin, o.ZoomMax)
	}
	if o.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", o.TileSize)
	}
	return nil
}

// coords lists the tiles to render.
func (o tilesOptions) coords() ([]tile.Coords, [4]float64, error) {
	world := [4]float64{-180, -85.051129, 180, 85.051129}
	if o.BBox == "" {
		return tile.All(o.ZoomMin, o.ZoomMax), world, nil
	}
	bbox, err := tile.ParseBBox(o.BBox)
	if err != nil {
		return nil, world, err
	}
	return tile.TilesInBBox(bbox, o.ZoomMin, o.ZoomMax), bbox, nil
}

func runTiles(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	opts, err := tilesOptionsFromViper()
	if err != nil {
		return err
	}
	src, cfg, err := sourceFromViper()
	if err != nil {
		return err
	}
	if src.Dimension() != 2 {
		return fmt.Errorf("tiles need a two-dimensional field, got %d dimensions", src.Dimension())
	}
	opts.Generator.Ramp = render.RampFor(cfg.Unbias)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return renderTiles(ctx, src, cfg, opts)
}

// renderTiles renders the pyramid, then the @2x pyramid when requested.
func renderTiles(ctx context.Context, src noise.Source, cfg noise.Config, opts tilesOptions) error {
	tiles, bounds, err := opts.coords()
	if err != nil {
		return err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if err := warmSource(src, cfg.Periods); err != nil {
		return err
	}

	logger.Info("Starting tile rendering",
		"zoom_range", fmt.Sprintf("%d-%d", opts.ZoomMin, opts.ZoomMax),
		"tiles", len(tiles),
		"workers", opts.Workers,
		"format", opts.Format,
		"hidpi", opts.HiDPI,
	)

	passes := []struct {
		suffix string
		size   int
	}{{"", opts.TileSize}}
	if opts.HiDPI {
		passes = append(passes, struct {
			suffix string
			size   int
		}{"@2x", opts.TileSize * 2})
	}

	for _, pass := range passes {
		if err := renderPass(ctx, src, cfg, opts, tiles, bounds, pass.suffix, pass.size); err != nil {
			return err
		}
	}
	return nil
}

func renderPass(ctx context.Context, src noise.Source, cfg noise.Config, opts tilesOptions, tiles []tile.Coords, bounds [4]float64, suffix string, size int) error {
	genOpts := opts.Generator
	genOpts.FolderStructure = opts.FolderStructure == "nested"
	outputDir := opts.OutputDir
	if suffix != "" {
		outputDir = strings.TrimSuffix(outputDir, "/") + suffix
	}

	var writer *mbtiles.Writer
	if opts.Format == "mbtiles" {
		path := opts.OutputFile
		if suffix != "" {
			path = strings.TrimSuffix(path, ".mbtiles") + suffix + ".mbtiles"
		}
		var err error
		writer, err = mbtiles.New(path, tilesetMetadata(cfg, opts, bounds))
		if err != nil {
			return fmt.Errorf("failed to create MBTiles writer: %w", err)
		}
		defer writer.Close()
		genOpts.TileWriter = writer
		outputDir = ""
	}

	gen, err := pipeline.NewGenerator(src, cfg.Periods, outputDir, size, logger, genOpts)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	tasks := make([]worker.Task, 0, len(tiles))
	for _, c := range tiles {
		tasks = append(tasks, worker.Task{Coords: c, Force: opts.Force})
	}

	progress := worker.NewProgress(os.Stderr, len(tasks), opts.Progress)
	pool := worker.New(worker.Config{
		Workers:    opts.Workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
		Logger:     logger,
	})

	results := pool.Run(ctx, tasks)
	progress.Done()
	logger.Info(progress.Summary(), "suffix", suffix, "tile_size", size)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tile rendering interrupted: %w", err)
	}
	if failed := worker.Failed(results); len(failed) > 0 {
		if !opts.AllowFailures {
			return fmt.Errorf("%d tiles failed to render", len(failed))
		}
		logger.Warn("Some tiles failed; continuing due to --allow-failures", "failed_count", len(failed))
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to close MBTiles: %w", err)
		}
		logger.Info("MBTiles written", "path", writer.Path(), "tiles", writer.Written())
	}
	return nil
}

func tilesetMetadata(cfg noise.Config, opts tilesOptions, bounds [4]float64) mbtiles.Metadata {
	seed := viper.GetString("noise.seed")
	return mbtiles.Metadata{
		Name:        "wrapnoise",
		Format:      "png",
		Description: fmt.Sprintf("Seamless %s noise", opts.Generator.Mode),
		Type:        "baselayer",
		Version:     "1.0",
		MinZoom:     opts.ZoomMin,
		MaxZoom:     opts.ZoomMax,
		Bounds:      bounds,
		Center:      [3]float64{(bounds[0] + bounds[2]) / 2, (bounds[1] + bounds[3]) / 2, float64(opts.ZoomMin)},
		Seed:        seed,
		Octaves:     cfg.Octaves,
		Periods:     cfg.Periods,
		Unbias:      cfg.Unbias,
	}
}
