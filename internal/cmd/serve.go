package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve noise tiles and point samples over HTTP",
	Long: `Serve /tiles/z{z}_x{x}_y{y}[@2x].png, /sample, /sample/ws and /status.

Tiles are rendered on demand and cached below --tiles-dir, or read from an
existing database with --mbtiles.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("tiles-dir", "", "Tile cache directory (defaults to --output-dir)")
	serveCmd.Flags().String("mbtiles", "", "Serve tiles from this MBTiles file instead of rendering")
	serveCmd.Flags().Bool("generate-missing", true, "Render missing tiles on demand and cache them")
	serveCmd.Flags().Bool("disable-cache", false, "Always re-render tiles (still writes to disk)")
	serveCmd.Flags().Int("max-concurrent-generations", runtime.NumCPU(), "Max concurrent tile renders")
	serveCmd.Flags().Duration("generation-timeout", 30*time.Second, "Timeout per tile render")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for rendered tiles")
	serveCmd.Flags().Int("tile-size", 256, "Base tile size in pixels (@2x requests render twice that)")
	serveCmd.Flags().String("mode", "terrain", "Tile mode: terrain, height or mask")
	serveCmd.Flags().Float32("smooth", 0, "Gaussian blur sigma for height and mask modes")
	serveCmd.Flags().Float64("sea-level", 0, "Noise value separating sea from land in mask mode")
	serveCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags(serveCmd, map[string]string{
		"serve.addr":                       "addr",
		"serve.tiles_dir":                  "tiles-dir",
		"serve.mbtiles":                    "mbtiles",
		"serve.generate_missing":           "generate-missing",
		"serve.disable_cache":              "disable-cache",
		"serve.max_concurrent_generations": "max-concurrent-generations",
		"serve.generation_timeout":         "generation-timeout",
		"serve.cache_control":              "cache-control",
		"serve.tile_size":                  "tile-size",
		"serve.mode":                       "mode",
		"serve.smooth":                     "smooth",
		"serve.sea_level":                  "sea-level",
		"serve.png_compression":            "png-compression",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	src, cfg, err := sourceFromViper()
	if err != nil {
		return err
	}

	// On-demand tiles render concurrently, in request order.
	if err := warmSource(src, cfg.Periods); err != nil {
		return err
	}

	routes := server.Routes{
		Sample:       server.NewSampleHandler(src, logger),
		SampleStream: server.NewSampleStreamHandler(src, logger),
	}

	if dbPath := viper.GetString("serve.mbtiles"); dbPath != "" {
		h, err := server.NewMBTilesHandler(server.MBTilesConfig{MBTilesPath: dbPath}, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		routes.Tiles = h.Handler()
		routes.Metadata = h.MetadataHandler()
		logger.Info("Serving MBTiles", "path", dbPath)
	} else {
		od, err := onDemandFromViper(src, cfg.Periods, cfg.Unbias)
		if err != nil {
			return err
		}
		routes.Tiles = od.Handler()
		routes.Status = od.StatusHandler()
		routes.StatusStream = od.StatusStreamHandler()
	}

	addr := viper.GetString("serve.addr")
	srv := &http.Server{Addr: addr, Handler: server.NewMux(routes), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr, "octaves", cfg.Octaves, "periods", cfg.Periods)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func onDemandFromViper(src render.Field, periods []int, unbias bool) (*server.OnDemandTiles, error) {
	mode, err := pipeline.ParseMode(viper.GetString("serve.mode"))
	if err != nil {
		return nil, err
	}
	level, err := render.ParseCompression(viper.GetString("serve.png_compression"))
	if err != nil {
		return nil, err
	}
	tilesDir := viper.GetString("serve.tiles_dir")
	if tilesDir == "" {
		tilesDir = viper.GetString("output-dir")
	}

	od, err := server.NewOnDemandTiles(src, server.OnDemandTilesConfig{
		TilesDir:                 tilesDir,
		CacheControl:             viper.GetString("serve.cache_control"),
		Mode:                     mode,
		Ramp:                     render.RampFor(unbias),
		Periods:                  periods,
		BaseTileSize:             viper.GetInt("serve.tile_size"),
		MaxConcurrentGenerations: viper.GetInt("serve.max_concurrent_generations"),
		GenerationTimeout:        viper.GetDuration("serve.generation_timeout"),
		PNGCompression:           level,
		SmoothSigma:              float32(viper.GetFloat64("serve.smooth")),
		SeaLevel:                 viper.GetFloat64("serve.sea_level"),
		GenerateMissing:          viper.GetBool("serve.generate_missing"),
		DisableCache:             viper.GetBool("serve.disable_cache"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init tile handler: %w", err)
	}
	return od, nil
}
