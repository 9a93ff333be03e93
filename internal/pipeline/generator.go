// Package pipeline renders noise tiles to PNG and stores them.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

// Mode selects what a tile shows.
type Mode string

const (
	ModeTerrain Mode = "terrain" // colour ramp
	ModeHeight  Mode = "height"  // grayscale heightmap
	ModeMask    Mode = "mask"    // black sea, white land
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeTerrain, ModeHeight, ModeMask:
		return m, nil
	case "":
		return ModeTerrain, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be terrain, height or mask", s)
	}
}

// TileWriter receives encoded tiles instead of the output directory.
// *mbtiles.Writer satisfies it.
type TileWriter interface {
	WriteTile(z, x, y int, data []byte) error
}

// GeneratorOptions tunes rendering and output.
type GeneratorOptions struct {
	// TileWriter, when set, receives every tile and the output directory is unused.
	TileWriter TileWriter
	Ramp       render.Ramp
	Mode       Mode
	// FolderStructure writes z/x/y.png instead of flat z{z}_x{x}_y{y}.png names.
	FolderStructure bool
	PNGCompression  png.CompressionLevel
	SmoothSigma     float32
	SeaLevel        float64
}

// Generator renders tiles of one noise field.
type Generator struct {
	source     render.Field
	projection tile.Projection
	logger     *slog.Logger
	outputDir  string
	opts       GeneratorOptions
	tileSize   int
}

// NewGenerator prepares a generator for source, whose periodic axes are
// given by periods. outputDir may be empty when opts.TileWriter is set.
func NewGenerator(source render.Field, periods []int, outputDir string, tileSize int, logger *slog.Logger, opts GeneratorOptions) (*Generator, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive")
	}
	if outputDir == "" && opts.TileWriter == nil {
		return nil, fmt.Errorf("either an output directory or a tile writer is required")
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	opts.Mode = mode
	if opts.Ramp == nil {
		opts.Ramp = render.DefaultRamp
	}

	return &Generator{
		source:     source,
		projection: tile.NewProjection(periods, tileSize),
		outputDir:  outputDir,
		tileSize:   tileSize,
		opts:       opts,
		logger:     logger,
	}, nil
}

// TileSize returns the tile edge length in pixels.
func (g *Generator) TileSize() int { return g.tileSize }

// Render samples the tile and builds its image. Intermediate images are
// recorded in debug when it is non-nil.
func (g *Generator) Render(ctx context.Context, coords tile.Coords, debug *DebugContext) (image.Image, error) {
	if !coords.Valid() {
		return nil, fmt.Errorf("tile %s is outside the zoom grid", coords)
	}

	grid, err := render.SampleGrid(ctx, g.source, g.tileSize, g.tileSize, g.projection.Pixel(coords))
	if err != nil {
		return nil, fmt.Errorf("failed to sample tile %s: %w", coords, err)
	}

	if g.opts.Mode == ModeTerrain {
		img := grid.Terrain(g.opts.Ramp)
		debug.Capture("01_terrain", img)
		return img, nil
	}

	height := grid.Gray()
	debug.Capture("01_height", height)
	if g.opts.SmoothSigma > 0 {
		height = render.Smooth(height, g.opts.SmoothSigma)
		debug.Capture("02_smoothed", height)
	}
	if g.opts.Mode == ModeHeight {
		return height, nil
	}

	mask := render.LandMask(height, render.SeaLevel(g.opts.SeaLevel))
	debug.Capture("03_mask", mask)
	return mask, nil
}

// RenderPNG renders the tile and encodes it.
func (g *Generator) RenderPNG(ctx context.Context, coords tile.Coords) ([]byte, error) {
	img, err := g.Render(ctx, coords, nil)
	if err != nil {
		return nil, err
	}
	return render.EncodePNG(img, g.opts.PNGCompression)
}

// Generate renders one tile and stores it, returning the file path or, for
// a TileWriter, the z/x/y key. Existing files are kept unless force is set.
func (g *Generator) Generate(ctx context.Context, coords tile.Coords, force bool) (string, error) {
	if g.opts.TileWriter != nil {
		data, err := g.RenderPNG(ctx, coords)
		if err != nil {
			return "", err
		}
		if err := g.opts.TileWriter.WriteTile(int(coords.Z), int(coords.X), int(coords.Y), data); err != nil {
			return "", fmt.Errorf("failed to write tile %s: %w", coords, err)
		}
		g.log().Debug("Wrote tile", "coords", coords.String(), "bytes", len(data))
		return fmt.Sprintf("%d/%d/%d", coords.Z, coords.X, coords.Y), nil
	}

	path := g.TilePath(coords)
	if !force {
		if _, err := os.Stat(path); err == nil {
			g.log().Debug("Tile already exists; skipping", "coords", coords.String(), "path", path)
			return path, nil
		}
	}

	data, err := g.RenderPNG(ctx, coords)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write tile file: %w", err)
	}

	g.log().Debug("Wrote tile", "coords", coords.String(), "path", path)
	return path, nil
}

// TilePath returns where Generate stores a tile in the output directory.
func (g *Generator) TilePath(coords tile.Coords) string {
	if g.opts.FolderStructure {
		return filepath.Join(g.outputDir,
			strconv.Itoa(int(coords.Z)), strconv.Itoa(int(coords.X)), strconv.Itoa(int(coords.Y))+".png")
	}
	return filepath.Join(g.outputDir, coords.Path("png"))
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
