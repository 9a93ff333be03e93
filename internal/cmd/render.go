package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the noise field to a single PNG",
	Long: `Render one full period of a two-dimensional noise field to a PNG.

Each lattice cell spans --cell pixels, so the map is periods[0]*cell pixels wide.
--repeat places copies side by side to show that the left and right edges meet,
and --grid outlines every lattice cell of the first copy.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "render.png", "Output PNG path")
	renderCmd.Flags().Int("cell", 100, "Pixels per lattice cell")
	renderCmd.Flags().Int("pixel", 1, "Upscale factor; each sample becomes a pixel×pixel block")
	renderCmd.Flags().Int("repeat", 3, "Horizontal copies of the map")
	renderCmd.Flags().Bool("grid", true, "Outline lattice cells in white")
	renderCmd.Flags().String("mode", "terrain", "Image mode: terrain, height or mask")
	renderCmd.Flags().Float32("smooth", 0, "Gaussian blur sigma for height and mask modes")
	renderCmd.Flags().Float64("sea-level", 0, "Noise value separating sea from land in mask mode")
	renderCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags(renderCmd, map[string]string{
		"render.output":          "output",
		"render.cell":            "cell",
		"render.pixel":           "pixel",
		"render.repeat":          "repeat",
		"render.grid":            "grid",
		"render.mode":            "mode",
		"render.smooth":          "smooth",
		"render.sea_level":       "sea-level",
		"render.png_compression": "png-compression",
	})
}

// renderOptions is the render command's configuration.
type renderOptions struct {
	Mode        pipeline.Mode
	Ramp        render.Ramp
	Periods     []int
	Cell        int
	Pixel       int
	Repeat      int
	SmoothSigma float32
	SeaLevel    float64
	Grid        bool
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	src, cfg, err := sourceFromViper()
	if err != nil {
		return err
	}
	mode, err := pipeline.ParseMode(viper.GetString("render.mode"))
	if err != nil {
		return err
	}
	level, err := render.ParseCompression(viper.GetString("render.png_compression"))
	if err != nil {
		return err
	}
	output := viper.GetString("render.output")

	opts := renderOptions{
		Mode:        mode,
		Ramp:        render.RampFor(cfg.Unbias),
		Periods:     cfg.Periods,
		Cell:        viper.GetInt("render.cell"),
		Pixel:       viper.GetInt("render.pixel"),
		Repeat:      viper.GetInt("render.repeat"),
		SmoothSigma: float32(viper.GetFloat64("render.smooth")),
		SeaLevel:    viper.GetFloat64("render.sea_level"),
		Grid:        viper.GetBool("render.grid"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Rendering noise map",
		"algorithm", viper.GetString("noise.algorithm"),
		"octaves", cfg.Octaves,
		"periods", cfg.Periods,
		"unbias", cfg.Unbias,
		"mode", mode,
		"cell", opts.Cell,
	)

	img, grid, err := renderMap(ctx, src, opts)
	if err != nil {
		return err
	}
	if err := render.WritePNG(output, img, level); err != nil {
		return err
	}

	logger.Info("Map rendered",
		"path", output,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"seam_ratio", fmt.Sprintf("%.3f", grid.SeamRatio()),
	)
	return nil
}

// mapSize returns the pixel size of one period. Non-periodic axes span five
// cells.
func mapSize(periods []int, cell int) (int, int) {
	cells := [2]int{5, 5}
	for i := 0; i < len(periods) && i < 2; i++ {
		if periods[i] > 0 {
			cells[i] = periods[i]
		}
	}
	return cells[0] * cell, cells[1] * cell
}

// renderMap samples one period of src and composes the final image.
func renderMap(ctx context.Context, src noise.Source, opts renderOptions) (image.Image, *render.Grid, error) {
	if src.Dimension() != 2 {
		return nil, nil, fmt.Errorf("render needs a two-dimensional field, got %d dimensions", src.Dimension())
	}
	if opts.Cell <= 0 {
		return nil, nil, fmt.Errorf("cell size must be positive, got %d", opts.Cell)
	}
	if opts.Ramp == nil {
		opts.Ramp = render.DefaultRamp
	}

	w, h := mapSize(opts.Periods, opts.Cell)
	grid, err := render.SampleGrid(ctx, src, w, h, render.CellProjection(opts.Cell))
	if err != nil {
		return nil, nil, err
	}

	var img image.Image
	switch opts.Mode {
	case pipeline.ModeHeight, pipeline.ModeMask:
		gray := render.Smooth(grid.Gray(), opts.SmoothSigma)
		if opts.Mode == pipeline.ModeMask {
			gray = render.LandMask(gray, render.SeaLevel(opts.SeaLevel))
		}
		img = gray
	default:
		img = grid.Terrain(opts.Ramp)
	}

	pixel := max(opts.Pixel, 1)
	img = render.Upscale(img, pixel)

	out := render.Tessellate(img, opts.Repeat)
	if opts.Grid {
		first := out.SubImage(image.Rect(0, 0, w*pixel, h*pixel)).(*image.RGBA)
		render.DrawGrid(first, opts.Cell*pixel, render.GridColor)
	}
	return out, grid, nil
}
