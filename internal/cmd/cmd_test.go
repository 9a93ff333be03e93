package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/wrapnoise/internal/baseline"
	"github.com/MeKo-Tech/wrapnoise/internal/mbtiles"
	"github.com/MeKo-Tech/wrapnoise/internal/noise"
	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func setNoiseKeys(t *testing.T, dim, octaves int, periods []int, seed string) {
	t.Helper()
	viper.Set("noise.dimension", dim)
	viper.Set("noise.octaves", octaves)
	viper.Set("noise.periods", periods)
	viper.Set("noise.unbias", true)
	viper.Set("noise.seed", seed)
	viper.Set("noise.algorithm", "wrap")
}

func testFactory(t *testing.T, dim int, periods []int) *noise.Factory {
	t.Helper()
	seed := int64(42)
	f, err := noise.New(noise.Config{Dimension: dim, Octaves: 2, Periods: periods, Seed: &seed})
	require.NoError(t, err)
	return f
}

func TestNoiseConfigFromViper(t *testing.T) {
	setNoiseKeys(t, 2, 3, []int{4, 4}, "seed")

	cfg, err := noiseConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Dimension)
	assert.Equal(t, 3, cfg.Octaves)
	assert.Equal(t, []int{4, 4}, cfg.Periods)
	assert.True(t, cfg.Unbias)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, noise.SeedFromString("seed"), *cfg.Seed)

	viper.Set("noise.seed", "1234")
	cfg, err = noiseConfigFromViper()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), *cfg.Seed)

	viper.Set("noise.seed", "  ")
	cfg, err = noiseConfigFromViper()
	require.NoError(t, err)
	assert.Nil(t, cfg.Seed)
}

func TestNoiseConfigFromViperInvalid(t *testing.T) {
	setNoiseKeys(t, 2, 3, []int{4, -1}, "seed")
	_, err := noiseConfigFromViper()
	assert.ErrorIs(t, err, noise.ErrNegativePeriod)

	setNoiseKeys(t, 1, 3, []int{4, 4}, "seed")
	_, err = noiseConfigFromViper()
	assert.ErrorIs(t, err, noise.ErrTooManyPeriods)

	setNoiseKeys(t, 2, 0, []int{4, 4}, "seed")
	_, err = noiseConfigFromViper()
	assert.ErrorIs(t, err, noise.ErrInvalidOctaves)
}

func TestNewSource(t *testing.T) {
	seed := int64(7)
	cfg := noise.Config{Dimension: 2, Octaves: 2, Periods: []int{3, 3}, Seed: &seed}

	src, err := newSource(cfg, "wrap")
	require.NoError(t, err)
	assert.IsType(t, &noise.Factory{}, src)

	src, err = newSource(cfg, "perlin")
	require.NoError(t, err)
	assert.IsType(t, &baseline.Perlin{}, src)
	assert.Equal(t, 2, src.Dimension())

	_, err = newSource(cfg, "simplex")
	assert.Error(t, err)
}

func TestSourceFromViperIsDeterministic(t *testing.T) {
	setNoiseKeys(t, 2, 4, []int{5, 5}, "seed")

	a, _, err := sourceFromViper()
	require.NoError(t, err)
	b, _, err := sourceFromViper()
	require.NoError(t, err)

	va, err := a.Sample(1.3, 2.7)
	require.NoError(t, err)
	vb, err := b.Sample(1.3, 2.7)
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestPrintSamples(t *testing.T) {
	src := testFactory(t, 2, []int{4, 4})

	var out bytes.Buffer
	require.NoError(t, printSamples(&out, src, []string{"0.5,0.5", "4.5, 0.5"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	first := strings.Split(lines[0], "\t")
	second := strings.Split(lines[1], "\t")
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, "0.5,0.5", first[0])
	assert.Equal(t, first[1], second[1], "points one period apart sample equal")
}

func TestPrintSamplesErrors(t *testing.T) {
	src := testFactory(t, 2, []int{4, 4})
	var out bytes.Buffer

	err := printSamples(&out, src, []string{"1,2,3"})
	assert.ErrorIs(t, err, noise.ErrDimensionMismatch)

	err = printSamples(&out, src, []string{"NaN,0.5"})
	assert.ErrorIs(t, err, noise.ErrNonFinitePoint)

	err = printSamples(&out, src, []string{"a,b"})
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("1.5, -2,3e-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, -2, 0.3}, p)

	_, err = parsePoint("1,,2")
	assert.Error(t, err)
}

func TestMapSize(t *testing.T) {
	w, h := mapSize([]int{5, 3}, 10)
	assert.Equal(t, 50, w)
	assert.Equal(t, 30, h)

	w, h = mapSize([]int{0}, 10)
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)
}

func TestRenderMap(t *testing.T) {
	src := testFactory(t, 2, []int{2, 2})
	opts := renderOptions{
		Mode:    pipeline.ModeTerrain,
		Ramp:    render.UnbiasedRamp,
		Periods: []int{2, 2},
		Cell:    8,
		Pixel:   1,
		Repeat:  2,
		Grid:    true,
	}

	img, grid, err := renderMap(context.Background(), src, opts)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
	assert.Equal(t, 16, grid.W)
	assert.Equal(t, 16, grid.H)

	// Grid lines are drawn on the first copy only.
	assert.Equal(t, render.GridColor, img.At(0, 3))
	assert.Equal(t, render.GridColor, img.At(7, 3))
	assert.Equal(t, img.At(3, 3), img.At(16+3, 3))
	assert.Equal(t, opts.Ramp.Color(grid.At(3, 3)), img.At(3, 3))
}

func TestRenderMapModes(t *testing.T) {
	src := testFactory(t, 2, []int{2, 2})
	opts := renderOptions{Mode: pipeline.ModeMask, Periods: []int{2, 2}, Cell: 4, Pixel: 2, Repeat: 1}

	img, _, err := renderMap(context.Background(), src, opts)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())

	// Each sample is upscaled into a 2×2 block.
	assert.Equal(t, img.At(0, 0), img.At(1, 1))
	assert.Equal(t, img.At(4, 6), img.At(5, 7))
}

func TestRenderMapErrors(t *testing.T) {
	_, _, err := renderMap(context.Background(), testFactory(t, 3, []int{2, 2, 2}), renderOptions{Cell: 4})
	assert.Error(t, err)

	_, _, err = renderMap(context.Background(), testFactory(t, 2, []int{2, 2}), renderOptions{Cell: 0})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = renderMap(ctx, testFactory(t, 2, []int{2, 2}), renderOptions{Cell: 4, Periods: []int{2, 2}})
	assert.ErrorIs(t, err, context.Canceled)
}

func validTilesOptions() tilesOptions {
	return tilesOptions{
		Format:          "folder",
		FolderStructure: "flat",
		ZoomMin:         0,
		ZoomMax:         2,
		TileSize:        256,
	}
}

func TestTilesOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*tilesOptions)
		wantErr bool
	}{
		{name: "valid", modify: func(o *tilesOptions) {}},
		{name: "valid mbtiles", modify: func(o *tilesOptions) { o.Format = "mbtiles"; o.OutputFile = "out.mbtiles" }},
		{name: "unknown format", modify: func(o *tilesOptions) { o.Format = "zip" }, wantErr: true},
		{name: "mbtiles without file", modify: func(o *tilesOptions) { o.Format = "mbtiles" }, wantErr: true},
		{name: "unknown structure", modify: func(o *tilesOptions) { o.FolderStructure = "deep" }, wantErr: true},
		{name: "zoom above max", modify: func(o *tilesOptions) { o.ZoomMax = tile.MaxZoom + 1 }, wantErr: true},
		{name: "negative zoom", modify: func(o *tilesOptions) { o.ZoomMin = -1 }, wantErr: true},
		{name: "inverted zoom", modify: func(o *tilesOptions) { o.ZoomMin = 3 }, wantErr: true},
		{name: "zero tile size", modify: func(o *tilesOptions) { o.TileSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validTilesOptions()
			tt.modify(&o)
			err := o.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTilesOptionsCoords(t *testing.T) {
	o := validTilesOptions()
	o.ZoomMax = 1

	tiles, bounds, err := o.coords()
	require.NoError(t, err)
	assert.Len(t, tiles, 5)
	assert.Equal(t, -180.0, bounds[0])

	o.BBox = "10,10,20,20"
	tiles, bounds, err = o.coords()
	require.NoError(t, err)
	assert.Equal(t, [4]float64{10, 10, 20, 20}, bounds)
	assert.Len(t, tiles, 2)

	o.BBox = "10,0,0,10"
	_, _, err = o.coords()
	assert.Error(t, err)
}

func TestRenderTilesFolder(t *testing.T) {
	setNoiseKeys(t, 2, 2, []int{4, 4}, "seed")
	src, cfg, err := sourceFromViper()
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "tiles")
	opts := validTilesOptions()
	opts.OutputDir = dir
	opts.ZoomMax = 1
	opts.TileSize = 16
	opts.Workers = 2
	opts.HiDPI = true
	opts.Generator = pipeline.GeneratorOptions{Ramp: render.RampFor(cfg.Unbias)}

	require.NoError(t, renderTiles(context.Background(), src, cfg, opts))

	for _, c := range tile.All(0, 1) {
		assert.FileExists(t, filepath.Join(dir, c.String()+".png"))
		assert.FileExists(t, filepath.Join(dir+"@2x", c.String()+".png"))
	}

	out := filepath.Join(t.TempDir(), "world.mbtiles")
	n, err := convertFolder(dir, out, mbtiles.Metadata{Name: "test", Format: "png", Periods: cfg.Periods})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	r, err := mbtiles.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()
	count, err := r.TileCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 0, meta.MinZoom)
	assert.Equal(t, 1, meta.MaxZoom)
	assert.Equal(t, []int{4, 4}, meta.Periods)

	want, err := os.ReadFile(filepath.Join(dir, "z1_x1_y0.png"))
	require.NoError(t, err)
	got, err := r.ReadTile(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRenderTilesMBTiles(t *testing.T) {
	setNoiseKeys(t, 2, 2, []int{4, 4}, "seed")
	src, cfg, err := sourceFromViper()
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "world.mbtiles")
	opts := validTilesOptions()
	opts.Format = "mbtiles"
	opts.OutputFile = out
	opts.ZoomMax = 1
	opts.TileSize = 16
	opts.Workers = 2
	opts.Generator = pipeline.GeneratorOptions{Mode: pipeline.ModeHeight}
	require.NoError(t, opts.validate())

	require.NoError(t, renderTiles(context.Background(), src, cfg, opts))

	r, err := mbtiles.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()
	count, err := r.TileCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "seed", meta.Seed)
	assert.Equal(t, 2, meta.Octaves)
	assert.True(t, meta.Unbias)
}

func TestScanTilesDirectory(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"z2_x1_y3.png",
		"z2_x1_y3@2x.png",
		"4/5/6.png",
		"notes.txt",
		"4/5/x.png",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	}

	tiles, minZoom, maxZoom, err := scanTilesDirectory(dir)
	require.NoError(t, err)
	require.Len(t, tiles, 2)
	assert.Equal(t, 2, minZoom)
	assert.Equal(t, 4, maxZoom)

	seen := map[[3]int]bool{}
	for _, ti := range tiles {
		seen[[3]int{ti.z, ti.x, ti.y}] = true
	}
	assert.True(t, seen[[3]int{2, 1, 3}])
	assert.True(t, seen[[3]int{4, 5, 6}])
}

func TestConvertFolderErrors(t *testing.T) {
	_, err := convertFolder(filepath.Join(t.TempDir(), "missing"), "out.mbtiles", mbtiles.Metadata{})
	assert.Error(t, err)

	_, err = convertFolder(t.TempDir(), filepath.Join(t.TempDir(), "out.mbtiles"), mbtiles.Metadata{})
	assert.Error(t, err)
}

func TestFitPeriods(t *testing.T) {
	assert.Equal(t, []int{5}, fitPeriods([]int{5, 5}, 1, false))
	assert.Equal(t, []int{5, 5}, fitPeriods([]int{5, 5}, 2, false))
	assert.Equal(t, []int{5, 5}, fitPeriods([]int{5, 5}, 3, false))
	assert.Equal(t, []int{5, 5}, fitPeriods([]int{5, 5}, 1, true))
}

func warmTestFactory(t *testing.T, periods []int) *noise.Factory {
	t.Helper()
	seed := int64(7)
	f, err := noise.New(noise.Config{Dimension: 2, Octaves: 3, Periods: periods, Seed: &seed})
	require.NoError(t, err)
	require.NoError(t, warmSource(f, periods))
	return f
}

func TestWarmSourceMakesTilesOrderIndependent(t *testing.T) {
	periods := []int{5, 0}
	target := tile.NewCoords(1, 1, 1)

	renderTarget := func(f *noise.Factory, order []tile.Coords) []byte {
		gen, err := pipeline.NewGenerator(f, periods, t.TempDir(), 16, logger, pipeline.GeneratorOptions{})
		require.NoError(t, err)
		var out []byte
		for _, c := range order {
			data, err := gen.RenderPNG(context.Background(), c)
			require.NoError(t, err)
			if c == target {
				out = data
			}
		}
		return out
	}

	a := warmTestFactory(t, periods)
	warmed := a.Gradients()
	first := renderTarget(a, []tile.Coords{target})
	assert.Equal(t, warmed, a.Gradients(), "rendering a warmed world must not insert gradients")

	b := warmTestFactory(t, periods)
	second := renderTarget(b, []tile.Coords{tile.NewCoords(0, 0, 0), tile.NewCoords(1, 0, 0), target})
	assert.Equal(t, first, second)
}

func TestWarmSourceIgnoresOtherSources(t *testing.T) {
	p, err := baseline.NewPerlin(2, 1)
	require.NoError(t, err)
	assert.NoError(t, warmSource(p, []int{5, 5}))

	f := testFactory(t, 3, []int{2, 2, 2})
	before := f.Gradients()
	assert.NoError(t, warmSource(f, []int{2, 2, 2}))
	assert.Equal(t, before, f.Gradients())
}

func TestServeTilesFromWarmedSource(t *testing.T) {
	periods := []int{5, 0}
	src := warmTestFactory(t, periods)
	warmed := src.Gradients()

	viper.Set("serve.mode", "terrain")
	viper.Set("serve.png_compression", "default")
	viper.Set("serve.tiles_dir", t.TempDir())
	viper.Set("serve.tile_size", 16)
	viper.Set("serve.max_concurrent_generations", 4)
	viper.Set("serve.generate_missing", true)
	viper.Set("serve.disable_cache", true)

	od, err := onDemandFromViper(src, periods, false)
	require.NoError(t, err)
	h := od.Handler()

	for _, path := range []string{"/tiles/z1_x1_y1.png", "/tiles/z2_x3_y0.png", "/tiles/z1_x0_y1@2x.png"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
	assert.Equal(t, warmed, src.Gradients(), "served tiles must not insert lazy gradients")

	// The served tile matches the tiles command's rendering of the same world.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/z1_x1_y1.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	other := warmTestFactory(t, periods)
	gen, err := pipeline.NewGenerator(other, periods, t.TempDir(), 16, logger, pipeline.GeneratorOptions{Ramp: render.RampFor(false)})
	require.NoError(t, err)
	want, err := gen.RenderPNG(context.Background(), tile.NewCoords(1, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, want, rec.Body.Bytes())
}
