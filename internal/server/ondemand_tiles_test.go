package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/wrapnoise/internal/mbtiles"
	"github.com/MeKo-Tech/wrapnoise/internal/noise"
)

func newSource(t *testing.T) *noise.Factory {
	t.Helper()
	seed := noise.SeedFromString("seed")
	f, err := noise.New(noise.Config{Dimension: 2, Octaves: 2, Periods: []int{5, 5}, Seed: &seed})
	require.NoError(t, err)
	return f
}

func newOnDemand(t *testing.T, cfg OnDemandTilesConfig) *OnDemandTiles {
	t.Helper()
	if cfg.TilesDir == "" {
		cfg.TilesDir = t.TempDir()
	}
	cfg.Periods = []int{5, 5}
	if cfg.BaseTileSize == 0 {
		cfg.BaseTileSize = 16
	}
	od, err := NewOnDemandTiles(newSource(t), cfg, nil)
	require.NoError(t, err)
	return od
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestParseTilePath(t *testing.T) {
	tests := []struct {
		path   string
		coords string
		suffix string
		ok     bool
	}{
		{"/tiles/z13_x4317_y2692.png", "z13_x4317_y2692", "", true},
		{"/tiles/z5_x1_y2@2x.png", "z5_x1_y2", "@2x", true},
		{"/tiles/z5_x1_y2.jpg", "", "", false},
		{"/demo/z5_x1_y2.png", "", "", false},
		{"/tiles/garbage.png", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			coords, suffix, ok := parseTilePath(tt.path)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.coords, coords.String())
			assert.Equal(t, tt.suffix, suffix)
		})
	}
}

func TestTileSizeForSuffix(t *testing.T) {
	assert.Equal(t, 256, tileSizeForSuffix(256, ""))
	assert.Equal(t, 512, tileSizeForSuffix(256, "@2x"))
}

func TestNewOnDemandTilesValidation(t *testing.T) {
	_, err := NewOnDemandTiles(nil, OnDemandTilesConfig{}, nil)
	assert.Error(t, err)

	_, err = NewOnDemandTiles(newSource(t), OnDemandTilesConfig{TilesDir: t.TempDir(), Mode: "relief"}, nil)
	assert.Error(t, err)
}

func TestOnDemandGeneratesAndCaches(t *testing.T) {
	dir := t.TempDir()
	od := newOnDemand(t, OnDemandTilesConfig{TilesDir: dir, GenerateMissing: true})

	rec := get(t, od.Handler(), "/tiles/z1_x1_y0.png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	cached := filepath.Join(dir, "16", "z1_x1_y0.png")
	assert.FileExists(t, cached)
	assert.Equal(t, int64(1), od.Status().TotalRendered)

	// The second request is served from disk.
	rec = get(t, od.Handler(), "/tiles/z1_x1_y0.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), od.Status().TotalRendered)
}

func TestOnDemandHiDPI(t *testing.T) {
	od := newOnDemand(t, OnDemandTilesConfig{GenerateMissing: true})

	rec := get(t, od.Handler(), "/tiles/z0_x0_y0@2x.png")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestOnDemandMissingWithoutGeneration(t *testing.T) {
	od := newOnDemand(t, OnDemandTilesConfig{})
	rec := get(t, od.Handler(), "/tiles/z1_x0_y0.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnDemandRejectsOutOfGrid(t *testing.T) {
	od := newOnDemand(t, OnDemandTilesConfig{GenerateMissing: true})
	rec := get(t, od.Handler(), "/tiles/z1_x5_y0.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOnDemandDisableCacheRegenerates(t *testing.T) {
	dir := t.TempDir()
	od := newOnDemand(t, OnDemandTilesConfig{TilesDir: dir, GenerateMissing: true, DisableCache: true})

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "16"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "16", "z0_x0_y0.png"), []byte("stale"), 0o644))

	rec := get(t, od.Handler(), "/tiles/z0_x0_y0.png")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
}

func TestStatusHandler(t *testing.T) {
	od := newOnDemand(t, OnDemandTilesConfig{MaxConcurrentGenerations: 3})

	rec := get(t, od.StatusHandler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status TileStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 3, status.MaxConcurrent)
	assert.Empty(t, status.CurrentTiles)
}

func TestSampleHandlerGet(t *testing.T) {
	src := newSource(t)
	h := NewSampleHandler(src, nil)

	rec := get(t, h, "/sample?p=0.5,1.25&p=5.5,1.25")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp sampleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Values, 2)

	want, err := src.Sample(0.5, 1.25)
	require.NoError(t, err)
	assert.InDelta(t, want, resp.Values[0], 1e-12)
	// x wraps at period 5.
	assert.InDelta(t, resp.Values[0], resp.Values[1], 1e-9)
}

func TestSampleHandlerPost(t *testing.T) {
	h := NewSampleHandler(newSource(t), nil)

	body := strings.NewReader(`{"points":[[0,0],[1.5,2.5],[4.2,0.1]]}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sample", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sampleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Values, 3)
}

func TestSampleHandlerErrors(t *testing.T) {
	h := NewSampleHandler(newSource(t), nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"no points", http.MethodGet, "/sample", "", http.StatusBadRequest},
		{"bad number", http.MethodGet, "/sample?p=1,abc", "", http.StatusBadRequest},
		{"wrong dimension", http.MethodGet, "/sample?p=1,2,3", "", http.StatusBadRequest},
		{"nan", http.MethodGet, "/sample?p=NaN,0.5", "", http.StatusBadRequest},
		{"inf", http.MethodGet, "/sample?p=0.5,Inf", "", http.StatusBadRequest},
		{"nan after valid point", http.MethodGet, "/sample?p=1,1&p=-inf,0", "", http.StatusBadRequest},
		{"bad json", http.MethodPost, "/sample", "{", http.StatusBadRequest},
		{"method", http.MethodDelete, "/sample", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSampleHandlerNonFiniteBody(t *testing.T) {
	src := newSource(t)
	before := src.Gradients()
	h := NewSampleHandler(src, nil)

	rec := get(t, h, "/sample?p=NaN,0.5")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "finite")
	assert.Equal(t, before, src.Gradients())
}

func TestMBTilesHandler(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "noise.mbtiles")
	w, err := mbtiles.New(dbPath, mbtiles.Metadata{Name: "wrapnoise", Format: "png", Seed: "seed", Periods: []int{5, 5}})
	require.NoError(t, err)
	require.NoError(t, w.WriteTile(1, 1, 0, []byte("tile-1-1-0")))
	require.NoError(t, w.Close())

	h, err := NewMBTilesHandler(MBTilesConfig{MBTilesPath: dbPath}, nil)
	require.NoError(t, err)
	defer h.Close()

	rec := get(t, h.Handler(), "/tiles/z1_x1_y0.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tile-1-1-0", rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = get(t, h.Handler(), "/tiles/z1_x0_y0.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h.MetadataHandler(), "/metadata")
	require.Equal(t, http.StatusOK, rec.Code)
	var meta mbtiles.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, "seed", meta.Seed)
	assert.Equal(t, []int{5, 5}, meta.Periods)
}

func TestNewMux(t *testing.T) {
	od := newOnDemand(t, OnDemandTilesConfig{GenerateMissing: true})
	mux := NewMux(Routes{
		Tiles:  od.Handler(),
		Sample: NewSampleHandler(newSource(t), nil),
		Status: od.StatusHandler(),
	})

	rec := get(t, mux, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, mux, "/sample?p=1,1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tiles/z0_x0_y0.png", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Metadata was not mounted.
	rec = get(t, mux, "/metadata")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// /sample matches exactly, so the unmounted stream is not found.
	rec = get(t, mux, "/sample/ws")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
