// Package server exposes noise tiles and point samples over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/wrapnoise/internal/pipeline"
	"github.com/MeKo-Tech/wrapnoise/internal/render"
	"github.com/MeKo-Tech/wrapnoise/internal/tile"
)

// OnDemandTilesConfig configures on-demand tile rendering.
type OnDemandTilesConfig struct {
	TilesDir                 string
	CacheControl             string
	Mode                     pipeline.Mode
	Ramp                     render.Ramp
	Periods                  []int
	BaseTileSize             int
	MaxConcurrentGenerations int
	GenerationTimeout        time.Duration
	PNGCompression           png.CompressionLevel
	SmoothSigma              float32
	SeaLevel                 float64
	GenerateMissing          bool
	DisableCache             bool
}

// OnDemandTiles serves cached tiles and renders missing ones.
type OnDemandTiles struct {
	source render.Field
	logger *slog.Logger
	sem    chan struct{}
	locks  sync.Map // cache path -> *sync.Mutex
	gens   sync.Map // tile size -> *pipeline.Generator
	cfg    OnDemandTilesConfig

	activeRenders  atomic.Int32
	queuedRenders  atomic.Int32
	totalRendered  atomic.Int64
	totalFailed    atomic.Int64
	currentRenders sync.Map // tile key -> start time
}

// TileStatus is the JSON body of the status endpoint.
type TileStatus struct {
	CurrentTiles  []string `json:"current_tiles"`
	TotalRendered int64    `json:"total_rendered"`
	TotalFailed   int64    `json:"total_failed"`
	ActiveRenders int      `json:"active_renders"`
	QueuedRenders int      `json:"queued_renders"`
	MaxConcurrent int      `json:"max_concurrent"`
}

// NewOnDemandTiles fills config defaults and prepares the handler.
func NewOnDemandTiles(source render.Field, cfg OnDemandTilesConfig, logger *slog.Logger) (*OnDemandTiles, error) {
	if source == nil {
		return nil, fmt.Errorf("noise source is required")
	}
	if cfg.TilesDir == "" {
		cfg.TilesDir = "./tiles"
	}
	if cfg.BaseTileSize <= 0 {
		cfg.BaseTileSize = 256
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	t := &OnDemandTiles{
		source: source,
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentGenerations),
	}
	// Fail on a bad mode at startup rather than on the first request.
	if _, err := t.getGenerator(cfg.BaseTileSize); err != nil {
		return nil, err
	}
	return t, nil
}

// Status reports render counters.
func (t *OnDemandTiles) Status() TileStatus {
	current := []string{}
	t.currentRenders.Range(func(key, _ any) bool {
		current = append(current, key.(string))
		return true
	})
	sort.Strings(current)

	return TileStatus{
		ActiveRenders: int(t.activeRenders.Load()),
		QueuedRenders: int(t.queuedRenders.Load()),
		TotalRendered: t.totalRendered.Load(),
		TotalFailed:   t.totalFailed.Load(),
		CurrentTiles:  current,
		MaxConcurrent: t.cfg.MaxConcurrentGenerations,
	}
}

// StatusHandler serves Status as JSON.
func (t *OnDemandTiles) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, t.Status(), t.log())
	})
}

// StatusStreamHandler pushes Status as server-sent events until the client
// goes away.
func (t *OnDemandTiles) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		for {
			data, err := json.Marshal(t.Status())
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// Handler serves /tiles/z{z}_x{x}_y{y}[@2x].png.
func (t *OnDemandTiles) Handler() http.Handler {
	return http.HandlerFunc(t.serveTile)
}

func (t *OnDemandTiles) serveTile(w http.ResponseWriter, r *http.Request) {
	coords, suffix, ok := parseTilePath(r.URL.Path)
	if !ok || !coords.Valid() {
		http.NotFound(w, r)
		return
	}

	gen, err := t.getGenerator(tileSizeForSuffix(t.cfg.BaseTileSize, suffix))
	if err != nil {
		t.log().Error("Failed to init generator", "error", err)
		http.Error(w, "failed to init generator", http.StatusInternalServerError)
		return
	}
	fullPath := gen.TilePath(coords)
	tileKey := coords.String() + suffix

	w.Header().Set("Cache-Control", t.cfg.CacheControl)

	if !t.cfg.DisableCache && fileExists(fullPath) {
		http.ServeFile(w, r, fullPath)
		return
	}
	if !t.cfg.GenerateMissing {
		http.Error(w, fmt.Sprintf("tile not found: %s", tileKey), http.StatusNotFound)
		return
	}

	mu := t.getLock(fullPath)
	mu.Lock()
	defer mu.Unlock()

	// Another request may have rendered it while we waited.
	if !t.cfg.DisableCache && fileExists(fullPath) {
		http.ServeFile(w, r, fullPath)
		return
	}

	t.queuedRenders.Add(1)
	select {
	case t.sem <- struct{}{}:
		t.queuedRenders.Add(-1)
		defer func() { <-t.sem }()
	case <-r.Context().Done():
		t.queuedRenders.Add(-1)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	t.activeRenders.Add(1)
	t.currentRenders.Store(tileKey, start)
	_, err = gen.Generate(ctx, coords, true)
	t.activeRenders.Add(-1)
	t.currentRenders.Delete(tileKey)

	if err != nil {
		t.totalFailed.Add(1)
		t.log().Error("Failed to generate tile", "coords", coords.String(), "suffix", suffix, "error", err)
		http.Error(w, fmt.Sprintf("failed to generate tile %s: %v", tileKey, err), http.StatusInternalServerError)
		return
	}
	t.totalRendered.Add(1)
	t.log().Info("Tile generated on-demand", "coords", coords.String(), "suffix", suffix, "ms", time.Since(start).Milliseconds())

	http.ServeFile(w, r, fullPath)
}

// getGenerator returns the generator for one tile size; each size caches
// under its own subdirectory.
func (t *OnDemandTiles) getGenerator(tileSize int) (*pipeline.Generator, error) {
	if v, ok := t.gens.Load(tileSize); ok {
		return v.(*pipeline.Generator), nil
	}

	g, err := pipeline.NewGenerator(
		t.source,
		t.cfg.Periods,
		filepath.Join(t.cfg.TilesDir, strconv.Itoa(tileSize)),
		tileSize,
		t.logger,
		pipeline.GeneratorOptions{
			Mode:           t.cfg.Mode,
			Ramp:           t.cfg.Ramp,
			PNGCompression: t.cfg.PNGCompression,
			SmoothSigma:    t.cfg.SmoothSigma,
			SeaLevel:       t.cfg.SeaLevel,
		},
	)
	if err != nil {
		return nil, err
	}

	actual, _ := t.gens.LoadOrStore(tileSize, g)
	return actual.(*pipeline.Generator), nil
}

func (t *OnDemandTiles) getLock(key string) *sync.Mutex {
	actual, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (t *OnDemandTiles) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return slog.Default()
}

// parseTilePath accepts /tiles/z13_x4317_y2692.png and the @2x variant.
func parseTilePath(requestPath string) (tile.Coords, string, bool) {
	if !strings.HasPrefix(requestPath, "/tiles/") {
		return tile.Coords{}, "", false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return tile.Coords{}, "", false
	}
	name := strings.TrimSuffix(base, ".png")
	suffix := ""
	if strings.HasSuffix(name, "@2x") {
		suffix = "@2x"
		name = strings.TrimSuffix(name, "@2x")
	}

	coords, err := tile.ParseCoords(name)
	if err != nil {
		return tile.Coords{}, "", false
	}
	return coords, suffix, true
}

func tileSizeForSuffix(base int, suffix string) int {
	if suffix == "@2x" {
		return base * 2
	}
	return base
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !st.IsDir()
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
