package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/wrapnoise/internal/mbtiles"
)

// MBTilesHandler serves tiles from an MBTiles database.
type MBTilesHandler struct {
	reader       *mbtiles.Reader
	logger       *slog.Logger
	cacheControl string
}

// MBTilesConfig configures the MBTiles handler.
type MBTilesConfig struct {
	MBTilesPath  string
	CacheControl string
}

// NewMBTilesHandler opens the database read-only.
func NewMBTilesHandler(cfg MBTilesConfig, logger *slog.Logger) (*MBTilesHandler, error) {
	reader, err := mbtiles.OpenReader(cfg.MBTilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MBTiles: %w", err)
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "public, max-age=86400"
	}

	return &MBTilesHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Metadata returns the tileset metadata, including its noise parameters.
func (h *MBTilesHandler) Metadata() (mbtiles.Metadata, error) {
	return h.reader.Metadata()
}

// Handler serves /tiles/ paths. The @2x suffix is ignored because a
// tileset has one tile size.
func (h *MBTilesHandler) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		coords, _, ok := parseTilePath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		data, err := h.reader.ReadTile(int(coords.Z), int(coords.X), int(coords.Y))
		if errors.Is(err, mbtiles.ErrTileNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			h.log().Error("Failed to read tile", "coords", coords.String(), "error", err)
			http.Error(w, "failed to read tile", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", h.cacheControl)
		w.Header().Set("Content-Type", "image/png")
		if _, err := w.Write(data); err != nil {
			h.log().Error("Failed to write response", "error", err)
		}
	})
}

// MetadataHandler serves the tileset metadata as JSON.
func (h *MBTilesHandler) MetadataHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, err := h.reader.Metadata()
		if err != nil {
			h.log().Error("Failed to read metadata", "error", err)
			http.Error(w, "failed to read metadata", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, meta, h.log())
	})
}

// Close closes the MBTiles reader.
func (h *MBTilesHandler) Close() error {
	return h.reader.Close()
}

func (h *MBTilesHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
