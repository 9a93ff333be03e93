package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
)

// maxSamplePoints bounds one POST request.
const maxSamplePoints = 10000

type sampleRequest struct {
	Points [][]float64 `json:"points"`
}

type sampleResponse struct {
	Values []float64 `json:"values"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SampleHandler evaluates a noise source at points.
//
//	GET  /sample?p=0.5,1.25            -> {"values":[v]}
//	POST /sample {"points":[[x,y],..]} -> {"values":[v,..]}
type SampleHandler struct {
	source noise.Source
	logger *slog.Logger
}

// NewSampleHandler wraps source.
func NewSampleHandler(source noise.Source, logger *slog.Logger) *SampleHandler {
	return &SampleHandler{source: source, logger: logger}
}

func (h *SampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var points [][]float64
	switch r.Method {
	case http.MethodGet:
		for _, raw := range r.URL.Query()["p"] {
			p, err := parsePoint(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()}, h.log())
				return
			}
			points = append(points, p)
		}
	case http.MethodPost:
		var req sampleRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{"invalid JSON body: " + err.Error()}, h.log())
			return
		}
		points = req.Points
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	values, status, err := sampleAll(h.source, points)
	if err != nil {
		if status == http.StatusInternalServerError {
			h.log().Error("Failed to sample", "error", err)
			writeJSON(w, status, errorResponse{"sampling failed"}, h.log())
			return
		}
		writeJSON(w, status, errorResponse{err.Error()}, h.log())
		return
	}
	writeJSON(w, http.StatusOK, sampleResponse{Values: values}, h.log())
}

// sampleAll evaluates source at every point. The returned status is the
// HTTP status matching err.
func sampleAll(source noise.Source, points [][]float64) ([]float64, int, error) {
	if len(points) == 0 {
		return nil, http.StatusBadRequest, errors.New("no points given")
	}
	if len(points) > maxSamplePoints {
		return nil, http.StatusRequestEntityTooLarge, errors.New("too many points")
	}

	values := make([]float64, len(points))
	for i, p := range points {
		v, err := source.Sample(p...)
		if errors.Is(err, noise.ErrDimensionMismatch) || errors.Is(err, noise.ErrNonFinitePoint) {
			return nil, http.StatusBadRequest, err
		}
		if err != nil {
			return nil, http.StatusInternalServerError, fmt.Errorf("failed to sample %v: %w", p, err)
		}
		values[i] = v
	}
	return values, http.StatusOK, nil
}

func (h *SampleHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parsePoint parses "x,y,z".
func parsePoint(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	p := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.New("invalid coordinate " + strconv.Quote(part))
		}
		p[i] = v
	}
	return p, nil
}
