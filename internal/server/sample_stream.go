package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/wrapnoise/internal/noise"
)

// SampleStreamHandler answers sample requests over a websocket. Each text
// message is a sampleRequest; each reply is a sampleResponse or, for a bad
// request, an errorResponse. The connection stays open between requests,
// which suits interactive previews that resample on every pan.
type SampleStreamHandler struct {
	source   noise.Source
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewSampleStreamHandler wraps source. Any origin may connect.
func NewSampleStreamHandler(source noise.Source, logger *slog.Logger) *SampleStreamHandler {
	return &SampleStreamHandler{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *SampleStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log().Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(4 << 20)

	for {
		var req sampleRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log().Debug("Sample stream closed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		var reply any
		values, status, err := sampleAll(h.source, req.Points)
		switch {
		case err == nil:
			reply = sampleResponse{Values: values}
		case status == http.StatusInternalServerError:
			h.log().Error("Failed to sample", "error", err)
			reply = errorResponse{"sampling failed"}
		default:
			reply = errorResponse{err.Error()}
		}

		if err := conn.WriteJSON(reply); err != nil {
			h.log().Debug("Sample stream write failed", "remote", r.RemoteAddr, "error", err)
			return
		}
	}
}

func (h *SampleStreamHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
