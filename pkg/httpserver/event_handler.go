package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

// EventResponse wraps an event read. Data is null with status "unknown"
// when the chain could not be read.
type EventResponse struct {
	EventID string `json:"eventId"`
	Status  string `json:"status"`
	Data    any    `json:"data"`
}

// EventHandler serves odds, hype and match info.
type EventHandler struct {
	events EventSource
	logger *zap.Logger
}

// NewEventHandler creates an event handler.
func NewEventHandler(events EventSource, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// HandleEvent handles GET /api/events/{eventID}/{field}.
func (h *EventHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if _, err := types.ParseEventID(eventID); err != nil {
		writeError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	resp := EventResponse{EventID: eventID, Status: "unknown"}

	switch chi.URLParam(r, "field") {
	case "odds":
		if odds := h.events.Odds(r.Context(), eventID); odds != nil {
			resp.Status, resp.Data = "ok", odds
		}
	case "hype":
		if hype := h.events.Hype(r.Context(), eventID); hype != nil {
			resp.Status, resp.Data = "ok", hype
		}
	case "match":
		if match := h.events.Match(r.Context(), eventID); match != nil {
			resp.Status, resp.Data = "ok", match
		}
	default:
		writeError(w, h.logger, "unknown event field", http.StatusNotFound)
		return
	}

	if resp.Status == "unknown" {
		h.logger.Debug("event-read-unavailable",
			zap.String("event-id", eventID),
			zap.String("field", chi.URLParam(r, "field")))
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}
