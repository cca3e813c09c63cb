package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/sse"
)

type EventsHandler struct {
	log *logger.Logger
	hub *sse.SSEHub
}

func NewEventsHandler(log *logger.Logger, hub *sse.SSEHub) *EventsHandler {
	return &EventsHandler{
		log: log.With("handler", "EventsHandler"),
		hub: hub,
	}
}

// GET /api/events?channels=project:<id>,project:<id>
// Streams extraction and generation progress for the requested channels.
func (h *EventsHandler) Stream(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("channels"))
	if raw == "" {
		RespondError(c, http.StatusBadRequest, "missing_channels", nil)
		return
	}

	client := h.hub.NewSSEClient()
	for _, channel := range strings.Split(raw, ",") {
		h.hub.AddChannel(client, channel)
	}
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
