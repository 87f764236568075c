package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agentdeck/agentdeck/internal/store"
)

// EventHandler handles activity log requests.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(st *store.Store) *EventHandler {
	return &EventHandler{store: st}
}

// ListRecent returns events across all agents, newest first.
func (h *EventHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	events, err := h.store.ListRecentEvents(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Clear removes all activity events.
func (h *EventHandler) Clear(c *gin.Context) {
	if err := h.store.ClearEvents(); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
