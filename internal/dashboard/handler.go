// Package dashboard exposes read-only REST views of the live session for the
// moderator UI. All mutation goes through the WebSocket gateway.
package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsepoll/backend/internal/session"
	"github.com/pulsepoll/backend/pkg/response"
)

// Handler serves the moderator dashboard endpoints.
type Handler struct {
	coordinator *session.Coordinator
}

// NewHandler creates a dashboard handler.
func NewHandler(coordinator *session.Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// CurrentPoll handles GET /api/poll.
func (h *Handler) CurrentPoll(c *gin.Context) {
	poll := h.coordinator.CurrentPoll()
	if poll == nil {
		response.NotFound(c, "no poll created yet")
		return
	}
	response.OK(c, gin.H{
		"poll":    poll,
		"results": h.coordinator.CurrentResults(),
	})
}

// Participants handles GET /api/participants.
func (h *Handler) Participants(c *gin.Context) {
	response.OK(c, h.coordinator.Participants())
}

// History handles GET /api/history.
func (h *Handler) History(c *gin.Context) {
	response.OK(c, h.coordinator.History())
}
