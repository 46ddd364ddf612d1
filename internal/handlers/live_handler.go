package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/realtime"
	"github.com/memoria-social/backend/internal/services"
)

// LiveHandler streams a post's comment events over a websocket
type LiveHandler struct {
	postService *services.PostService
	hub         *realtime.Hub
}

// NewLiveHandler creates a new LiveHandler
func NewLiveHandler(postService *services.PostService, hub *realtime.Hub) *LiveHandler {
	return &LiveHandler{postService: postService, hub: hub}
}

// RegisterLiveRoutes registers the websocket route
func (h *LiveHandler) RegisterLiveRoutes(g *echo.Group) {
	g.GET("/posts/:post_id/live", h.StreamComments)
}

// StreamComments upgrades the connection once the caller is known to see the post
func (h *LiveHandler) StreamComments(c echo.Context) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}

	post, err := h.postService.GetPost(c.Request().Context(), c.Param("post_id"), identity.UserID)
	if err != nil {
		return httpError(err)
	}

	if err := h.hub.ServeWS(c.Response(), c.Request(), post.ID.Hex()); err != nil {
		c.Logger().Warnf("websocket upgrade failed: %v", err)
	}
	return nil
}
