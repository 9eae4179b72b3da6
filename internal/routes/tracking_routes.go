package routes

import (
	"github.com/labstack/echo/v4"

	"mailflare/internal/handlers"
)

// RegisterTrackingRoutes registers all tracking related routes
func RegisterTrackingRoutes(e *echo.Echo, h *handlers.TrackingHandler) {
	// Public tracker endpoints, reached from inside delivered mail
	trackGroup := e.Group("/t")
	trackGroup.GET("/open", h.HandleOpen)
	trackGroup.GET("/click", h.HandleClick)
	trackGroup.GET("/unsubscribe", h.HandleUnsubscribe)

	// Read-side endpoints for recorded events
	statsGroup := e.Group("/api/campaigns")
	statsGroup.GET("/:id/events", h.GetCampaignEvents)
	statsGroup.GET("/:id/stats", h.GetCampaignStats)
}
