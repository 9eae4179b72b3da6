package routes

import (
	"github.com/labstack/echo/v4"

	"mailflare/internal/handlers"
)

// RegisterCampaignRoutes registers the send API
func RegisterCampaignRoutes(e *echo.Echo, h *handlers.CampaignHandler) {
	campaignGroup := e.Group("/api/campaigns")
	campaignGroup.POST("/:id/send", h.Send)
	campaignGroup.POST("/:id/schedule", h.Schedule)
}
