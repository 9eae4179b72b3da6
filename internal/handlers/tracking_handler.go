package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"

	"mailflare/internal/models"
	"mailflare/internal/render"
	"mailflare/internal/store"
	"mailflare/internal/tracking"
	"mailflare/internal/utils"
)

const unsubscribedPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Unsubscribed</title></head>
<body style="font-family:sans-serif;text-align:center;padding:64px 16px;">
  <h2>You have been unsubscribed.</h2>
  <p>You will no longer receive emails from this list.</p>
</body>
</html>`

// TrackingHandler serves the tracker callbacks embedded in sent mail: the
// open pixel, click redirects and the unsubscribe page.
type TrackingHandler struct {
	codec     *render.TokenCodec
	recorder  *tracking.Recorder
	events    store.TrackingStore
	campaigns store.CampaignStore
	logger    *zap.Logger
}

func NewTrackingHandler(codec *render.TokenCodec, recorder *tracking.Recorder, events store.TrackingStore, campaigns store.CampaignStore, logger *zap.Logger) *TrackingHandler {
	return &TrackingHandler{
		codec:     codec,
		recorder:  recorder,
		events:    events,
		campaigns: campaigns,
		logger:    logger,
	}
}

// HandleOpen records an open and answers with a 1x1 transparent GIF. The
// pixel is served even when recording fails; a broken image in the mail
// body would be worse than a lost event.
func (h *TrackingHandler) HandleOpen(c echo.Context) error {
	info, err := h.verifyToken(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}

	if err := h.record(c, info, models.TrackingTypeOpen, ""); err != nil {
		h.logger.Error("failed to record open event", zap.Error(err))
	}

	c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	return c.Blob(http.StatusOK, "image/gif", utils.TransparentGIF())
}

// HandleClick records a click and redirects to the original URL. Tracking
// failures never block the redirect.
func (h *TrackingHandler) HandleClick(c echo.Context) error {
	info, err := h.verifyToken(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}

	target := c.QueryParam("url")
	if target == "" {
		return c.String(http.StatusBadRequest, "Missing url")
	}

	if err := h.record(c, info, models.TrackingTypeClick, target); err != nil {
		h.logger.Error("failed to record click event", zap.Error(err))
	}

	return c.Redirect(http.StatusFound, target)
}

// HandleUnsubscribe opts the recipient out and records the event.
func (h *TrackingHandler) HandleUnsubscribe(c echo.Context) error {
	info, err := h.verifyToken(c)
	if err != nil {
		return c.String(http.StatusUnauthorized, "Invalid token")
	}

	if err := h.campaigns.MarkUnsubscribed(c.Request().Context(), info.RecipientID); err != nil {
		h.logger.Error("failed to mark recipient unsubscribed",
			zap.String("recipient_id", info.RecipientID),
			zap.Error(err))
		return c.String(http.StatusInternalServerError, "Failed to unsubscribe")
	}

	if err := h.record(c, info, models.TrackingTypeUnsubscribe, ""); err != nil {
		h.logger.Error("failed to record unsubscribe event", zap.Error(err))
	}

	return c.HTML(http.StatusOK, unsubscribedPage)
}

// GetCampaignEvents lists a campaign's recorded events, optionally filtered
// by type via ?type=open|click|unsubscribe.
func (h *TrackingHandler) GetCampaignEvents(c echo.Context) error {
	campaignID := c.Param("id")
	eventType := models.TrackingType(c.QueryParam("type"))

	events, err := h.events.ListEvents(c.Request().Context(), campaignID, eventType)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Failed to fetch events")
	}
	return c.JSON(http.StatusOK, events)
}

// GetCampaignStats returns per-variant distinct open counts, the same
// numbers winner selection uses.
func (h *TrackingHandler) GetCampaignStats(c echo.Context) error {
	campaignID := c.Param("id")
	ctx := c.Request().Context()

	opensA, err := h.events.CountVariantOpens(ctx, campaignID, models.VariantA)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Failed to fetch stats")
	}
	opensB, err := h.events.CountVariantOpens(ctx, campaignID, models.VariantB)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Failed to fetch stats")
	}

	return c.JSON(http.StatusOK, map[string]int64{
		"opensA": opensA,
		"opensB": opensB,
	})
}

func (h *TrackingHandler) verifyToken(c echo.Context) (render.TrackingInfo, error) {
	token := c.QueryParam("token")
	if token == "" {
		return render.TrackingInfo{}, echo.NewHTTPError(http.StatusBadRequest, "missing token")
	}
	return h.codec.Verify(token)
}

func (h *TrackingHandler) record(c echo.Context, info render.TrackingInfo, eventType models.TrackingType, url string) error {
	ua := user_agent.New(c.Request().UserAgent())
	deviceType := "desktop"
	if ua.Mobile() {
		deviceType = "mobile"
	}
	browser, version := ua.Browser()

	event := &models.TrackingEvent{
		Type:        eventType,
		CampaignID:  info.CampaignID,
		GroupID:     info.GroupID,
		RecipientID: info.RecipientID,
		URL:         url,
		IPAddress:   utils.GetIPAddress(c.Request()),
		UserAgent:   c.Request().UserAgent(),
		DeviceType:  deviceType,
		Browser:     browser + " " + version,
		OS:          ua.OS(),
	}
	return h.recorder.Record(c.Request().Context(), event)
}
