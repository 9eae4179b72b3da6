package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"mailflare/internal/mailer"
	"mailflare/internal/tasks"
)

// CampaignHandler exposes the send API: immediate sends and dispatcher
// scheduling.
type CampaignHandler struct {
	executor *mailer.Executor
	client   *tasks.TaskClient
	logger   *zap.Logger
}

func NewCampaignHandler(executor *mailer.Executor, client *tasks.TaskClient, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{executor: executor, client: client, logger: logger}
}

type scheduleRequest struct {
	ExecuteAt  time.Time  `json:"executeAt" validate:"required"`
	Execute2At *time.Time `json:"execute2At,omitempty"`
}

type sendResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Send runs the send path for one campaign. A/B campaigns send their test
// slice and get a delayed winner follow-up job. With ?async=true the send
// is handed to a queue worker and the request returns immediately.
func (h *CampaignHandler) Send(c echo.Context) error {
	campaignID := c.Param("id")

	if c.QueryParam("async") == "true" {
		if err := h.client.EnqueueCampaignSend(c.Request().Context(), campaignID); err != nil {
			h.logger.Error("failed to enqueue campaign send",
				zap.String("campaign_id", campaignID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
	}

	result, err := h.executor.SendNow(c.Request().Context(), campaignID, time.Now())
	if err != nil {
		if errors.Is(err, mailer.ErrCampaignNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "campaign not found"})
		}
		h.logger.Error("campaign send failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, sendResponse{Sent: result.Sent, Failed: result.Failed})
}

// Schedule registers a campaign for dispatcher-driven delivery at the given
// time. Timing A/B campaigns take an explicit second timestamp for the B
// half; other A/B modes derive it from the configured winner delay.
func (h *CampaignHandler) Schedule(c echo.Context) error {
	campaignID := c.Param("id")

	var req scheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ExecuteAt.IsZero() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "executeAt is required"})
	}

	if err := h.executor.ScheduleBatch(c.Request().Context(), campaignID, req.ExecuteAt, req.Execute2At); err != nil {
		if errors.Is(err, mailer.ErrCampaignNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "campaign not found"})
		}
		h.logger.Error("campaign schedule failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "scheduled"})
}
