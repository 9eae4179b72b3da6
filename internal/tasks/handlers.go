package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"mailflare/internal/dispatch"
	"mailflare/internal/mailer"
)

// TaskHandler processes queued work.
type TaskHandler struct {
	orchestrator *dispatch.Orchestrator
	executor     *mailer.Executor
	logger       *zap.Logger
}

func NewTaskHandler(orchestrator *dispatch.Orchestrator, executor *mailer.Executor, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		orchestrator: orchestrator,
		executor:     executor,
		logger:       logger,
	}
}

// HandleDispatchSweep runs one pass over the due-job table. A sweep never
// returns an error for per-job failures; those are parked as FAILED rows
// and retrying the whole sweep would not help them.
func (h *TaskHandler) HandleDispatchSweep(ctx context.Context, t *asynq.Task) error {
	var task SweepTask
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &task); err != nil {
			return fmt.Errorf("failed to unmarshal sweep task: %w", err)
		}
	}

	results := h.orchestrator.Sweep(ctx, time.Now())

	var advanced, failed int
	for _, r := range results {
		switch r.Outcome {
		case dispatch.OutcomeAdvanced:
			advanced++
		case dispatch.OutcomeFailed:
			failed++
		}
	}
	h.logger.Info("dispatch sweep finished",
		zap.Int("jobs", len(results)),
		zap.Int("advanced", advanced),
		zap.Int("failed", failed))
	return nil
}

// HandleCampaignSend runs one campaign's synchronous send path.
func (h *TaskHandler) HandleCampaignSend(ctx context.Context, t *asynq.Task) error {
	var task CampaignSendTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		return fmt.Errorf("failed to unmarshal campaign send task: %w", err)
	}

	result, err := h.executor.SendNow(ctx, task.CampaignID, time.Now())
	if err != nil {
		return fmt.Errorf("campaign send failed: %w", err)
	}

	h.logger.Info("campaign send finished",
		zap.String("campaign_id", task.CampaignID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return nil
}
