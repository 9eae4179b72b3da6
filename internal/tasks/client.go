package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailflare/internal/config"
)

// sweepGuardKey fences overlapping sweep enqueues. The claim-based job
// table makes overlapping sweeps harmless, the guard just keeps the queue
// from filling with redundant work.
const sweepGuardKey = "mailflare:dispatch:sweep:guard"

// TaskClient enqueues background work.
type TaskClient struct {
	client      *asynq.Client
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewTaskClient(cfg config.RedisConfig, logger *zap.Logger) *TaskClient {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &TaskClient{
		client:      asynq.NewClient(redisOpt),
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *TaskClient) Close() error {
	if err := c.client.Close(); err != nil {
		return err
	}
	return c.redisClient.Close()
}

// EnqueueSweep schedules one dispatch sweep. The redis guard collapses
// bursts of triggers into a single queued sweep per interval.
func (c *TaskClient) EnqueueSweep(ctx context.Context, guardTTL time.Duration) error {
	ok, err := c.redisClient.SetNX(ctx, sweepGuardKey, time.Now().Format(time.RFC3339), guardTTL).Result()
	if err != nil {
		return fmt.Errorf("sweep guard check failed: %w", err)
	}
	if !ok {
		c.logger.Debug("sweep already queued, skipping")
		return nil
	}

	payload, err := json.Marshal(SweepTask{RequestedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal sweep task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeDispatchSweep, payload),
		asynq.Queue(QueueDefault),
		asynq.Timeout(TimeoutLong),
		asynq.MaxRetry(RetryMin),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sweep task: %w", err)
	}

	c.logger.Info("enqueued dispatch sweep",
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// EnqueueCampaignSend hands a campaign's synchronous send to a worker.
func (c *TaskClient) EnqueueCampaignSend(ctx context.Context, campaignID string) error {
	payload, err := json.Marshal(CampaignSendTask{CampaignID: campaignID})
	if err != nil {
		return fmt.Errorf("failed to marshal campaign send task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeCampaignSend, payload),
		asynq.Queue(QueueCritical),
		asynq.Timeout(TimeoutMedium),
		asynq.MaxRetry(RetryDefault),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue campaign send task: %w", err)
	}

	c.logger.Info("enqueued campaign send",
		zap.String("task_id", info.ID),
		zap.String("campaign_id", campaignID))
	return nil
}
