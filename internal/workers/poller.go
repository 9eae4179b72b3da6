package workers

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mailflare/internal/config"
	"mailflare/internal/dispatch"
	"mailflare/internal/tasks"
)

// Poller triggers dispatch sweeps on a fixed interval. In cron mode it runs
// the sweep in-process; in queue mode it only enqueues a sweep task and the
// task server does the work.
type Poller struct {
	cfg          config.DispatchConfig
	orchestrator *dispatch.Orchestrator
	client       *tasks.TaskClient
	cron         *cron.Cron
	logger       *zap.Logger
}

func NewPoller(cfg config.DispatchConfig, orchestrator *dispatch.Orchestrator, client *tasks.TaskClient, logger *zap.Logger) *Poller {
	return &Poller{
		cfg:          cfg,
		orchestrator: orchestrator,
		client:       client,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start registers the sweep trigger and starts the cron runner. It returns
// immediately; the cron runs on its own goroutine until Stop.
func (p *Poller) Start(ctx context.Context) error {
	spec := "@every " + p.cfg.Interval.String()

	_, err := p.cron.AddFunc(spec, func() {
		p.trigger(ctx)
	})
	if err != nil {
		return err
	}

	p.logger.Info("starting dispatch poller",
		zap.String("mode", p.cfg.Mode),
		zap.Duration("interval", p.cfg.Interval))
	p.cron.Start()
	return nil
}

// Stop halts the trigger and waits for a running sweep to finish.
func (p *Poller) Stop() {
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.logger.Info("dispatch poller stopped")
}

func (p *Poller) trigger(ctx context.Context) {
	if p.cfg.Mode == "queue" {
		if err := p.client.EnqueueSweep(ctx, p.cfg.Interval); err != nil {
			p.logger.Error("failed to enqueue sweep", zap.Error(err))
		}
		return
	}

	results := p.orchestrator.Sweep(ctx, time.Now())
	var advanced, failed int
	for _, r := range results {
		switch r.Outcome {
		case dispatch.OutcomeAdvanced:
			advanced++
		case dispatch.OutcomeFailed:
			failed++
		}
	}
	if len(results) > 0 {
		p.logger.Info("sweep finished",
			zap.Int("jobs", len(results)),
			zap.Int("advanced", advanced),
			zap.Int("failed", failed))
	}
}
