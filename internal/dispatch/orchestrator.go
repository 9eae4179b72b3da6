package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailflare/internal/models"
	"mailflare/internal/store"
)

// Executor is the set of send phases the orchestrator can trigger. The
// mailer package provides the production implementation.
type Executor interface {
	SendBulk(ctx context.Context, campaignID string) error
	RunInitialTest(ctx context.Context, campaignID string) error
	RunTimingBatch(ctx context.Context, campaignID string, useB bool) error
	RunWinnerFollowup(ctx context.Context, campaignID string) error
}

// Outcome classifies what a sweep did with one job.
type Outcome string

const (
	// OutcomeAdvanced means at least one phase ran and the job moved on.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeSkipped means nothing was due, the claim was lost to another
	// worker, or the job's type is unknown.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means a phase errored and the job was parked in FAILED.
	OutcomeFailed Outcome = "failed"
)

type JobResult struct {
	CampaignID string
	Outcome    Outcome
	Err        error
}

// Orchestrator polls the follow-up job table and drives due jobs through
// the transition table. It is safe to run several instances concurrently:
// every phase is fenced by a conditional-update claim, so a job that two
// sweeps pick up is executed by exactly one of them.
type Orchestrator struct {
	jobs     store.JobStore
	executor Executor
	logger   *zap.Logger
}

func NewOrchestrator(jobs store.JobStore, executor Executor, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{jobs: jobs, executor: executor, logger: logger}
}

// Sweep selects every due job and processes each independently. One job's
// failure never touches the others.
func (o *Orchestrator) Sweep(ctx context.Context, now time.Time) []JobResult {
	jobs, err := o.jobs.SelectDue(ctx, now)
	if err != nil {
		o.logger.Error("failed to select due jobs", zap.Error(err))
		return nil
	}

	results := make([]JobResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, o.ProcessJob(ctx, &job, now))
	}
	return results
}

// ProcessJob walks the transition table for one job. A two-phase job whose
// timestamps are both in the past advances through both phases here: the
// second row's source set includes the first row's success status.
func (o *Orchestrator) ProcessJob(ctx context.Context, job *models.FollowUpJob, now time.Time) JobResult {
	result := JobResult{CampaignID: job.CampaignID, Outcome: OutcomeSkipped}

	if job.Type != models.JobTypeSent && job.Type != models.JobTypeBatch {
		o.logger.Warn("ignoring job with unknown type",
			zap.String("campaign_id", job.CampaignID),
			zap.String("type", string(job.Type)))
		return result
	}

	for _, tr := range transitionTable {
		if tr.jobType != job.Type || !tr.matchesABType(job.ABType) {
			continue
		}
		if !isDue(job, tr.due, now) {
			continue
		}

		claimed, err := o.jobs.Claim(ctx, job.CampaignID, tr.from, tr.claim)
		if err != nil {
			return o.fail(ctx, job.CampaignID, err)
		}
		if !claimed {
			// Another worker holds this phase, or the job already moved
			// past it. Later rows may still apply.
			continue
		}

		if err := o.runAction(ctx, tr.action, job.CampaignID); err != nil {
			return o.fail(ctx, job.CampaignID, err)
		}
		if err := o.jobs.SetStatus(ctx, job.CampaignID, tr.success); err != nil {
			return o.fail(ctx, job.CampaignID, err)
		}

		o.logger.Info("job advanced",
			zap.String("campaign_id", job.CampaignID),
			zap.String("type", string(job.Type)),
			zap.Int64("ab_type", int64(job.ABType)),
			zap.String("status", string(tr.success)))
		result.Outcome = OutcomeAdvanced
	}

	return result
}

func (o *Orchestrator) runAction(ctx context.Context, action phaseAction, campaignID string) error {
	switch action {
	case actionBulkSend:
		return o.executor.SendBulk(ctx, campaignID)
	case actionInitialTest:
		return o.executor.RunInitialTest(ctx, campaignID)
	case actionTimingBatchA:
		return o.executor.RunTimingBatch(ctx, campaignID, false)
	case actionTimingBatchB:
		return o.executor.RunTimingBatch(ctx, campaignID, true)
	case actionWinnerFollowup:
		return o.executor.RunWinnerFollowup(ctx, campaignID)
	default:
		return nil
	}
}

// fail parks the job in FAILED so the next sweep does not pick it back up;
// un-parking is a manual operation.
func (o *Orchestrator) fail(ctx context.Context, campaignID string, cause error) JobResult {
	o.logger.Error("job failed",
		zap.String("campaign_id", campaignID),
		zap.Error(cause))
	if err := o.jobs.SetStatus(ctx, campaignID, models.JobStatusFailed); err != nil {
		o.logger.Error("failed to park job as FAILED",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}
	return JobResult{CampaignID: campaignID, Outcome: OutcomeFailed, Err: cause}
}

func isDue(job *models.FollowUpJob, field dueField, now time.Time) bool {
	var ts *time.Time
	switch field {
	case dueExecuteAt:
		ts = job.ExecuteAt
	case dueExecute2At:
		ts = job.Execute2At
	}
	return ts != nil && !ts.After(now)
}
