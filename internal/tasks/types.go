package tasks

import "time"

// Task types
const (
	// TaskTypeDispatchSweep polls the follow-up job table for due work.
	TaskTypeDispatchSweep = "dispatch:sweep"

	// TaskTypeCampaignSend runs a campaign's synchronous send off-request.
	TaskTypeCampaignSend = "campaign:send"
)

// Task queues
const (
	QueueCritical = "critical" // campaign sends
	QueueDefault  = "default"  // dispatch sweeps
)

// Task timeouts
const (
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task retry settings
const (
	RetryDefault = 3
	RetryMin     = 1
)

// SweepTask triggers one pass over the due-job table. RequestedAt is
// informational; the sweep always evaluates dueness against its own clock.
type SweepTask struct {
	RequestedAt time.Time `json:"requested_at"`
}

// CampaignSendTask carries a single campaign's asynchronous send request.
type CampaignSendTask struct {
	CampaignID string `json:"campaign_id"`
}
