package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// CampaignStatus Status enums
type CampaignStatus string
type JobType string
type JobStatus string
type ABType int64
type TrackingType string
type DelayUnit string
type Variant string
type SendPhase string

// Campaign status constants
const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusTest    CampaignStatus = "test"
	CampaignStatusPartial CampaignStatus = "partial"
	CampaignStatusSent    CampaignStatus = "sent"
)

// Job type constants. JobTypeSent covers campaigns whose test/base mail
// already went out through the send API, leaving only the delayed winner
// follow-up. JobTypeBatch campaigns are driven entirely by the dispatcher.
const (
	JobTypeSent  JobType = "S"
	JobTypeBatch JobType = "B"
)

// Job status constants
const (
	JobStatusPending     JobStatus = "PENDING"
	JobStatusRunning     JobStatus = "RUNNING"
	JobStatusRunningA    JobStatus = "RUNNING_A"
	JobStatusRunningB    JobStatus = "RUNNING_B"
	JobStatusRunningTest JobStatus = "RUNNING_TEST"
	JobStatusPartial     JobStatus = "PARTIAL"
	JobStatusDone        JobStatus = "DONE"
	JobStatusFailed      JobStatus = "FAILED"
)

// A/B mode constants
const (
	ABTypeNone    ABType = 0
	ABTypeSubject ABType = 1
	ABTypeSender  ABType = 2
	ABTypeTiming  ABType = 3
	ABTypeContent ABType = 4
)

// Tracking type constants
const (
	TrackingTypeOpen        TrackingType = "open"
	TrackingTypeClick       TrackingType = "click"
	TrackingTypeUnsubscribe TrackingType = "unsubscribe"
)

// Winner-followup delay units
const (
	DelayUnitHour DelayUnit = "H"
	DelayUnitDay  DelayUnit = "D"
)

// Variant constants
const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Send phase constants. PhaseWinner tags phase-2 sends so log lookups can
// tell the winner blast apart from the test slice.
const (
	PhaseTest   SendPhase = "TEST"
	PhaseWinner SendPhase = "WINNER"
)

// CoversFullPopulation reports whether the test phase of this A/B mode
// addresses every recipient. Timing tests stagger the whole population;
// the other modes send only the test slice until a winner is picked.
func (t ABType) CoversFullPopulation() bool {
	return t == ABTypeTiming
}
