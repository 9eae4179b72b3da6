package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Campaign struct {
	Base
	Name          string         `gorm:"not null" json:"name" validate:"required,min=2"`
	GroupID       string         `gorm:"type:uuid;not null" json:"groupId" validate:"required,uuid"`
	Group         *Group         `json:"group,omitempty"`
	Status        CampaignStatus `gorm:"not null;default:'draft'" json:"status"`
	SendStartedAt *time.Time     `json:"sendStartedAt,omitempty"`
	SendEndedAt   *time.Time     `json:"sendEndedAt,omitempty"`
	SendInfo      *SendInfo      `gorm:"foreignKey:CampaignID" json:"sendInfo,omitempty"`
	Content       *Content       `gorm:"foreignKey:CampaignID" json:"content,omitempty"`
}

type Group struct {
	Base
	Name           string      `gorm:"not null" json:"name" validate:"required,min=2"`
	FooterCompany  string      `json:"footerCompany"`
	FooterFromMail string      `json:"footerFromMail" validate:"omitempty,email"`
	FooterAddress  string      `json:"footerAddress"`
	FooterTel      string      `json:"footerTel"`
	Recipients     []Recipient `gorm:"foreignKey:GroupID" json:"recipients,omitempty"`
}

type Recipient struct {
	Base
	GroupID   string `gorm:"type:uuid;not null;index" json:"groupId" validate:"required,uuid"`
	Group     *Group `json:"group,omitempty"`
	Name      string `json:"name"`
	Email     string `gorm:"not null" json:"email" validate:"required,email"`
	Receiving bool   `gorm:"not null;default:true" json:"receiving"`
}

type Content struct {
	Base
	CampaignID string         `gorm:"type:uuid;not null;uniqueIndex" json:"campaignId" validate:"required,uuid"`
	HTML       string         `gorm:"type:text" json:"html"`
	HTMLB      string         `gorm:"type:text" json:"htmlB"`
	Variables  pq.StringArray `gorm:"type:text[]" json:"variables" validate:"omitempty,dive,min=1"`
}

type SendInfo struct {
	Base
	CampaignID  string    `gorm:"type:uuid;not null;uniqueIndex" json:"campaignId" validate:"required,uuid"`
	ABTest      bool      `gorm:"not null;default:false" json:"abTest"`
	ABType      ABType    `gorm:"not null;default:0" json:"abType" validate:"min=0,max=4"`
	TestRatio   int64     `gorm:"not null;default:0" json:"testRatio" validate:"min=0,max=100"`
	DelayUnit   DelayUnit `gorm:"type:varchar(1);default:'D'" json:"delayUnit" validate:"omitempty,oneof=H D"`
	DelayValue  int64     `gorm:"not null;default:1" json:"delayValue"`
	Subject     string    `json:"subject"`
	SubjectB    string    `json:"subjectB"`
	SenderName  string    `json:"senderName"`
	SenderNameB string    `json:"senderNameB"`
	PreviewText string    `json:"previewText"`
	SenderEmail string    `json:"senderEmail" validate:"omitempty,email"`
}

// FollowUpJob is the dispatcher's unit of work: one row per campaign that
// still owes a scheduled or A/B phase. The unique index on CampaignID is
// what makes follow-up scheduling idempotent, and Status is only ever
// advanced through a conditional-update claim.
type FollowUpJob struct {
	Base
	CampaignID string     `gorm:"type:uuid;not null;uniqueIndex" json:"campaignId" validate:"required,uuid"`
	Type       JobType    `gorm:"type:varchar(2);not null;default:'S'" json:"type" validate:"required,oneof=S B"`
	ABType     ABType     `gorm:"not null;default:0" json:"abType"`
	Status     JobStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ExecuteAt  *time.Time `json:"executeAt,omitempty"`
	Execute2At *time.Time `gorm:"column:execute2_at" json:"execute2At,omitempty"`
}

// MailLog records one delivered (or attempted) message. Variant and Phase
// feed the exclusion sets and the winner join.
type MailLog struct {
	Base
	CampaignID  string    `gorm:"type:uuid;not null;index" json:"campaignId"`
	GroupID     string    `gorm:"type:uuid;not null" json:"groupId"`
	RecipientID string    `gorm:"type:uuid;not null;index" json:"recipientId"`
	MailFrom    string    `json:"mailFrom"`
	MailTo      string    `json:"mailTo"`
	Variant     Variant   `gorm:"type:varchar(1)" json:"variant"`
	Phase       SendPhase `gorm:"type:varchar(10)" json:"phase"`
	Attempt     int       `gorm:"not null;default:1" json:"attempt"`
}

// TrackingEvent is one deduplicated open/click/unsubscribe. URL is "" for
// events without a target link; the composite unique index treats two ""
// values as equal, which is what keeps repeated opens collapsed to one row.
type TrackingEvent struct {
	Base
	Type        TrackingType   `gorm:"type:varchar(20);not null;uniqueIndex:uq_tracking_event" json:"type"`
	CampaignID  string         `gorm:"type:uuid;not null;uniqueIndex:uq_tracking_event;index" json:"campaignId"`
	GroupID     string         `gorm:"type:uuid;not null;uniqueIndex:uq_tracking_event" json:"groupId"`
	RecipientID string         `gorm:"type:uuid;not null;uniqueIndex:uq_tracking_event" json:"recipientId"`
	URL         string         `gorm:"not null;default:'';uniqueIndex:uq_tracking_event" json:"url"`
	IPAddress   string         `json:"ipAddress"`
	UserAgent   string         `json:"userAgent"`
	DeviceType  string         `json:"deviceType"`
	Browser     string         `json:"browser"`
	OS          string         `json:"os"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"metadata"`
}
