package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mailflare/internal/models"
)

// CampaignSendData is the flattened read model a dispatch phase works from:
// the campaign row joined with its send-info and content variants.
type CampaignSendData struct {
	CampaignID  string
	GroupID     string
	ABTest      bool
	ABType      models.ABType
	TestRatio   int64
	DelayUnit   models.DelayUnit
	DelayValue  int64
	Subject     string
	SubjectB    string
	SenderName  string
	SenderNameB string
	PreviewText string
	SenderEmail string
	HTML        string
	HTMLB       string
}

// Footer carries the group-level fields appended to every rendered mail.
type Footer struct {
	Company  string
	FromMail string
	Address  string
	Tel      string
}

type CampaignStore interface {
	// FetchSendData returns nil, nil when the campaign does not exist;
	// callers treat that as "nothing to do".
	FetchSendData(ctx context.Context, campaignID string) (*CampaignSendData, error)
	// FetchRecipients returns opted-in recipients in a stable order. The
	// split arithmetic depends on that order staying put between phases.
	FetchRecipients(ctx context.Context, groupID string) ([]models.Recipient, error)
	FetchFooter(ctx context.Context, groupID string) (Footer, error)
	UpdateStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error
	MarkSendStarted(ctx context.Context, campaignID string) error
	MarkUnsubscribed(ctx context.Context, recipientID string) error
}

type GormCampaignStore struct {
	db *gorm.DB
}

func NewCampaignStore(db *gorm.DB) *GormCampaignStore {
	return &GormCampaignStore{db: db}
}

const sqlFetchSendData = `
SELECT
  a.id             AS campaign_id,
  a.group_id       AS group_id,
  COALESCE(b.ab_test, false)    AS ab_test,
  COALESCE(b.ab_type, 0)        AS ab_type,
  COALESCE(b.test_ratio, 0)     AS test_ratio,
  COALESCE(b.delay_unit, 'D')   AS delay_unit,
  COALESCE(b.delay_value, 1)    AS delay_value,
  COALESCE(b.subject, '')       AS subject,
  COALESCE(b.subject_b, '')     AS subject_b,
  COALESCE(b.sender_name, '')   AS sender_name,
  COALESCE(b.sender_name_b, '') AS sender_name_b,
  COALESCE(b.preview_text, '')  AS preview_text,
  COALESCE(b.sender_email, '')  AS sender_email,
  COALESCE(c.html, '')          AS html,
  COALESCE(c.htmlb, '')         AS htmlb
FROM campaigns a
LEFT JOIN send_infos b ON a.id = b.campaign_id
LEFT JOIN contents   c ON a.id = c.campaign_id
WHERE a.id = ?
`

func (s *GormCampaignStore) FetchSendData(ctx context.Context, campaignID string) (*CampaignSendData, error) {
	var rows []CampaignSendData
	if err := s.db.WithContext(ctx).Raw(sqlFetchSendData, campaignID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *GormCampaignStore) FetchRecipients(ctx context.Context, groupID string) ([]models.Recipient, error) {
	var recipients []models.Recipient
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND receiving = ?", groupID, true).
		Order("created_at, id").
		Find(&recipients).Error
	if err != nil {
		return nil, err
	}
	return recipients, nil
}

func (s *GormCampaignStore) FetchFooter(ctx context.Context, groupID string) (Footer, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		return Footer{}, err
	}
	return Footer{
		Company:  group.FooterCompany,
		FromMail: group.FooterFromMail,
		Address:  group.FooterAddress,
		Tel:      group.FooterTel,
	}, nil
}

func (s *GormCampaignStore) UpdateStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	return s.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"status":        status,
			"send_ended_at": time.Now(),
		}).Error
}

func (s *GormCampaignStore) MarkSendStarted(ctx context.Context, campaignID string) error {
	return s.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Update("send_started_at", time.Now()).Error
}

func (s *GormCampaignStore) MarkUnsubscribed(ctx context.Context, recipientID string) error {
	return s.db.WithContext(ctx).Model(&models.Recipient{}).
		Where("id = ?", recipientID).
		Update("receiving", false).Error
}

var _ CampaignStore = (*GormCampaignStore)(nil)
