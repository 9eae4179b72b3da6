package store

import (
	"context"

	"gorm.io/gorm"

	"mailflare/internal/models"
)

// SendLog records delivered messages and answers "who already got mail for
// this campaign", the basis of every phase-2 exclusion set.
type SendLog interface {
	Record(ctx context.Context, entry *models.MailLog) error
	SentRecipientIDs(ctx context.Context, campaignID string) (map[string]struct{}, error)
	SentRecipientIDsByVariant(ctx context.Context, campaignID string, variant models.Variant) (map[string]struct{}, error)
}

type GormSendLog struct {
	db *gorm.DB
}

func NewSendLog(db *gorm.DB) *GormSendLog {
	return &GormSendLog{db: db}
}

func (s *GormSendLog) Record(ctx context.Context, entry *models.MailLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormSendLog) SentRecipientIDs(ctx context.Context, campaignID string) (map[string]struct{}, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.MailLog{}).
		Distinct("recipient_id").
		Where("campaign_id = ?", campaignID).
		Pluck("recipient_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func (s *GormSendLog) SentRecipientIDsByVariant(ctx context.Context, campaignID string, variant models.Variant) (map[string]struct{}, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.MailLog{}).
		Distinct("recipient_id").
		Where("campaign_id = ? AND variant = ?", campaignID, variant).
		Pluck("recipient_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ SendLog = (*GormSendLog)(nil)
