package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mailflare/internal/models"
)

// TrackingStore persists deduplicated tracking events and serves the
// winner-selection counts.
type TrackingStore interface {
	// Touch refreshes the timestamp of an existing event and reports how
	// many rows matched. Zero means the event has not been seen yet.
	Touch(ctx context.Context, t models.TrackingType, campaignID, groupID, recipientID, url string) (int64, error)
	// Insert creates a fresh event row. A gorm.ErrDuplicatedKey return
	// means a concurrent recorder won the insert race.
	Insert(ctx context.Context, event *models.TrackingEvent) error
	CountVariantOpens(ctx context.Context, campaignID string, variant models.Variant) (int64, error)
	ListEvents(ctx context.Context, campaignID string, t models.TrackingType) ([]models.TrackingEvent, error)
}

type GormTrackingStore struct {
	db *gorm.DB
}

func NewTrackingStore(db *gorm.DB) *GormTrackingStore {
	return &GormTrackingStore{db: db}
}

func (s *GormTrackingStore) Touch(ctx context.Context, t models.TrackingType, campaignID, groupID, recipientID, url string) (int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.TrackingEvent{}).
		Where("type = ? AND campaign_id = ? AND group_id = ? AND recipient_id = ? AND url = ?",
			t, campaignID, groupID, recipientID, url).
		Update("updated_at", time.Now())
	return tx.RowsAffected, tx.Error
}

func (s *GormTrackingStore) Insert(ctx context.Context, event *models.TrackingEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

const sqlCountVariantOpens = `
SELECT COUNT(DISTINCT t.recipient_id)
  FROM mail_logs l
  JOIN tracking_events t
    ON t.campaign_id = l.campaign_id
   AND t.recipient_id = l.recipient_id
   AND t.type = 'open'
 WHERE l.campaign_id = ?
   AND l.variant = ?
`

func (s *GormTrackingStore) CountVariantOpens(ctx context.Context, campaignID string, variant models.Variant) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(sqlCountVariantOpens, campaignID, variant).Scan(&count).Error
	return count, err
}

func (s *GormTrackingStore) ListEvents(ctx context.Context, campaignID string, t models.TrackingType) ([]models.TrackingEvent, error) {
	query := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("updated_at DESC")
	if t != "" {
		query = query.Where("type = ?", t)
	}
	var events []models.TrackingEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

var _ TrackingStore = (*GormTrackingStore)(nil)
