package tracking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mailflare/internal/models"
	"mailflare/internal/store"
)

// Recorder stores open/click/unsubscribe events exactly once per
// (type, campaign, group, recipient, url). Repeats refresh the existing
// row's timestamp. Winner selection counts distinct recipients, so the
// dedup here is what keeps repeated opens from inflating a variant.
type Recorder struct {
	store  store.TrackingStore
	logger *zap.Logger
}

func NewRecorder(s store.TrackingStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: s, logger: logger}
}

// Record is race-safe without a transactional select: try the update first,
// insert when nothing matched, and when the insert loses a concurrent race
// on the uniqueness constraint fall back to the update once more.
func (r *Recorder) Record(ctx context.Context, event *models.TrackingEvent) error {
	touched, err := r.store.Touch(ctx, event.Type, event.CampaignID, event.GroupID, event.RecipientID, event.URL)
	if err != nil {
		return fmt.Errorf("failed to touch tracking event: %w", err)
	}
	if touched > 0 {
		return nil
	}

	err = r.store.Insert(ctx, event)
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.logger.Debug("tracking insert lost dedup race, retrying touch",
			zap.String("campaign_id", event.CampaignID),
			zap.String("recipient_id", event.RecipientID),
			zap.String("type", string(event.Type)),
		)
		if _, err := r.store.Touch(ctx, event.Type, event.CampaignID, event.GroupID, event.RecipientID, event.URL); err != nil {
			return fmt.Errorf("failed to touch tracking event after race: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to insert tracking event: %w", err)
}
