package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mailflare/internal/models"
)

// JobStore is the dispatcher's view of the follow-up job table. Claim is the
// concurrency primitive: a conditional update that succeeds for exactly one
// of any number of competing callers.
type JobStore interface {
	SelectDue(ctx context.Context, now time.Time) ([]models.FollowUpJob, error)
	Claim(ctx context.Context, campaignID string, from []models.JobStatus, to models.JobStatus) (bool, error)
	SetStatus(ctx context.Context, campaignID string, status models.JobStatus) error
	InsertIfAbsent(ctx context.Context, job *models.FollowUpJob) (bool, error)
}

type GormJobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *GormJobStore {
	return &GormJobStore{db: db}
}

func (s *GormJobStore) SelectDue(ctx context.Context, now time.Time) ([]models.FollowUpJob, error) {
	var jobs []models.FollowUpJob
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.JobStatus{models.JobStatusPending, models.JobStatusPartial}).
		Where("(execute_at IS NOT NULL AND execute_at <= ?) OR (execute2_at IS NOT NULL AND execute2_at <= ?)", now, now).
		Order("created_at").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Claim advances the job's status only if it is still in one of the given
// source states. Zero rows affected means another worker got there first;
// that is the expected outcome of a lost race, not an error.
func (s *GormJobStore) Claim(ctx context.Context, campaignID string, from []models.JobStatus, to models.JobStatus) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&models.FollowUpJob{}).
		Where("campaign_id = ? AND status IN ?", campaignID, from).
		Update("status", to)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (s *GormJobStore) SetStatus(ctx context.Context, campaignID string, status models.JobStatus) error {
	return s.db.WithContext(ctx).Model(&models.FollowUpJob{}).
		Where("campaign_id = ?", campaignID).
		Update("status", status).Error
}

// InsertIfAbsent relies on the unique index on campaign_id; a conflicting
// row means the follow-up is already scheduled and the insert is a no-op.
func (s *GormJobStore) InsertIfAbsent(ctx context.Context, job *models.FollowUpJob) (bool, error) {
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "campaign_id"}},
			DoNothing: true,
		}).
		Create(job)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

var _ JobStore = (*GormJobStore)(nil)
