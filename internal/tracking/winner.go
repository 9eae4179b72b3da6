package tracking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailflare/internal/models"
	"mailflare/internal/store"
)

// WinnerSelector decides which A/B variant performed better, counting
// distinct recipients with a recorded open for each variant's send log.
type WinnerSelector struct {
	store  store.TrackingStore
	logger *zap.Logger
}

func NewWinnerSelector(s store.TrackingStore, logger *zap.Logger) *WinnerSelector {
	return &WinnerSelector{store: s, logger: logger}
}

// PickWinner is a simple majority rule evaluated once at the scheduled
// winner-phase time. A tie goes to A.
func (s *WinnerSelector) PickWinner(ctx context.Context, campaignID string) (models.Variant, error) {
	opensA, err := s.store.CountVariantOpens(ctx, campaignID, models.VariantA)
	if err != nil {
		return "", fmt.Errorf("failed to count variant A opens: %w", err)
	}
	opensB, err := s.store.CountVariantOpens(ctx, campaignID, models.VariantB)
	if err != nil {
		return "", fmt.Errorf("failed to count variant B opens: %w", err)
	}

	winner := models.VariantA
	if opensB > opensA {
		winner = models.VariantB
	}
	s.logger.Info("picked A/B winner",
		zap.String("campaign_id", campaignID),
		zap.Int64("opens_a", opensA),
		zap.Int64("opens_b", opensB),
		zap.String("winner", string(winner)),
	)
	return winner, nil
}
