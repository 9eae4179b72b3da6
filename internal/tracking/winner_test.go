package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailflare/internal/models"
)

func TestPickWinnerBWhenStrictlyAhead(t *testing.T) {
	store := newFakeTrackingStore()
	store.variantOpen[models.VariantA] = 3
	store.variantOpen[models.VariantB] = 4
	s := NewWinnerSelector(store, zap.NewNop())

	winner, err := s.PickWinner(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.VariantB, winner)
}

func TestPickWinnerTieGoesToA(t *testing.T) {
	store := newFakeTrackingStore()
	store.variantOpen[models.VariantA] = 5
	store.variantOpen[models.VariantB] = 5
	s := NewWinnerSelector(store, zap.NewNop())

	winner, err := s.PickWinner(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.VariantA, winner)
}

func TestPickWinnerNoOpensGoesToA(t *testing.T) {
	store := newFakeTrackingStore()
	s := NewWinnerSelector(store, zap.NewNop())

	winner, err := s.PickWinner(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.VariantA, winner)
}
