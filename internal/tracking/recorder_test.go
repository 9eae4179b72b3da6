package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mailflare/internal/models"
)

type eventKey struct {
	Type        models.TrackingType
	CampaignID  string
	GroupID     string
	RecipientID string
	URL         string
}

type fakeTrackingStore struct {
	rows        map[eventKey]int // touch count per stored row
	inserts     int
	insertErr   error
	variantOpen map[models.Variant]int64
}

func newFakeTrackingStore() *fakeTrackingStore {
	return &fakeTrackingStore{
		rows:        make(map[eventKey]int),
		variantOpen: make(map[models.Variant]int64),
	}
}

func (f *fakeTrackingStore) Touch(ctx context.Context, t models.TrackingType, campaignID, groupID, recipientID, url string) (int64, error) {
	key := eventKey{t, campaignID, groupID, recipientID, url}
	if _, ok := f.rows[key]; !ok {
		return 0, nil
	}
	f.rows[key]++
	return 1, nil
}

func (f *fakeTrackingStore) Insert(ctx context.Context, event *models.TrackingEvent) error {
	f.inserts++
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		// The competing recorder's row exists by the time we lose the race
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			key := eventKey{event.Type, event.CampaignID, event.GroupID, event.RecipientID, event.URL}
			f.rows[key] = 0
		}
		return err
	}
	key := eventKey{event.Type, event.CampaignID, event.GroupID, event.RecipientID, event.URL}
	f.rows[key] = 0
	return nil
}

func (f *fakeTrackingStore) CountVariantOpens(ctx context.Context, campaignID string, variant models.Variant) (int64, error) {
	return f.variantOpen[variant], nil
}

func (f *fakeTrackingStore) ListEvents(ctx context.Context, campaignID string, t models.TrackingType) ([]models.TrackingEvent, error) {
	return nil, nil
}

func openEvent() *models.TrackingEvent {
	return &models.TrackingEvent{
		Type:        models.TrackingTypeOpen,
		CampaignID:  "c1",
		GroupID:     "g1",
		RecipientID: "r1",
		URL:         "",
	}
}

func TestRecordInsertsFirstEvent(t *testing.T) {
	store := newFakeTrackingStore()
	r := NewRecorder(store, zap.NewNop())

	require.NoError(t, r.Record(context.Background(), openEvent()))

	assert.Equal(t, 1, store.inserts)
	assert.Len(t, store.rows, 1)
}

func TestRecordRepeatTouchesExistingRow(t *testing.T) {
	store := newFakeTrackingStore()
	r := NewRecorder(store, zap.NewNop())

	require.NoError(t, r.Record(context.Background(), openEvent()))
	require.NoError(t, r.Record(context.Background(), openEvent()))
	require.NoError(t, r.Record(context.Background(), openEvent()))

	// Still one row, inserted once, refreshed twice
	assert.Equal(t, 1, store.inserts)
	assert.Len(t, store.rows, 1)
	key := eventKey{models.TrackingTypeOpen, "c1", "g1", "r1", ""}
	assert.Equal(t, 2, store.rows[key])
}

func TestRecordDistinctURLsAreDistinctEvents(t *testing.T) {
	store := newFakeTrackingStore()
	r := NewRecorder(store, zap.NewNop())

	click := openEvent()
	click.Type = models.TrackingTypeClick
	click.URL = "https://example.com/a"
	require.NoError(t, r.Record(context.Background(), click))

	click2 := openEvent()
	click2.Type = models.TrackingTypeClick
	click2.URL = "https://example.com/b"
	require.NoError(t, r.Record(context.Background(), click2))

	assert.Len(t, store.rows, 2)
}

func TestRecordLostInsertRaceFallsBackToTouch(t *testing.T) {
	store := newFakeTrackingStore()
	store.insertErr = gorm.ErrDuplicatedKey
	r := NewRecorder(store, zap.NewNop())

	require.NoError(t, r.Record(context.Background(), openEvent()))

	assert.Equal(t, 1, store.inserts)
	key := eventKey{models.TrackingTypeOpen, "c1", "g1", "r1", ""}
	assert.Equal(t, 1, store.rows[key])
}

func TestRecordInsertFailurePropagates(t *testing.T) {
	store := newFakeTrackingStore()
	store.insertErr = errors.New("connection lost")
	r := NewRecorder(store, zap.NewNop())

	err := r.Record(context.Background(), openEvent())
	assert.Error(t, err)
}
