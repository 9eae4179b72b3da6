package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailflare/internal/models"
	"mailflare/internal/render"
	"mailflare/internal/store"
	"mailflare/internal/tracking"
)

type fakeTrackingStore struct {
	events []models.TrackingEvent
}

func (f *fakeTrackingStore) Touch(ctx context.Context, t models.TrackingType, campaignID, groupID, recipientID, url string) (int64, error) {
	for i := range f.events {
		e := &f.events[i]
		if e.Type == t && e.CampaignID == campaignID && e.GroupID == groupID && e.RecipientID == recipientID && e.URL == url {
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeTrackingStore) Insert(ctx context.Context, event *models.TrackingEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeTrackingStore) CountVariantOpens(ctx context.Context, campaignID string, variant models.Variant) (int64, error) {
	return 0, nil
}

func (f *fakeTrackingStore) ListEvents(ctx context.Context, campaignID string, t models.TrackingType) ([]models.TrackingEvent, error) {
	return f.events, nil
}

type fakeCampaignStore struct {
	unsubscribed []string
}

func (f *fakeCampaignStore) FetchSendData(ctx context.Context, campaignID string) (*store.CampaignSendData, error) {
	return nil, nil
}

func (f *fakeCampaignStore) FetchRecipients(ctx context.Context, groupID string) ([]models.Recipient, error) {
	return nil, nil
}

func (f *fakeCampaignStore) FetchFooter(ctx context.Context, groupID string) (store.Footer, error) {
	return store.Footer{}, nil
}

func (f *fakeCampaignStore) UpdateStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	return nil
}

func (f *fakeCampaignStore) MarkSendStarted(ctx context.Context, campaignID string) error {
	return nil
}

func (f *fakeCampaignStore) MarkUnsubscribed(ctx context.Context, recipientID string) error {
	f.unsubscribed = append(f.unsubscribed, recipientID)
	return nil
}

func newTestHandler() (*TrackingHandler, *fakeTrackingStore, *fakeCampaignStore, *render.TokenCodec) {
	codec := render.NewTokenCodec("test-secret-test-secret", time.Hour)
	events := &fakeTrackingStore{}
	campaigns := &fakeCampaignStore{}
	recorder := tracking.NewRecorder(events, zap.NewNop())
	h := NewTrackingHandler(codec, recorder, events, campaigns, zap.NewNop())
	return h, events, campaigns, codec
}

func doRequest(h echo.HandlerFunc, target string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15) AppleWebKit/605 Safari/605")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h(c)
}

func TestHandleOpenServesPixelAndRecords(t *testing.T) {
	h, events, _, codec := newTestHandler()
	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	rec, err := doRequest(h.HandleOpen, "/t/open?token="+token)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get(echo.HeaderContentType))
	assert.NotEmpty(t, rec.Body.Bytes())

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, models.TrackingTypeOpen, event.Type)
	assert.Equal(t, "c1", event.CampaignID)
	assert.Equal(t, "r1", event.RecipientID)
	assert.Equal(t, "", event.URL)
	assert.Equal(t, "desktop", event.DeviceType)
}

func TestHandleOpenRejectsBadToken(t *testing.T) {
	h, events, _, _ := newTestHandler()

	rec, err := doRequest(h.HandleOpen, "/t/open?token=garbage")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, events.events)
}

func TestHandleClickRedirectsAndRecords(t *testing.T) {
	h, events, _, codec := newTestHandler()
	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	target := "https://example.com/offer"
	rec, err := doRequest(h.HandleClick, "/t/click?token="+token+"&url="+url.QueryEscape(target))
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, target, rec.Header().Get(echo.HeaderLocation))

	require.Len(t, events.events, 1)
	assert.Equal(t, models.TrackingTypeClick, events.events[0].Type)
	assert.Equal(t, target, events.events[0].URL)
}

func TestHandleClickRepeatDoesNotDuplicate(t *testing.T) {
	h, events, _, codec := newTestHandler()
	token, _ := codec.Generate("c1", "g1", "r1")
	target := "/t/click?token=" + token + "&url=" + url.QueryEscape("https://example.com")

	_, err := doRequest(h.HandleClick, target)
	require.NoError(t, err)
	_, err = doRequest(h.HandleClick, target)
	require.NoError(t, err)

	assert.Len(t, events.events, 1)
}

func TestHandleUnsubscribeOptsRecipientOut(t *testing.T) {
	h, events, campaigns, codec := newTestHandler()
	token, err := codec.Generate("c1", "g1", "r1")
	require.NoError(t, err)

	rec, err := doRequest(h.HandleUnsubscribe, "/t/unsubscribe?token="+token)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsubscribed")
	assert.Equal(t, []string{"r1"}, campaigns.unsubscribed)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.TrackingTypeUnsubscribe, events.events[0].Type)
}
