package billing

import (
	"context"
	"strings"
	"testing"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepository struct {
	events    []*models.BillingWebhookEvent
	processed map[uint]string
}

func newFakeEventRepository() *fakeEventRepository {
	return &fakeEventRepository{processed: make(map[uint]string)}
}

func (f *fakeEventRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	for _, existing := range f.events {
		if existing.Provider == event.Provider && existing.ProviderEventID == event.ProviderEventID {
			return false, existing, nil
		}
	}
	event.ID = uint(len(f.events) + 1)
	f.events = append(f.events, event)
	return true, event, nil
}

func (f *fakeEventRepository) MarkWebhookProcessed(id uint, processingError string) error {
	f.processed[id] = processingError
	return nil
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeEventRepository()
	svc := NewService(repo)
	ctx := context.Background()

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, stored)

	created, replay, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, replay.ID)
	assert.Len(t, repo.events, 1)
}

func TestRecordWebhookEventHashFallback(t *testing.T) {
	svc := NewService(newFakeEventRepository())

	// Deliveries without a provider event id dedupe on a payload hash.
	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:    models.BillingProviderStripe,
		PayloadJSON: `{"type":"customer.subscription.deleted"}`,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(stored.ProviderEventID, "hash:"))
}

func TestRecordWebhookEventRequiresProvider(t *testing.T) {
	svc := NewService(newFakeEventRepository())
	_, _, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{PayloadJSON: "{}"})
	assert.Error(t, err)
}

func TestMarkWebhookProcessed(t *testing.T) {
	repo := newFakeEventRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, stored, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_9",
		PayloadJSON:     "{}",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkWebhookProcessed(ctx, stored.ID, nil))
	assert.Equal(t, "", repo.processed[stored.ID])

	require.NoError(t, svc.MarkWebhookProcessed(ctx, stored.ID, assert.AnError))
	assert.Equal(t, assert.AnError.Error(), repo.processed[stored.ID])

	assert.Error(t, svc.MarkWebhookProcessed(ctx, 0, nil))
}
