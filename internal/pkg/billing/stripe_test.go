package billing

import (
	"testing"

	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSubscriptionEvent(t *testing.T) {
	for _, eventType := range []string{
		"checkout.session.completed",
		"customer.subscription.updated",
		"customer.subscription.deleted",
		"Checkout.Session.Completed",
	} {
		assert.True(t, IsSubscriptionEvent(eventType), eventType)
	}
	for _, eventType := range []string{"invoice.paid", "charge.refunded", ""} {
		assert.False(t, IsSubscriptionEvent(eventType), eventType)
	}
}

func TestParseWebhookEventCheckout(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "customer": "cus_123", "client_reference_id": "42"}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventCheckoutCompleted, ev.Type)
	assert.Equal(t, uint(42), ev.UserID)
	assert.Equal(t, "cus_123", ev.CustomerID)
}

func TestParseWebhookEventSubscriptionUpdated(t *testing.T) {
	payload := []byte(`{
		"type": "customer.subscription.updated",
		"data": {"object": {"id": "sub_1", "customer": "cus_123", "status": "past_due"}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventSubscriptionUpdated, ev.Type)
	assert.Equal(t, uint(0), ev.UserID)
	assert.Equal(t, "cus_123", ev.CustomerID)
	assert.Equal(t, "past_due", ev.Status)
}

func TestParseWebhookEventSubscriptionDeleted(t *testing.T) {
	payload := []byte(`{
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_999", "status": "canceled"}}
	}`)

	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, ledger.EventSubscriptionDeleted, ev.Type)
	assert.Equal(t, "cus_999", ev.CustomerID)
}

func TestParseWebhookEventRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "unsupported type", payload: `{"type":"invoice.paid","data":{"object":{"customer":"cus_1"}}}`},
		{name: "no user reference", payload: `{"type":"customer.subscription.deleted","data":{"object":{}}}`},
		{name: "bad reference id", payload: `{"type":"checkout.session.completed","data":{"object":{"client_reference_id":"abc"}}}`},
		{name: "not json", payload: `42 chapters of nonsense`},
	}

	for _, tt := range tests {
		_, err := ParseWebhookEvent([]byte(tt.payload))
		assert.Error(t, err, tt.name)
	}
}
