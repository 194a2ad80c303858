package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckoutSession is the subset of a provider checkout session the app needs:
// where to send the user, and how to correlate the completion webhook back to
// the local account.
type CheckoutSession struct {
	ID         string
	URL        string
	CustomerID string
}
