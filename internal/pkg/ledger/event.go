package ledger

import "strings"

// Billing event types understood by the ledger. Providers are normalized to
// these by the billing package before the event reaches ApplyBillingEvent.
const (
	EventCheckoutCompleted   = "checkout_completed"
	EventSubscriptionUpdated = "subscription_updated"
	EventSubscriptionDeleted = "subscription_deleted"
)

// BillingEvent is the provider-agnostic shape of a subscription lifecycle
// notification. At least one of UserID or CustomerID must resolve to an
// account. Delivery is at-least-once and may be out of order; the ledger
// applies events as idempotent last-write-wins sets.
type BillingEvent struct {
	Type       string
	UserID     uint
	CustomerID string
	Status     string
}

// isEntitlingStatus reports whether a subscription status keeps pro access.
// Grace statuses (trialing, past_due) stay entitling until the provider
// resolves them one way or the other.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
