package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PawTalesApp/PawTales/internal/pkg/env"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeClient is a minimal form-encoded REST client for the checkout flow.
// Only the two calls the app needs are implemented; everything else stays on
// the provider side.
type StripeClient struct {
	SecretKey  string
	PriceID    string
	APIBaseURL string

	SuccessURL string
	CancelURL  string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	successURL := strings.TrimSpace(env.GetEnv("STRIPE_SUCCESS_URL", ""))
	cancelURL := strings.TrimSpace(env.GetEnv("STRIPE_CANCEL_URL", ""))
	if successURL == "" && base != "" {
		successURL = base + "/billing/success"
	}
	if cancelURL == "" && base != "" {
		cancelURL = base + "/billing/cancel"
	}

	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		PriceID:    strings.TrimSpace(env.GetEnv("STRIPE_PRO_PRICE_ID", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession starts a subscription checkout for the given user.
// The user id travels as client_reference_id so the completion webhook can
// resolve the local account without a prior customer link.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, userID uint, email string) (*CheckoutSession, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if strings.TrimSpace(c.PriceID) == "" {
		return nil, errors.New("STRIPE_PRO_PRICE_ID is not configured")
	}
	if userID == 0 {
		return nil, errors.New("user id is required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", c.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("client_reference_id", strconv.FormatUint(uint64(userID), 10))
	form.Set("success_url", c.SuccessURL)
	form.Set("cancel_url", c.CancelURL)
	if email != "" {
		form.Set("customer_email", email)
	}

	body, err := c.postForm(ctx, "/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var out struct {
		ID       string `json:"id"`
		URL      string `json:"url"`
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("stripe checkout session returned empty url")
	}
	return &CheckoutSession{ID: out.ID, URL: out.URL, CustomerID: out.Customer}, nil
}

// CreatePortalSession returns a billing-portal URL where the customer can
// cancel or update their subscription.
func (c *StripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return "", errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if strings.TrimSpace(customerID) == "" {
		return "", errors.New("customer id is required")
	}

	form := url.Values{}
	form.Set("customer", customerID)
	if returnURL != "" {
		form.Set("return_url", returnURL)
	}

	body, err := c.postForm(ctx, "/billing_portal/sessions", form)
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", errors.New("stripe portal session returned empty url")
	}
	return out.URL, nil
}

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.SecretKey, "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe request %s failed: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	return body, nil
}

// IsSubscriptionEvent reports whether an event type affects entitlement state.
func IsSubscriptionEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "checkout.session.completed", "customer.subscription.updated", "customer.subscription.deleted":
		return true
	default:
		return false
	}
}

// ParseWebhookEvent normalizes a raw provider webhook payload into the
// ledger's provider-agnostic billing event.
func ParseWebhookEvent(payload []byte) (ledger.BillingEvent, error) {
	var raw struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID                string `json:"id"`
				Customer          string `json:"customer"`
				ClientReferenceID string `json:"client_reference_id"`
				Status            string `json:"status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ledger.BillingEvent{}, err
	}

	obj := raw.Data.Object
	ev := ledger.BillingEvent{
		CustomerID: strings.TrimSpace(obj.Customer),
		Status:     strings.TrimSpace(obj.Status),
	}

	switch strings.ToLower(strings.TrimSpace(raw.Type)) {
	case "checkout.session.completed":
		ev.Type = ledger.EventCheckoutCompleted
		if ref := strings.TrimSpace(obj.ClientReferenceID); ref != "" {
			id, err := strconv.ParseUint(ref, 10, 64)
			if err != nil {
				return ledger.BillingEvent{}, fmt.Errorf("invalid client_reference_id %q: %w", ref, err)
			}
			ev.UserID = uint(id)
		}
	case "customer.subscription.updated":
		ev.Type = ledger.EventSubscriptionUpdated
	case "customer.subscription.deleted":
		ev.Type = ledger.EventSubscriptionDeleted
	default:
		return ledger.BillingEvent{}, fmt.Errorf("unsupported webhook event type %q", raw.Type)
	}

	if ev.UserID == 0 && ev.CustomerID == "" {
		return ledger.BillingEvent{}, errors.New("webhook payload carries no user reference")
	}
	return ev, nil
}
