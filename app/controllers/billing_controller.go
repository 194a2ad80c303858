package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/PawTalesApp/PawTales/app/models"
	"github.com/PawTalesApp/PawTales/internal/pkg/billing"
	"github.com/PawTalesApp/PawTales/internal/pkg/cache"
	"github.com/PawTalesApp/PawTales/internal/pkg/constants"
	"github.com/PawTalesApp/PawTales/internal/pkg/database"
	"github.com/PawTalesApp/PawTales/internal/pkg/entitlements"
	"github.com/PawTalesApp/PawTales/internal/pkg/env"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/session"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// HandleCheckoutStart redirects the user into the hosted checkout for the
// pro subscription.
func HandleCheckoutStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load your account"}).Redirect(constants.PricingRoute)
	}

	client := billing.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	checkout, err := client.CreateCheckoutSession(ctx, user.ID, user.Email)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout could not be started"}).Redirect(constants.PricingRoute)
	}

	return c.Redirect(checkout.URL, fiber.StatusSeeOther)
}

// HandleBillingPortal sends subscribers to the provider's self-service portal.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	svc := ledger.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	ent, err := svc.Snapshot(ctx, userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not load your subscription"}).Redirect(constants.PricingRoute)
	}
	if !ent.HasBillingCustomer() {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "No active subscription found"}).Redirect(constants.PricingRoute)
	}

	client := billing.NewStripeClientFromEnv()
	returnURL := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:3000") + constants.PricingRoute
	portalURL, err := client.CreatePortalSession(ctx, ent.BillingCustomerID, returnURL)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing portal could not be opened"}).Redirect(constants.PricingRoute)
	}

	return c.Redirect(portalURL, fiber.StatusSeeOther)
}

func HandleCheckoutSuccess(c *fiber.Ctx) error {
	// Drop the cached plan so the next request re-reads the upgraded state.
	// The webhook is the source of truth and may still be in flight.
	_ = session.DeleteSessionValue(c, usercontext.KeyUserPlan)

	fm := fiber.Map{
		"type":    "success",
		"message": "Thanks for upgrading! Your pro plan will be active in a moment.",
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleBillingResync re-reads the entitlement from the database and
// refreshes the session-cached plan. Escape hatch for users whose webhook
// arrived while they were logged in with a stale session.
func HandleBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	svc := ledger.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ent, err := svc.Snapshot(ctx, userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Plan resync failed"}).Redirect(constants.PricingRoute)
	}

	plan := string(entitlements.NormalizePlan(ent.Plan))
	_ = session.SetSessionValue(c, usercontext.KeyUserPlan, plan)
	_ = cache.Delete(usercontext.PlanCacheStaleKey(userCtx.UserID))

	fm := fiber.Map{"type": "success", "message": "Plan refreshed. Active plan: " + plan}
	return flash.WithSuccess(c, fm).Redirect(constants.PricingRoute)
}

func HandleCheckoutCancel(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "info",
		"message": "Checkout cancelled.",
	}
	return flash.WithInfo(c, fm).Redirect(constants.PricingRoute)
}

type stripeEventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// HandleStripeWebhook ingests billing provider events. Deliveries are
// at-least-once and unordered: every event is persisted idempotently first,
// then applied to the entitlement ledger. Events that reference no known
// account are acknowledged anyway so the provider stops retrying.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	var envelope stripeEventEnvelope
	_ = json.Unmarshal(rawBody, &envelope)

	svc := billing.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := billing.VerifyStripeWebhookSignature(rawBody, signature, secret)
	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: envelope.ID,
		EventType:       envelope.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if !billing.IsSubscriptionEvent(envelope.Type) {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	ev, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	entSvc := ledger.NewServiceFromDB(database.GetDB())
	ent, err := entSvc.ApplyBillingEvent(ctx, ev)
	if err != nil {
		_ = svc.MarkWebhookProcessed(ctx, stored.ID, err)
		if errors.Is(err, ledger.ErrUnresolvedUser) {
			// ACK: the account may never exist here (test events, deleted
			// users). Retrying will not resolve it.
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_apply_failed"})
	}

	// Logged-in sessions cache the plan; flag it stale so the change is
	// picked up on the user's next request.
	if ent != nil {
		_ = cache.Set(usercontext.PlanCacheStaleKey(ent.UserID), "1", 24*time.Hour)
	}

	_ = svc.MarkWebhookProcessed(ctx, stored.ID, nil)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
