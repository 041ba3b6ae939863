package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"

	"github.com/JuacoStudios/formai-backend/internal/models"
	"github.com/JuacoStudios/formai-backend/internal/repository"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

const (
	ProviderStripe       = "stripe"
	ProviderLemonSqueezy = "lemonsqueezy"
)

type WebhookService interface {
	IngestEvent(ctx context.Context, provider, providerEventID, eventType string, payload []byte, apply func(context.Context) error) error
	HandleStripeEvent(ctx context.Context, event *stripe.Event) error
	HandleLemonSqueezyEvent(ctx context.Context, event *transfer.LemonSqueezyEvent) error
}

type webhookService struct {
	w  repository.WebhookEventRepository
	s  repository.SubscriptionRepository
	dm repository.DeviceMapRepository
	d  repository.DeviceRepository
}

func NewWebhookService(
	w repository.WebhookEventRepository,
	s repository.SubscriptionRepository,
	dm repository.DeviceMapRepository,
	d repository.DeviceRepository) WebhookService {
	return &webhookService{
		w:  w,
		s:  s,
		dm: dm,
		d:  d,
	}
}

// IngestEvent applies a provider event at most once. The ledger insert is the
// gate: losing it means the event was already consumed. The row is written
// before apply runs and is kept even when apply fails, so the provider never
// sees a failed delivery and never enters a retry storm; apply defects surface
// in logs only.
func (s *webhookService) IngestEvent(ctx context.Context, provider, providerEventID, eventType string, payload []byte, apply func(context.Context) error) error {
	created, err := s.w.CreateIfNotExists(ctx, &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       eventType,
		Payload:         payload,
	})
	if err != nil {
		return fmt.Errorf("recording webhook event failed: %w", err)
	}
	if !created {
		slog.Info("webhook event already processed", "provider", provider, "event_id", providerEventID)
		return nil
	}

	if err := apply(ctx); err != nil {
		slog.Error("webhook apply failed", "provider", provider, "event_id", providerEventID, "type", eventType, "error", err)
	}
	return nil
}

func (s *webhookService) HandleStripeEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			slog.Warn("malformed checkout session payload", "event_id", event.ID, "error", err)
			return nil
		}
		return s.linkStripeCheckout(ctx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			slog.Warn("malformed subscription payload", "event_id", event.ID, "error", err)
			return nil
		}
		return s.upsertStripeSubscription(ctx, &subscription)

	case "customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			slog.Warn("malformed subscription payload", "event_id", event.ID, "error", err)
			return nil
		}
		// Historical retention: mark canceled, never delete the row.
		return s.markStatus(ctx, ProviderStripe, subscription.ID, models.SubscriptionStatusCanceled)

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil || invoice.Subscription == nil {
			slog.Warn("malformed invoice payload", "event_id", event.ID)
			return nil
		}
		return s.markStatus(ctx, ProviderStripe, invoice.Subscription.ID, models.SubscriptionStatusPastDue)

	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil || invoice.Subscription == nil {
			slog.Warn("malformed invoice payload", "event_id", event.ID)
			return nil
		}
		return s.revivePastDue(ctx, ProviderStripe, invoice.Subscription.ID)

	default:
		// Explicitly ignored; unknown event types are not an error.
		return nil
	}
}

func (s *webhookService) linkStripeCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	deviceID := session.ClientReferenceID
	if deviceID == "" {
		deviceID = session.Metadata["device_id"]
	}
	if deviceID == "" {
		slog.Warn("checkout session carries no device reference", "session", session.ID)
		return nil
	}

	// The purchase may be the device's first durable contact with the backend.
	if err := s.d.Upsert(ctx, deviceID); err != nil {
		return err
	}

	if session.Subscription != nil {
		if err := s.dm.Link(ctx, ProviderStripe, models.SubscriptionKey(session.Subscription.ID), deviceID); err != nil {
			return err
		}
	}
	if session.Customer != nil {
		if err := s.dm.Link(ctx, ProviderStripe, models.CustomerKey(session.Customer.ID), deviceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *webhookService) upsertStripeSubscription(ctx context.Context, subscription *stripe.Subscription) error {
	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}

	deviceID, found, err := s.resolveDevice(ctx, ProviderStripe, subscription.ID, customerID)
	if err != nil {
		return err
	}
	if !found {
		slog.Warn("orphaned subscription event, no device mapping",
			"provider", ProviderStripe, "subscription", subscription.ID, "customer", customerID)
		return nil
	}

	interval := ""
	if subscription.Items != nil && len(subscription.Items.Data) > 0 {
		if price := subscription.Items.Data[0].Price; price != nil && price.Recurring != nil {
			interval = string(price.Recurring.Interval)
		}
	}

	var cancelAt *time.Time
	if subscription.CancelAt > 0 {
		t := time.Unix(subscription.CancelAt, 0)
		cancelAt = &t
	} else if subscription.CancelAtPeriodEnd {
		t := time.Unix(subscription.CurrentPeriodEnd, 0)
		cancelAt = &t
	}

	return s.s.Upsert(ctx, &models.Subscription{
		DeviceID:               deviceID,
		Provider:               ProviderStripe,
		ProviderCustomerID:     customerID,
		ProviderSubscriptionID: subscription.ID,
		Status:                 string(subscription.Status),
		Plan:                   PlanFromInterval(interval),
		CurrentPeriodEnd:       time.Unix(subscription.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:      cancelAt,
	})
}

func (s *webhookService) HandleLemonSqueezyEvent(ctx context.Context, event *transfer.LemonSqueezyEvent) error {
	attrs := &event.Data.Attributes
	customerID := strconv.Itoa(attrs.CustomerID)
	deviceID := event.Meta.CustomData.DeviceID

	switch event.Meta.EventName {
	case "order_created":
		// Checkout completion. Customer mapping only at this point; the
		// subscription id arrives with subscription_created.
		if deviceID == "" {
			slog.Warn("order carries no device reference", "order", event.Data.ID)
			return nil
		}
		if err := s.d.Upsert(ctx, deviceID); err != nil {
			return err
		}
		return s.dm.Link(ctx, ProviderLemonSqueezy, models.CustomerKey(customerID), deviceID)

	case "subscription_created", "subscription_updated", "subscription_resumed",
		"subscription_paused", "subscription_unpaused", "subscription_cancelled":
		subscriptionID := event.Data.ID

		// Lemon Squeezy forwards checkout custom data on subscription events,
		// so the mapping can be established here as well (duplicate-safe).
		if deviceID != "" {
			if err := s.d.Upsert(ctx, deviceID); err != nil {
				return err
			}
			if err := s.dm.Link(ctx, ProviderLemonSqueezy, models.SubscriptionKey(subscriptionID), deviceID); err != nil {
				return err
			}
			if err := s.dm.Link(ctx, ProviderLemonSqueezy, models.CustomerKey(customerID), deviceID); err != nil {
				return err
			}
		} else {
			var found bool
			var err error
			deviceID, found, err = s.resolveDevice(ctx, ProviderLemonSqueezy, subscriptionID, customerID)
			if err != nil {
				return err
			}
			if !found {
				slog.Warn("orphaned subscription event, no device mapping",
					"provider", ProviderLemonSqueezy, "subscription", subscriptionID, "customer", customerID)
				return nil
			}
		}

		periodEnd := time.Time{}
		if attrs.RenewsAt != nil {
			periodEnd = *attrs.RenewsAt
		} else if attrs.EndsAt != nil {
			periodEnd = *attrs.EndsAt
		}

		return s.s.Upsert(ctx, &models.Subscription{
			DeviceID:               deviceID,
			Provider:               ProviderLemonSqueezy,
			ProviderCustomerID:     customerID,
			ProviderSubscriptionID: subscriptionID,
			Status:                 normalizeLemonStatus(attrs.Status),
			Plan:                   PlanFromInterval(attrs.BillingInterval),
			CurrentPeriodEnd:       periodEnd,
			CancelAtPeriodEnd:      attrs.EndsAt,
		})

	case "subscription_expired":
		return s.markStatus(ctx, ProviderLemonSqueezy, event.Data.ID, models.SubscriptionStatusCanceled)

	case "subscription_payment_failed":
		return s.markStatus(ctx, ProviderLemonSqueezy, strconv.Itoa(attrs.SubscriptionID), models.SubscriptionStatusPastDue)

	case "subscription_payment_success":
		return s.revivePastDue(ctx, ProviderLemonSqueezy, strconv.Itoa(attrs.SubscriptionID))

	default:
		return nil
	}
}

// resolveDevice routes a provider-side event back to a device: subscription
// key first, customer key as fallback.
func (s *webhookService) resolveDevice(ctx context.Context, provider, subscriptionID, customerID string) (string, bool, error) {
	if subscriptionID != "" {
		deviceID, found, err := s.dm.Resolve(ctx, provider, models.SubscriptionKey(subscriptionID))
		if err != nil {
			return "", false, err
		}
		if found {
			return deviceID, true, nil
		}
	}
	if customerID != "" {
		return s.dm.Resolve(ctx, provider, models.CustomerKey(customerID))
	}
	return "", false, nil
}

func (s *webhookService) markStatus(ctx context.Context, provider, providerSubscriptionID, status string) error {
	if providerSubscriptionID == "" || providerSubscriptionID == "0" {
		slog.Warn("event carries no subscription id", "provider", provider)
		return nil
	}
	updated, err := s.s.UpdateStatus(ctx, provider, providerSubscriptionID, status)
	if err != nil {
		return err
	}
	if !updated {
		slog.Warn("status update for unknown subscription", "provider", provider, "subscription", providerSubscriptionID)
	}
	return nil
}

// revivePastDue transitions past_due back to active on successful payment.
// Any other state, canceled included, is left alone; only an explicit
// subscription update can revive a canceled row.
func (s *webhookService) revivePastDue(ctx context.Context, provider, providerSubscriptionID string) error {
	subscription, found, err := s.s.GetByProviderSubscriptionID(ctx, provider, providerSubscriptionID)
	if err != nil {
		return err
	}
	if !found || subscription.Status != models.SubscriptionStatusPastDue {
		return nil
	}
	return s.markStatus(ctx, provider, providerSubscriptionID, models.SubscriptionStatusActive)
}

// PlanFromInterval derives the plan label from a provider billing interval.
func PlanFromInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "month", "monthly":
		return models.PlanMonthly
	case "year", "yearly", "annual":
		return models.PlanAnnual
	default:
		return ""
	}
}

func normalizeLemonStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "on_trial":
		return models.SubscriptionStatusTrialing
	case "cancelled":
		return models.SubscriptionStatusCanceled
	default:
		return status
	}
}

// VerifyLemonSqueezySignature checks the X-Signature header (hex HMAC-SHA256
// of the raw body).
func VerifyLemonSqueezySignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}
