package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v72/webhook"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/internal/service"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

type WebhookHandler struct {
	cfg config.Config
	s   service.WebhookService
}

func NewWebhookHandler(cfg config.Config, service service.WebhookService) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, s: service}
}

// StripeWebhook verifies the delivery signature over the raw body and hands
// the event to ingestion. Apply failures never fail the delivery; only a bad
// signature (400) or a ledger write failure (500, safe to redeliver because
// nothing was applied) do.
func (h *WebhookHandler) StripeWebhook(c *fiber.Ctx) error {
	body := c.Body()

	event, err := webhook.ConstructEvent(body, c.Get("Stripe-Signature"), h.cfg.Stripe.WebhookSecret)
	if err != nil {
		slog.Info(err.Error())
		return c.SendStatus(fiber.StatusBadRequest)
	}

	err = h.s.IngestEvent(c.Context(), service.ProviderStripe, event.ID, string(event.Type), body,
		func(ctx context.Context) error {
			return h.s.HandleStripeEvent(ctx, &event)
		})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *WebhookHandler) LemonSqueezyWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if !service.VerifyLemonSqueezySignature(body, c.Get("X-Signature"), h.cfg.LemonSqueezy.WebhookSecret) {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	var event transfer.LemonSqueezyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		slog.Info(err.Error())
		return c.SendStatus(fiber.StatusBadRequest)
	}

	err := h.s.IngestEvent(c.Context(), service.ProviderLemonSqueezy, lemonEventID(c, body), event.Meta.EventName, body,
		func(ctx context.Context) error {
			return h.s.HandleLemonSqueezyEvent(ctx, &event)
		})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

// lemonEventID prefers the delivery id header; Lemon Squeezy does not embed an
// event id in the payload, so redeliveries without the header fall back to a
// hash of the raw body, which is stable across retries of the same event.
func lemonEventID(c *fiber.Ctx, body []byte) string {
	if id := c.Get("X-Event-Id"); id != "" {
		return "ls_" + id
	}
	sum := sha256.Sum256(body)
	return "ls_" + hex.EncodeToString(sum[:])
}
