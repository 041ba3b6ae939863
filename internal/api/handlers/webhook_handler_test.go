package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

type stubWebhookService struct {
	ingested []string
}

func (s *stubWebhookService) IngestEvent(ctx context.Context, provider, providerEventID, eventType string, payload []byte, apply func(context.Context) error) error {
	s.ingested = append(s.ingested, providerEventID)
	return apply(ctx)
}

func (s *stubWebhookService) HandleStripeEvent(ctx context.Context, event *stripe.Event) error {
	return nil
}

func (s *stubWebhookService) HandleLemonSqueezyEvent(ctx context.Context, event *transfer.LemonSqueezyEvent) error {
	return nil
}

func newWebhookTestApp(secret string) (*fiber.App, *stubWebhookService) {
	cfg := config.Config{}
	cfg.LemonSqueezy.WebhookSecret = secret

	stub := &stubWebhookService{}
	handler := NewWebhookHandler(cfg, stub)

	app := fiber.New()
	app.Post("/webhook/lemonsqueezy", handler.LemonSqueezyWebhook)
	return app, stub
}

func signLemonPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestLemonSqueezyWebhook_RejectsBadSignature(t *testing.T) {
	app, stub := newWebhookTestApp("secret")

	body := []byte(`{"meta": {"event_name": "subscription_created"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set("X-Signature", "deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, stub.ingested)
}

func TestLemonSqueezyWebhook_AcceptsValidSignature(t *testing.T) {
	app, stub := newWebhookTestApp("secret")

	body := []byte(`{"meta": {"event_name": "subscription_created"}, "data": {"id": "42", "attributes": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/lemonsqueezy", bytes.NewReader(body))
	req.Header.Set("X-Signature", signLemonPayload(body, "secret"))
	req.Header.Set("X-Event-Id", "evt-123")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"ls_evt-123"}, stub.ingested)
}

func TestLemonSqueezyWebhook_DerivesIDFromBody(t *testing.T) {
	app, stub := newWebhookTestApp("secret")

	body := []byte(`{"meta": {"event_name": "order_created"}, "data": {"id": "7", "attributes": {}}}`)
	send := func() {
		req := httptest.NewRequest(http.MethodPost, "/webhook/lemonsqueezy", bytes.NewReader(body))
		req.Header.Set("X-Signature", signLemonPayload(body, "secret"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	send()
	send()

	// Same payload, same derived id: the ledger can deduplicate retries.
	require.Len(t, stub.ingested, 2)
	require.Equal(t, stub.ingested[0], stub.ingested[1])
}
