package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v72"
	portalsession "github.com/stripe/stripe-go/v72/billingportal/session"
	"github.com/stripe/stripe-go/v72/checkout/session"

	config "github.com/JuacoStudios/formai-backend/configs"
	"github.com/JuacoStudios/formai-backend/internal/models"
	"github.com/JuacoStudios/formai-backend/internal/repository"
	"github.com/JuacoStudios/formai-backend/internal/transfer"
)

const lemonCheckoutURL = "https://api.lemonsqueezy.com/v1/checkouts"

type CheckoutService interface {
	CreateStripeCheckout(ctx context.Context, deviceID, plan string) (*transfer.CheckoutResponse, error)
	CreateStripePortal(ctx context.Context, deviceID string) (*transfer.PortalResponse, error)
	CreateLemonSqueezyCheckout(ctx context.Context, deviceID, plan string) (*transfer.CheckoutResponse, error)
}

type checkoutService struct {
	cfg config.Config
	s   repository.SubscriptionRepository
}

func NewCheckoutService(cfg config.Config, s repository.SubscriptionRepository) CheckoutService {
	stripe.Key = cfg.Stripe.SecretKey
	return &checkoutService{
		cfg: cfg,
		s:   s,
	}
}

// CreateStripeCheckout opens a subscription checkout session. The device id
// rides along as client_reference_id so the completed-checkout webhook can
// link the purchase back to the device.
func (s *checkoutService) CreateStripeCheckout(ctx context.Context, deviceID, plan string) (*transfer.CheckoutResponse, error) {
	priceID, err := s.stripePrice(plan)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(s.cfg.FrontendURL + "/payment-success"),
		CancelURL:          stripe.String(s.cfg.FrontendURL + "/payment-canceled"),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID:  stripe.String(deviceID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("device_id", deviceID)

	sess, err := session.New(params)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("creating checkout session failed: %w", err)
	}

	return &transfer.CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}

// CreateStripePortal opens a billing portal session for the device's Stripe
// customer. Requires a subscription on record.
func (s *checkoutService) CreateStripePortal(ctx context.Context, deviceID string) (*transfer.PortalResponse, error) {
	subscription, found, err := s.s.GetActiveByDeviceID(ctx, deviceID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("fetching subscription failed: %w", err)
	}
	if !found || subscription.Provider != ProviderStripe || subscription.ProviderCustomerID == "" {
		return nil, fmt.Errorf("no stripe subscription for device: %w", repository.ErrNotFound)
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(subscription.ProviderCustomerID),
		ReturnURL: stripe.String(s.cfg.FrontendURL + "/portal-return"),
	}
	ps, err := portalsession.New(params)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("creating portal session failed: %w", err)
	}

	return &transfer.PortalResponse{URL: ps.URL}, nil
}

// CreateLemonSqueezyCheckout creates a hosted checkout via the Lemon Squeezy
// REST API, carrying the device id in checkout custom data.
func (s *checkoutService) CreateLemonSqueezyCheckout(ctx context.Context, deviceID, plan string) (*transfer.CheckoutResponse, error) {
	variantID, err := s.lemonVariant(plan)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"custom": map[string]any{
						"device_id": deviceID,
					},
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": s.cfg.LemonSqueezy.StoreID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": variantID},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lemonCheckoutURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.LemonSqueezy.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("creating lemonsqueezy checkout failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lemonsqueezy checkout returned status %d", resp.StatusCode)
	}

	var checkout transfer.LemonSqueezyCheckout
	if err := json.NewDecoder(resp.Body).Decode(&checkout); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("decoding checkout response failed: %w", err)
	}

	return &transfer.CheckoutResponse{URL: checkout.Data.Attributes.URL}, nil
}

func (s *checkoutService) stripePrice(plan string) (string, error) {
	switch plan {
	case models.PlanAnnual:
		return s.cfg.Stripe.PriceAnnual, nil
	case models.PlanMonthly, "":
		return s.cfg.Stripe.PriceMonthly, nil
	default:
		return "", fmt.Errorf("unknown plan %q", plan)
	}
}

func (s *checkoutService) lemonVariant(plan string) (string, error) {
	switch plan {
	case models.PlanAnnual:
		return s.cfg.LemonSqueezy.VariantAnnual, nil
	case models.PlanMonthly, "":
		return s.cfg.LemonSqueezy.VariantMonthly, nil
	default:
		return "", fmt.Errorf("unknown plan %q", plan)
	}
}
