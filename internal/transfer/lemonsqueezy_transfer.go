package transfer

import "time"

// LemonSqueezyEvent is the webhook envelope Lemon Squeezy posts. The event
// name lives in meta, the subscription/order lives in data (JSON:API style).
type LemonSqueezyEvent struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			DeviceID string `json:"device_id"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			StoreID         int        `json:"store_id"`
			CustomerID      int        `json:"customer_id"`
			OrderID         int        `json:"order_id"`
			SubscriptionID  int        `json:"subscription_id"`
			Status          string     `json:"status"`
			VariantID       int        `json:"variant_id"`
			VariantName     string     `json:"variant_name"`
			BillingInterval string     `json:"billing_interval"`
			RenewsAt        *time.Time `json:"renews_at"`
			EndsAt          *time.Time `json:"ends_at"`
			CreatedAt       time.Time  `json:"created_at"`
			UpdatedAt       time.Time  `json:"updated_at"`
		} `json:"attributes"`
	} `json:"data"`
}

// LemonSqueezyCheckout is the subset of the checkout creation response we
// surface to clients.
type LemonSqueezyCheckout struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}
