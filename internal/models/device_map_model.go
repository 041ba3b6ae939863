package models

import (
	"time"
)

// DeviceMap correlates provider-side keys ("subscription:<id>", "customer:<id>")
// to the device that initiated the purchase. Webhook events carry provider ids,
// not device ids; this table routes them back.
type DeviceMap struct {
	ID        int64     `db:"id" json:"id"`
	Provider  string    `db:"provider" json:"provider"`
	Key       string    `db:"key" json:"key"`
	DeviceID  string    `db:"device_id" json:"device_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func SubscriptionKey(providerSubscriptionID string) string {
	return "subscription:" + providerSubscriptionID
}

func CustomerKey(providerCustomerID string) string {
	return "customer:" + providerCustomerID
}
