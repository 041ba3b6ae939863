package models

import (
	"time"
)

// WebhookEvent is the idempotency ledger. A row means the provider event id
// has already been consumed; redeliveries must be no-ops.
type WebhookEvent struct {
	ID              int64     `db:"id" json:"id"`
	Provider        string    `db:"provider" json:"provider"`
	ProviderEventID string    `db:"provider_event_id" json:"provider_event_id"`
	EventType       string    `db:"event_type" json:"event_type"`
	Payload         []byte    `db:"payload" json:"-"`
	ReceivedAt      time.Time `db:"received_at" json:"received_at"`
}
