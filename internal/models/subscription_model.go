package models

import (
	"time"
)

// Subscription statuses we act on. The status column is an open set:
// provider-specific values are stored verbatim.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

type Subscription struct {
	ID                     int64      `db:"id" json:"id"`
	DeviceID               string     `db:"device_id" json:"device_id"`
	Provider               string     `db:"provider" json:"provider"`
	ProviderCustomerID     string     `db:"provider_customer_id" json:"provider_customer_id"`
	ProviderSubscriptionID string     `db:"provider_subscription_id" json:"provider_subscription_id"`
	Status                 string     `db:"status" json:"status"`
	Plan                   string     `db:"plan" json:"plan,omitempty"`
	CurrentPeriodEnd       time.Time  `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd      *time.Time `db:"cancel_at_period_end" json:"cancel_at_period_end,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// IsEntitling reports whether this row grants unlimited scans at the given time.
func (s *Subscription) IsEntitling(now time.Time) bool {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusTrialing {
		return false
	}
	return s.CurrentPeriodEnd.After(now)
}
