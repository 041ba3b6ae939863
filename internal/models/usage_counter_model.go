package models

import (
	"time"
)

// FreeScanLimit is the lifetime free-tier allowance per device.
const FreeScanLimit = 1

type UsageCounter struct {
	DeviceID    string     `db:"device_id" json:"device_id"`
	ScansUsed   int        `db:"scans_used" json:"scans_used"`
	LastResetAt *time.Time `db:"last_reset_at" json:"last_reset_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
