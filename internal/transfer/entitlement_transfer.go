package transfer

import "time"

// Entitlement is returned verbatim as JSON by the entitlement endpoint.
type Entitlement struct {
	Active    bool       `json:"active"`
	ScansUsed int        `json:"scansUsed"`
	Limit     int        `json:"limit"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ScanGate is the gate decision. Denial is a normal outcome, not an error.
type ScanGate struct {
	CanScan bool   `json:"canScan"`
	Reason  string `json:"reason,omitempty"`
}

const ReasonLimitExceeded = "limit_exceeded"

type ScanUsage struct {
	ScansUsed int `json:"scansUsed"`
	Limit     int `json:"limit"`
}
