package transfer

type CheckoutRequest struct {
	Plan string `json:"plan"`
}

type CheckoutResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	URL       string `json:"url"`
}

type PortalResponse struct {
	URL string `json:"url"`
}

type PaywallResponse struct {
	RequirePaywall bool   `json:"requirePaywall"`
	Reason         string `json:"reason"`
}
