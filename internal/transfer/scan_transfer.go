package transfer

// ScanResult wraps the vision provider's analysis. The analysis payload is
// opaque to this backend.
type ScanResult struct {
	Analysis string     `json:"analysis"`
	Usage    *ScanUsage `json:"usage,omitempty"`
	ImageKey string     `json:"imageKey,omitempty"`
	Model    string     `json:"model"`
}
