package models

// RuntimeInfo describes the backend runtime settings that clients may need.
// It is intentionally small and stable.
type RuntimeInfo struct {
	HTTPBaseURL string `json:"http_base_url"`
	Port        int    `json:"port"`
	Model       string `json:"model"`
	MockMode    bool   `json:"mock_mode"`
	Search      bool   `json:"search"`
}
