package models

// Where a provider API key comes from.
const (
	KeySourceUser        = "user"
	KeySourceEnvironment = "environment"
	KeySourceNone        = "none"
)

// CredentialStatus describes a provider key without revealing it.
type CredentialStatus struct {
	Provider    string `json:"provider"`
	Configured  bool   `json:"configured"`
	Source      string `json:"source"`
	MaskedKey   string `json:"masked_key,omitempty"`
	RequiresKey bool   `json:"requires_key"`
}

// SetCredentialRequest stores an API key for a provider.
type SetCredentialRequest struct {
	APIKey string `json:"api_key"`
}
