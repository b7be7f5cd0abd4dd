package domain

import "fmt"

// Credentials holds one exchange's API key and secret. They are supplied by
// the credential store collaborator, passed through for the duration of a
// single trade call, and never retained or persisted by the core.
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// String returns a redacted representation suitable for logging.
func (c Credentials) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("Credentials{key=%s, secret=%s}", redact(c.APIKey), redact(c.APISecret))
}
