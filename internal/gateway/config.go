package gateway

import (
	"errors"
	"strings"
	"time"
)

// Config contains configuration for the Paystack provider.
type Config struct {
	// SecretKey is the Paystack secret key (sk_test_... or sk_live_...).
	// Also the key webhook signatures are computed with.
	SecretKey string

	// BaseURL is the API root. Overridable for tests.
	BaseURL string

	// CallbackURL is where the gateway redirects donors after checkout.
	CallbackURL string

	// Timeout bounds every HTTP call to the provider.
	// Default: 15s
	Timeout time.Duration
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("paystack: secret key is required")
	}
	if c.BaseURL == "" {
		return errors.New("paystack: base URL is required")
	}
	return nil
}

// IsTestMode returns true if using test mode API keys.
func (c *Config) IsTestMode() bool {
	return strings.HasPrefix(c.SecretKey, "sk_test_")
}
