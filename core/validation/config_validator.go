// Package validation provides startup validation for the storefront
// backend configuration. It checks credentials and endpoints before the
// server begins accepting requests, with colored progress output.
package validation

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"popart_backend/core"
)

// ValidationResult is the outcome of a single configuration check.
type ValidationResult struct {
	Valid   bool
	Message string
	Error   error
}

// ConfigValidator validates storefront configuration values read from the
// environment. Checks are pure lookups with no network calls; a missing
// optional credential produces a warning-style pass, not a failure.
type ConfigValidator struct {
	envPath string
}

// NewConfigValidator creates a ConfigValidator with default settings.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{envPath: ".env"}
}

// WithEnvPath sets a custom path for the .env file.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile verifies the .env file exists. Absence is not fatal since
// configuration may come from the process environment.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if _, err := os.Stat(v.envPath); err != nil {
		return ValidationResult{
			Valid:   true,
			Message: fmt.Sprintf("%s not found, using process environment", v.envPath),
		}
	}
	return ValidationResult{Valid: true, Message: v.envPath}
}

// CheckStripeKeys verifies the Stripe secret key and webhook secret are
// present and carry the expected prefixes. A present key with a wrong
// prefix fails: it usually means a truncated copy-paste.
func (v *ConfigValidator) CheckStripeKeys() ValidationResult {
	secret := os.Getenv("STRIPE_SECRET_KEY")
	if secret == "" {
		return ValidationResult{
			Valid:   false,
			Message: "checkout disabled",
			Error:   core.ErrMissingCredential("STRIPE_SECRET_KEY"),
		}
	}
	if !strings.HasPrefix(secret, "sk_") && !strings.HasPrefix(secret, "rk_") {
		return ValidationResult{
			Valid: false,
			Error: core.ErrInvalidKeyFormat("STRIPE_SECRET_KEY", "sk_"),
		}
	}

	whsec := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if whsec == "" {
		return ValidationResult{
			Valid:   false,
			Message: "webhook processing disabled",
			Error:   core.ErrMissingCredential("STRIPE_WEBHOOK_SECRET"),
		}
	}
	if !strings.HasPrefix(whsec, "whsec_") {
		return ValidationResult{
			Valid: false,
			Error: core.ErrInvalidKeyFormat("STRIPE_WEBHOOK_SECRET", "whsec_"),
		}
	}

	mode := "live"
	if strings.HasPrefix(secret, "sk_test_") {
		mode = "test"
	}
	return ValidationResult{Valid: true, Message: fmt.Sprintf("%s mode", mode)}
}

// CheckGenerationProvider verifies the configured image provider has a
// usable credential and a well-formed endpoint.
func (v *ConfigValidator) CheckGenerationProvider() ValidationResult {
	provider := os.Getenv("IMAGE_PROVIDER")
	if provider == "" {
		provider = core.ProviderNanoBanana
	}

	switch provider {
	case core.ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return ValidationResult{
				Valid: false,
				Error: core.ErrMissingCredential("OPENAI_API_KEY"),
			}
		}
		return ValidationResult{Valid: true, Message: "openai (sync)"}
	case core.ProviderNanoBanana:
		if os.Getenv("NANOBANANA_API_KEY") == "" {
			return ValidationResult{
				Valid: false,
				Error: core.ErrMissingCredential("NANOBANANA_API_KEY"),
			}
		}
		endpoint := os.Getenv("NANOBANANA_API_URL")
		if endpoint == "" {
			endpoint = core.DefaultNanoBananaURL
		}
		if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationResult{
				Valid: false,
				Error: core.ErrInvalidEndpoint("NANOBANANA_API_URL", endpoint, "missing scheme or host"),
			}
		}
		return ValidationResult{Valid: true, Message: "nanobanana (async)"}
	default:
		return ValidationResult{
			Valid: false,
			Error: fmt.Errorf("unknown IMAGE_PROVIDER %q", provider),
		}
	}
}

// CheckMailer verifies the Resend API key is present. The admin recipient
// and sender addresses have built-in defaults so only the key is required.
func (v *ConfigValidator) CheckMailer() ValidationResult {
	key := os.Getenv("RESEND_API_KEY")
	if key == "" {
		return ValidationResult{
			Valid:   false,
			Message: "order emails disabled",
			Error:   core.ErrMissingCredential("RESEND_API_KEY"),
		}
	}
	if !strings.HasPrefix(key, "re_") {
		return ValidationResult{
			Valid: false,
			Error: core.ErrInvalidKeyFormat("RESEND_API_KEY", "re_"),
		}
	}
	return ValidationResult{Valid: true}
}

// CheckImageHosting reports on the optional ImgBB side channel. This check
// never fails: the uploader is best-effort by contract.
func (v *ConfigValidator) CheckImageHosting() ValidationResult {
	if os.Getenv("IMGBB_API_KEY") == "" {
		return ValidationResult{Valid: true, Message: "not configured (data URIs submitted directly)"}
	}
	return ValidationResult{Valid: true, Message: "configured"}
}
