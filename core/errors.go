package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing  = "ENV_FILE_MISSING"
	ErrCodeMissingAuth     = "MISSING_AUTH"
	ErrCodeInvalidKey      = "INVALID_KEY_FORMAT"
	ErrCodeInvalidEndpoint = "INVALID_ENDPOINT"
	ErrCodeMissingConfig   = "MISSING_CONFIG"
)

// ErrEnvFileMissing returns an error for a missing .env file.
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env and configure the required values",
	}
}

// ErrMissingCredential returns an error for a missing API credential.
// The variable name is used to give an actionable instruction.
func ErrMissingCredential(envVar string) *ConfigError {
	var action string
	switch envVar {
	case "STRIPE_SECRET_KEY":
		action = "Set STRIPE_SECRET_KEY in your .env file (Stripe Dashboard > Developers > API keys)"
	case "STRIPE_WEBHOOK_SECRET":
		action = "Set STRIPE_WEBHOOK_SECRET in your .env file (Stripe Dashboard > Webhooks > Signing secret)"
	case "NANOBANANA_API_KEY":
		action = "Set NANOBANANA_API_KEY in your .env file"
	case "RESEND_API_KEY":
		action = "Set RESEND_API_KEY in your .env file"
	default:
		action = fmt.Sprintf("Set %s in your .env file", envVar)
	}
	return &ConfigError{
		Code:    ErrCodeMissingAuth,
		Message: fmt.Sprintf("%s is missing", envVar),
		Action:  action,
	}
}

// ErrInvalidKeyFormat returns an error for a credential that is present but
// does not match the provider's expected prefix.
func ErrInvalidKeyFormat(envVar, expectedPrefix string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidKey,
		Message: fmt.Sprintf("%s does not look like a valid key (expected prefix %q)", envVar, expectedPrefix),
		Action:  fmt.Sprintf("Verify %s was copied completely from the provider dashboard", envVar),
	}
}

// ErrInvalidEndpoint returns an error for a malformed provider endpoint URL.
func ErrInvalidEndpoint(envVar, url, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEndpoint,
		Message: fmt.Sprintf("Invalid %s URL '%s': %s", envVar, url, reason),
		Action:  fmt.Sprintf("Set %s to a valid https:// URL", envVar),
	}
}
