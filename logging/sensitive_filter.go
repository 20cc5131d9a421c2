package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains compiled regex patterns for detecting sensitive
// data in log values. Compiled once at package initialization.
var sensitivePatterns = []*regexp.Regexp{
	// Stripe secret, restricted and webhook signing keys
	regexp.MustCompile(`(?i)(sk_(?:live|test)_[a-zA-Z0-9]{8,})`),
	regexp.MustCompile(`(?i)(rk_(?:live|test)_[a-zA-Z0-9]{8,})`),
	regexp.MustCompile(`(?i)(whsec_[a-zA-Z0-9]{8,})`),

	// OpenAI API keys: sk-... (legacy) or sk-proj-... (project-scoped)
	regexp.MustCompile(`(sk-[a-zA-Z0-9_-]{20,})`),

	// Resend API keys
	regexp.MustCompile(`(re_[a-zA-Z0-9_]{16,})`),

	// Bearer tokens in forwarded headers or provider errors
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{16,})`),

	// Stripe webhook signature headers
	regexp.MustCompile(`(?i)(t=\d+,v1=[a-f0-9]{32,})`),

	// Generic secret patterns
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldMarkers are field-name fragments that indicate sensitive data.
var sensitiveFieldMarkers = []string{
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"NANOBANANA_API_KEY",
	"OPENAI_API_KEY",
	"IMGBB_API_KEY",
	"RESEND_API_KEY",
	"SIGNATURE",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
}

// RedactSensitiveData scans a string value and redacts any detected
// credentials or signatures. This is a pure function.
//
// Example:
//
//	input := "charge failed for key sk_live_abc123def456"
//	output := RedactSensitiveData(input)
//	// output: "charge failed for key [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts a field value if the field name indicates sensitive
// data, and scans the value itself otherwise.
func RedactField(fieldName, fieldValue string) string {
	if IsSensitiveField(fieldName) {
		return RedactedPlaceholder
	}
	return RedactSensitiveData(fieldValue)
}

// IsSensitiveField returns true if the field name indicates sensitive data.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)

	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(upperName, marker) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData returns true if the value contains any sensitive
// data patterns.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
