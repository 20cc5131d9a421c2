// Package core provides configuration and shared primitives for the
// PopArt.ee storefront backend.
package core

import (
	"fmt"
	"time"
)

// Default endpoints and addresses used when the corresponding environment
// variable is not set.
const (
	// DefaultNanoBananaURL is the base URL of the NanoBanana generation API.
	DefaultNanoBananaURL = "https://api.nanobananaapi.ai/api/v1/nanobanana"

	// DefaultImgBBURL is the ImgBB upload endpoint used for the optional
	// image-hosting side channel.
	DefaultImgBBURL = "https://api.imgbb.com/1/upload"

	// DefaultMailFrom is the sender for customer-facing order emails.
	DefaultMailFrom = "PopArt.ee <orders@popart.ee>"

	// DefaultMailSystemFrom is the sender for internal notifications.
	DefaultMailSystemFrom = "PopArt.ee System <system@popart.ee>"

	// DefaultAdminEmail receives new-order notifications.
	DefaultAdminEmail = "info@popart.ee"
)

// Provider mode identifiers recognized by Config.ImageProvider.
const (
	ProviderNanoBanana = "nanobanana"
	ProviderOpenAI     = "openai"
)

// Config holds all configuration values for the storefront backend.
// It is constructed once at process start by LoadConfig and passed by
// reference to each component; business logic never reads the environment
// directly.
type Config struct {
	// Payment provider (Stripe)
	StripeSecretKey     string
	StripeWebhookSecret string

	// AI generation provider
	ImageProvider    string // "nanobanana" (async tasks) or "openai" (sync)
	NanoBananaAPIKey string
	NanoBananaURL    string
	OpenAIAPIKey     string
	OpenAIImageModel string

	// Optional image-hosting side channel (ImgBB)
	ImgBBAPIKey string
	ImgBBURL    string

	// Transactional email (Resend)
	ResendAPIKey   string
	MailFrom       string
	MailSystemFrom string
	AdminEmail     string

	// HTTP server
	Host string
	Port int

	// Task polling
	PollInterval    time.Duration
	PollTimeout     time.Duration
	LongPollTimeout time.Duration

	// Upload preprocessing
	MaxUploadBytes int64
	MaxImageEdge   int

	// Product catalog override (YAML, optional)
	CatalogPath string

	// Outbound HTTP
	RequestTimeout time.Duration
}

// LoadConfig reads configuration from environment variables and returns a
// populated Config. Missing credentials are not an error here: each
// endpoint fails fast at request time when its credential is absent, so
// the server can still start with a partial configuration (e.g. webhook
// processing only).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		StripeSecretKey:     GetEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: GetEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),

		ImageProvider:    GetEnvOrDefault("IMAGE_PROVIDER", ProviderNanoBanana),
		NanoBananaAPIKey: GetEnvOrDefault("NANOBANANA_API_KEY", ""),
		NanoBananaURL:    GetEnvOrDefault("NANOBANANA_API_URL", DefaultNanoBananaURL),
		OpenAIAPIKey:     GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIImageModel: GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-2"),

		ImgBBAPIKey: GetEnvOrDefault("IMGBB_API_KEY", ""),
		ImgBBURL:    GetEnvOrDefault("IMGBB_API_URL", DefaultImgBBURL),

		ResendAPIKey:   GetEnvOrDefault("RESEND_API_KEY", ""),
		MailFrom:       GetEnvOrDefault("MAIL_FROM", DefaultMailFrom),
		MailSystemFrom: GetEnvOrDefault("MAIL_SYSTEM_FROM", DefaultMailSystemFrom),
		AdminEmail:     GetEnvOrDefault("ADMIN_EMAIL", DefaultAdminEmail),

		Host: GetEnvOrDefault("HOST", ""),
		Port: ParseIntEnv("PORT", 8080),

		PollInterval:    ParseDurationEnv("POLL_INTERVAL_SECONDS", 4),
		PollTimeout:     ParseDurationEnv("POLL_TIMEOUT_SECONDS", 60),
		LongPollTimeout: ParseDurationEnv("LONG_POLL_TIMEOUT_SECONDS", 300),

		MaxUploadBytes: ParseInt64Env("MAX_UPLOAD_MB", 10) * 1024 * 1024,
		MaxImageEdge:   ParseIntEnv("MAX_IMAGE_EDGE", 2048),

		CatalogPath: GetEnvOrDefault("CATALOG_FILE", ""),

		RequestTimeout: ParseDurationEnv("REQUEST_TIMEOUT_SECONDS", 30),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("core: invalid PORT value %d", cfg.Port)
	}
	if cfg.ImageProvider != ProviderNanoBanana && cfg.ImageProvider != ProviderOpenAI {
		return nil, fmt.Errorf("core: unknown IMAGE_PROVIDER %q (expected %q or %q)",
			cfg.ImageProvider, ProviderNanoBanana, ProviderOpenAI)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("core: POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.PollTimeout <= 0 || cfg.LongPollTimeout < cfg.PollTimeout {
		return nil, fmt.Errorf("core: poll timeout budgets are inconsistent (%v short, %v long)",
			cfg.PollTimeout, cfg.LongPollTimeout)
	}

	return cfg, nil
}

// ProviderKey returns the API key for the configured image provider.
func (c *Config) ProviderKey() string {
	if c.ImageProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.NanoBananaAPIKey
}
