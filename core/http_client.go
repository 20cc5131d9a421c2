package core

import (
	"net/http"
	"time"
)

// GetHTTPClient returns an HTTP client with the given timeout applied.
// All outbound provider calls share this construction so transport
// settings stay in one place.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	if timeout <= 0 && cfg != nil {
		timeout = cfg.RequestTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// GetDefaultHTTPClient returns an HTTP client using the configured
// request timeout.
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	var timeout time.Duration
	if cfg != nil {
		timeout = cfg.RequestTimeout
	}
	return GetHTTPClient(cfg, timeout)
}
