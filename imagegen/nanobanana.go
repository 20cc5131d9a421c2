// Package imagegen provides generation dispatch and task polling.
//
// nanobanana.go implements the NanoBanana image-to-image provider. It is
// the asynchronous backend: generation requests return a task identifier
// and completion is observed through the record-info status endpoint.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"popart_backend/core"
	"popart_backend/logging"
)

// NanoBananaProvider implements Provider and StatusSource against the
// NanoBanana HTTP API.
//
// Thread Safety: safe for concurrent use; each call builds its own request.
type NanoBananaProvider struct {
	baseURL     string
	apiKey      string
	imageSize   string
	callbackURL string
	client      *http.Client
	logger      *logging.Logger
}

// NanoBananaConfig holds configuration for the NanoBanana provider.
type NanoBananaConfig struct {
	// BaseURL is the API base, e.g. https://api.nanobananaapi.ai/api/v1/nanobanana
	BaseURL string

	// APIKey is the bearer token (required).
	APIKey string

	// ImageSize is the requested aspect ratio. Default: "2:3" (portrait
	// canvas format).
	ImageSize string

	// CallbackURL is passed to the provider, which requires the field
	// even when completion is observed by polling.
	CallbackURL string

	// HTTPClient overrides the default client (useful in tests).
	HTTPClient *http.Client
}

// NewNanoBananaProvider creates a provider from the application config.
// Returns an error if no API key is configured.
func NewNanoBananaProvider(cfg *core.Config, logger *logging.Logger) (*NanoBananaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewNanoBananaProviderWithConfig(NanoBananaConfig{
		BaseURL:    cfg.NanoBananaURL,
		APIKey:     cfg.NanoBananaAPIKey,
		HTTPClient: core.GetDefaultHTTPClient(cfg),
	}, logger)
}

// NewNanoBananaProviderWithConfig creates a provider with explicit
// configuration. This is the constructor used by tests.
func NewNanoBananaProviderWithConfig(cfg NanoBananaConfig, logger *logging.Logger) (*NanoBananaProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: NanoBanana API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = core.DefaultNanoBananaURL
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = "2:3"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &NanoBananaProvider{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		imageSize:   cfg.ImageSize,
		callbackURL: cfg.CallbackURL,
		client:      cfg.HTTPClient,
		logger:      logger.Named("nanobanana"),
	}, nil
}

// Mode reports that this provider completes asynchronously.
func (p *NanoBananaProvider) Mode() Mode {
	return ModeAsync
}

// generateRequest is the provider's task creation payload.
type generateRequest struct {
	Prompt string `json:"prompt"`
	// The provider's API expects this exact misspelled constant.
	Type        string   `json:"type"`
	NumImages   int      `json:"numImages"`
	ImageURLs   []string `json:"imageUrls"`
	ImageSize   string   `json:"image_size"`
	CallBackURL string   `json:"callBackUrl,omitempty"`
}

// generateResponse is the provider's task creation response.
type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

// Generate creates one stylization task and returns its identifier.
// A non-2xx HTTP status or a provider-reported error code fails the call
// with the provider's message where available.
func (p *NanoBananaProvider) Generate(ctx context.Context, req Request) (*Submission, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("imagegen: prompt cannot be empty")
	}
	if req.ImageRef == "" {
		return nil, fmt.Errorf("imagegen: source image is required")
	}

	payload := generateRequest{
		Prompt:      req.Prompt,
		Type:        "IMAGETOIAMGE",
		NumImages:   1,
		ImageURLs:   []string{req.ImageRef},
		ImageSize:   p.imageSize,
		CallBackURL: p.callbackURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to encode generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to read generation response: %w", err)
	}

	var genResp generateResponse
	if unmarshalErr := json.Unmarshal(respBody, &genResp); unmarshalErr != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("imagegen: malformed generation response: %w", unmarshalErr)
	}

	if resp.StatusCode != http.StatusOK || genResp.Code != http.StatusOK {
		msg := genResp.Msg
		if msg == "" {
			msg = fmt.Sprintf("generation initiation failed (status %d)", resp.StatusCode)
		}
		p.logger.Warn("provider rejected generation request")
		return nil, fmt.Errorf("imagegen: %s", msg)
	}

	if genResp.Data.TaskID == "" {
		return nil, fmt.Errorf("imagegen: provider returned no task identifier")
	}

	return &Submission{TaskID: genResp.Data.TaskID}, nil
}

// TaskStatus fetches the raw record-info payload for a task. The payload
// is returned unmodified for passthrough; use ParseStatusPayload to
// obtain the canonical status.
func (p *NanoBananaProvider) TaskStatus(ctx context.Context, taskID string) ([]byte, error) {
	if taskID == "" {
		return nil, fmt.Errorf("imagegen: taskId is required")
	}

	statusURL := fmt.Sprintf("%s/record-info?taskId=%s", p.baseURL, url.QueryEscape(taskID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagegen: status request returned %d", resp.StatusCode)
	}
	return body, nil
}
