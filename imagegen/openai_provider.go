// Package imagegen provides generation dispatch and task polling.
//
// openai_provider.go implements the OpenAI provider, the synchronous
// backend: the API call blocks until the final image is produced and its
// URL is returned directly, so no polling is involved.
package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"popart_backend/core"
	"popart_backend/imaging"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI image generation.
//
// Thread Safety: safe for concurrent use. The underlying client handles
// connection pooling.
type OpenAIProvider struct {
	client     *openai.Client
	httpClient *http.Client
	model      string
}

// OpenAIProviderConfig holds configuration specific to the OpenAI provider.
type OpenAIProviderConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API endpoint (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the image model to use (default: dall-e-2). The model must
	// support the image edit endpoint, which takes the source photo.
	Model string

	// HTTPClient fetches URL-form source references before submission.
	// Defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
}

// NewOpenAIProvider creates an OpenAI provider from the application config.
// Returns an error if no API key is configured.
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewOpenAIProviderWithConfig(OpenAIProviderConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIImageModel,
		HTTPClient: core.GetDefaultHTTPClient(cfg),
	})
}

// NewOpenAIProviderWithConfig creates an OpenAI provider with explicit
// configuration. Useful for testing against a stub endpoint.
func NewOpenAIProviderWithConfig(cfg OpenAIProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE2
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = core.GetDefaultHTTPClient(nil)
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: httpClient,
		model:      model,
	}, nil
}

// Mode reports that this provider completes synchronously.
func (p *OpenAIProvider) Mode() Mode {
	return ModeSync
}

// Generate stylizes the customer's photo and returns the result URL.
//
// The source reference is resolved to raw bytes (decoded from a data URI
// or fetched over HTTP) and submitted together with the prompt through the
// image edit endpoint, so the output derives from the uploaded photo rather
// than the prompt alone. The returned URL is temporary and should be
// consumed promptly.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Submission, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("imagegen: prompt cannot be empty")
	}
	if req.ImageRef == "" {
		return nil, fmt.Errorf("imagegen: image reference cannot be empty")
	}

	source, err := p.resolveSource(ctx, req.ImageRef)
	if err != nil {
		return nil, err
	}

	// The client reads the source image from an *os.File when building
	// the multipart form, so the bytes go through a temp file.
	tmp, err := os.CreateTemp("", "popart-source-*.png")
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to stage source image: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(source); err != nil {
		return nil, fmt.Errorf("imagegen: failed to stage source image: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("imagegen: failed to stage source image: %w", err)
	}

	resp, err := p.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          tmp,
		Prompt:         req.Prompt,
		Model:          p.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("imagegen: generation failed: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, fmt.Errorf("imagegen: provider returned no image URL")
	}

	return &Submission{ResultURL: resp.Data[0].URL}, nil
}

// resolveSource turns an image reference into raw bytes. Data URIs are
// decoded in place; anything else is treated as a URL and fetched.
func (p *OpenAIProvider) resolveSource(ctx context.Context, ref string) ([]byte, error) {
	if imaging.IsDataURI(ref) {
		_, data, err := imaging.ParseDataURI(ref)
		if err != nil {
			return nil, fmt.Errorf("imagegen: invalid source image: %w", err)
		}
		return data, nil
	}

	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return nil, fmt.Errorf("imagegen: unsupported image reference %q", ref)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to build source fetch: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to fetch source image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagegen: source image fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to read source image: %w", err)
	}
	return data, nil
}
