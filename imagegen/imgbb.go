// Package imagegen provides generation dispatch and task polling.
//
// imgbb.go implements the optional image-hosting side channel. When an
// ImgBB key is configured, raw data URIs are first uploaded to obtain a
// short public URL, which keeps generation request payloads small. The
// upload is best-effort by contract: on any failure the original data
// URI is submitted instead.
package imagegen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"popart_backend/core"
	"popart_backend/imaging"
	"popart_backend/logging"

	"go.uber.org/zap"
)

// ImgBBUploader uploads base64 image payloads to ImgBB.
type ImgBBUploader struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *logging.Logger
}

// NewImgBBUploader creates an uploader from the application config.
// Returns nil (no side channel) when no ImgBB key is configured.
func NewImgBBUploader(cfg *core.Config, logger *logging.Logger) *ImgBBUploader {
	if cfg == nil || cfg.ImgBBAPIKey == "" {
		return nil
	}
	return NewImgBBUploaderWithConfig(cfg.ImgBBURL, cfg.ImgBBAPIKey, core.GetDefaultHTTPClient(cfg), logger)
}

// NewImgBBUploaderWithConfig creates an uploader with explicit settings.
func NewImgBBUploaderWithConfig(endpoint, apiKey string, client *http.Client, logger *logging.Logger) *ImgBBUploader {
	if endpoint == "" {
		endpoint = core.DefaultImgBBURL
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ImgBBUploader{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   client,
		logger:   logger.Named("imgbb"),
	}
}

// imgbbResponse is the upload endpoint's response shape.
type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload submits a data URI's base64 payload and returns the hosted URL.
// The boolean reports success; on failure the caller falls back to the
// original payload, so errors are logged rather than returned.
func (u *ImgBBUploader) Upload(ctx context.Context, dataURI string) (string, bool) {
	payload, err := imaging.Base64Payload(dataURI)
	if err != nil {
		u.logger.Debug("skipping upload, not a data URI")
		return "", false
	}

	form := url.Values{}
	form.Set("image", payload)

	uploadURL := fmt.Sprintf("%s?key=%s", u.endpoint, url.QueryEscape(u.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		u.logger.Warn("failed to build upload request", zap.Error(err))
		return "", false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Warn("image hosting upload failed", zap.Error(err))
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		u.logger.Warn("failed to read upload response", zap.Error(err))
		return "", false
	}

	var parsed imgbbResponse
	if err := json.Unmarshal(body, &parsed); err != nil || !parsed.Success || parsed.Data.URL == "" {
		u.logger.Warn("image hosting upload rejected",
			zap.Int("status", resp.StatusCode))
		return "", false
	}

	u.logger.Debug("image hosted", zap.String("url", parsed.Data.URL))
	return parsed.Data.URL, true
}
