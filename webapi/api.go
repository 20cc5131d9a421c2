// Package webapi exposes the storefront's HTTP API.
// This file contains the API handlers for generation, checkout, the
// payment webhook and the email test endpoint.
package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"popart_backend/imagegen"
	"popart_backend/imaging"
	"popart_backend/logging"
	"popart_backend/mailer"
	"popart_backend/metrics"
	"popart_backend/orderflow"
	"popart_backend/payments"

	"go.uber.org/zap"
)

// maxWebhookBytes bounds webhook request bodies.
const maxWebhookBytes = 1 << 20

// API holds the handlers behind the storefront endpoints. Components
// whose credentials are absent are nil; their endpoints fail fast with a
// configuration error before any external call.
type API struct {
	catalog        []orderflow.CanvasSize
	encoder        *imaging.Encoder
	dispatcher     *imagegen.Dispatcher
	statusSource   imagegen.StatusSource
	poller         *imagegen.Poller
	pipeline       *orderflow.Pipeline
	checkout       *payments.CheckoutCreator
	fulfillment    *payments.FulfillmentHandler
	mail           *mailer.Mailer
	stats          *metrics.Store
	maxUploadBytes int64
	logger         *logging.Logger
}

// APIConfig wires the API's components. Nil components disable their
// endpoints with a configuration error.
type APIConfig struct {
	Catalog        []orderflow.CanvasSize
	Encoder        *imaging.Encoder
	Dispatcher     *imagegen.Dispatcher
	StatusSource   imagegen.StatusSource
	Poller         *imagegen.Poller
	Pipeline       *orderflow.Pipeline
	Checkout       *payments.CheckoutCreator
	Fulfillment    *payments.FulfillmentHandler
	Mailer         *mailer.Mailer
	Metrics        *metrics.Store
	MaxUploadBytes int64
	Logger         *logging.Logger
}

// NewAPI creates the handler set.
func NewAPI(config APIConfig) *API {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if len(config.Catalog) == 0 {
		config.Catalog = orderflow.DefaultCatalog()
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}

	return &API{
		catalog:        config.Catalog,
		encoder:        config.Encoder,
		dispatcher:     config.Dispatcher,
		statusSource:   config.StatusSource,
		poller:         config.Poller,
		pipeline:       config.Pipeline,
		checkout:       config.Checkout,
		fulfillment:    config.Fulfillment,
		mail:           config.Mailer,
		stats:          config.Metrics,
		maxUploadBytes: config.MaxUploadBytes,
		logger:         config.Logger.Named("webapi"),
	}
}

// record reports an operation that reached its backing component. Input
// validation failures are not recorded.
func (a *API) record(opType, id string, start time.Time, err error) {
	if a.stats == nil {
		return
	}

	rec := metrics.OperationRecord{
		ID:        id,
		Type:      opType,
		Status:    metrics.StatusSuccess,
		StartTime: start,
		Duration:  time.Since(start),
	}
	if err != nil {
		rec.Status = metrics.StatusError
		rec.ErrorMsg = err.Error()
	}
	a.stats.Record(rec)
}

// RegisterRoutes attaches the API endpoints to the mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/checkout", a.handleCheckout)
	mux.HandleFunc("/generate", a.handleGenerate)
	mux.HandleFunc("/generate/status", a.handleGenerateStatus)
	mux.HandleFunc("/webhooks/payment", a.handlePaymentWebhook)
	mux.HandleFunc("/email/test", a.handleEmailTest)
	mux.HandleFunc("/metrics", a.handleMetrics)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError writes the uniform {"error": ...} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requireMethod rejects other methods with 405.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return false
	}
	return true
}

// requestOrigin derives the storefront origin for redirect URLs.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// checkoutBody is the POST /checkout request shape.
type checkoutBody struct {
	Size         string                 `json:"size"`
	Price        int64                  `json:"price"`
	Email        string                 `json:"email"`
	ImageURL     string                 `json:"imageUrl"`
	ShippingInfo *payments.ShippingInfo `json:"shippingInfo"`
}

// handleCheckout creates a hosted payment session.
func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if a.checkout == nil {
		writeError(w, http.StatusInternalServerError, "payment is not configured")
		return
	}

	var body checkoutBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case strings.TrimSpace(body.Size) == "":
		writeError(w, http.StatusBadRequest, "size is required")
		return
	case strings.TrimSpace(body.Email) == "":
		writeError(w, http.StatusBadRequest, "email is required")
		return
	case strings.TrimSpace(body.ImageURL) == "":
		writeError(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	// The size must exist in the catalog and the quoted price must
	// match it; the client's number is never trusted on its own.
	size, ok := orderflow.FindSize(a.catalog, body.Size)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown size %q", body.Size))
		return
	}
	if body.Price != size.Price {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("price %d does not match size %q", body.Price, body.Size))
		return
	}

	start := time.Now()
	session, err := a.checkout.CreateSession(r.Context(), &payments.CheckoutRequest{
		Size:     size.Label,
		Price:    size.Price,
		Email:    body.Email,
		ImageURL: body.ImageURL,
		Origin:   requestOrigin(r),
		Shipping: body.ShippingInfo,
	})
	if err != nil {
		a.record(metrics.OpCheckout, "", start, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.record(metrics.OpCheckout, session.SessionID, start, nil)
	writeJSON(w, http.StatusOK, map[string]string{"url": session.RedirectURL})
}

// generateBody is the POST /generate request shape.
type generateBody struct {
	Image string `json:"image"`

	// Wait asks the server to drive the batch to completion before
	// responding, instead of returning task IDs for client-side polling.
	Wait bool `json:"wait"`
}

// handleGenerate dispatches one stylization batch. With "wait" set the
// whole batch runs server-side under the configured polling budgets and
// the response carries final result URLs regardless of provider mode.
func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if a.dispatcher == nil {
		writeError(w, http.StatusInternalServerError, "image generation is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)

	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Image) == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	imageRef, err := a.normalizeImage(body.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if body.Wait {
		a.generateBlocking(w, r, imageRef)
		return
	}

	start := time.Now()
	result, err := a.dispatcher.Dispatch(r.Context(), imageRef)
	if err != nil {
		a.record(metrics.OpGenerate, "", start, err)
		if errors.Is(err, imagegen.ErrNoImage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.record(metrics.OpGenerate, "", start, nil)
	if result.Mode == imagegen.ModeSync {
		writeJSON(w, http.StatusOK, map[string][]string{"results": result.Results})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"taskIds": result.TaskIDs})
}

// generateBlocking runs the full generation step through the pipeline:
// dispatch, then wait for any asynchronous tasks under the poller's
// batch budget. The draft bookkeeping matches the storefront flow, so a
// failed batch discards partial results.
func (a *API) generateBlocking(w http.ResponseWriter, r *http.Request, imageRef string) {
	if a.pipeline == nil {
		writeError(w, http.StatusInternalServerError, "blocking generation is not configured")
		return
	}

	draft := orderflow.NewDraft(a.catalog[0])
	if err := draft.AttachImage(imageRef); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	err := a.pipeline.Process(r.Context(), draft)
	a.record(metrics.OpGenerate, "", start, err)
	switch {
	case errors.Is(err, imagegen.ErrPollTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, imagegen.ErrNoImage):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string][]string{"results": draft.Results()})
	}
}

// normalizeImage re-encodes inline uploads, downscaling oversized
// photos. Plain URLs pass through untouched.
func (a *API) normalizeImage(image string) (string, error) {
	if a.encoder == nil || !imaging.IsDataURI(image) {
		return image, nil
	}

	_, raw, err := imaging.ParseDataURI(image)
	if err != nil {
		return "", fmt.Errorf("invalid image data: %v", err)
	}
	encoded, err := a.encoder.EncodeUpload(raw)
	if err != nil {
		return "", fmt.Errorf("invalid image data: %v", err)
	}
	return encoded, nil
}

// handleGenerateStatus relays the provider's raw status payload. With
// "wait" set it long-polls server-side instead, holding the request
// until the task is terminal or the polling budget runs out.
func (a *API) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if a.statusSource == nil {
		writeError(w, http.StatusInternalServerError, "image generation is not configured")
		return
	}

	taskID := r.URL.Query().Get("taskId")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "taskId is required")
		return
	}

	if wait := r.URL.Query().Get("wait"); wait == "true" || wait == "1" {
		a.statusBlocking(w, r, taskID)
		return
	}

	raw, err := a.statusSource.TaskStatus(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Passthrough: the provider's payload is relayed byte for byte.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// statusBlocking waits for one task and returns its final result URL.
func (a *API) statusBlocking(w http.ResponseWriter, r *http.Request, taskID string) {
	if a.poller == nil {
		writeError(w, http.StatusInternalServerError, "blocking status is not configured")
		return
	}

	url, err := a.poller.WaitForResult(r.Context(), taskID)
	switch {
	case errors.Is(err, imagegen.ErrPollTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"resultUrl": url})
	}
}

// handlePaymentWebhook verifies and processes a payment provider event.
func (a *API) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if a.fulfillment == nil {
		writeError(w, http.StatusInternalServerError, "payment webhook is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	start := time.Now()
	err = a.fulfillment.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	a.record(metrics.OpWebhook, "", start, err)
	switch {
	case errors.Is(err, payments.ErrBadSignature):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		// Server error so the provider redelivers the event.
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// emailTestBody is the POST /email/test request shape.
type emailTestBody struct {
	Email string `json:"email"`
}

// handleEmailTest sends a configuration check message.
func (a *API) handleEmailTest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if a.mail == nil {
		writeError(w, http.StatusInternalServerError, "email is not configured")
		return
	}

	var body emailTestBody
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	start := time.Now()
	id, err := a.mail.SendTestEmail(r.Context(), body.Email)
	a.record(metrics.OpEmail, id, start, err)
	if err != nil {
		a.logger.Error("test email failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"messageId": id,
	})
}

// metricsRecentLimit bounds the history slice in the metrics response.
const metricsRecentLimit = 20

// handleMetrics serves the in-memory operation metrics snapshot.
func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if a.stats == nil {
		writeError(w, http.StatusInternalServerError, "metrics are not configured")
		return
	}

	writeJSON(w, http.StatusOK, a.stats.GetSnapshot(metricsRecentLimit))
}
