package webapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"popart_backend/imagegen"
	"popart_backend/imaging"
	"popart_backend/mailer"
	"popart_backend/metrics"
	"popart_backend/orderflow"
	"popart_backend/payments"

	"github.com/stripe/stripe-go/v80"
)

const webhookSecret = "whsec_webapi_test"

// fakeProvider answers generation requests with canned submissions.
type fakeProvider struct {
	mode imagegen.Mode
	err  error

	mu       sync.Mutex
	requests []imagegen.Request
}

func (p *fakeProvider) Mode() imagegen.Mode { return p.mode }

func (p *fakeProvider) Generate(_ context.Context, req imagegen.Request) (*imagegen.Submission, error) {
	p.mu.Lock()
	n := len(p.requests)
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	if p.mode == imagegen.ModeSync {
		return &imagegen.Submission{ResultURL: fmt.Sprintf("https://cdn.example.com/r%d.png", n)}, nil
	}
	return &imagegen.Submission{TaskID: fmt.Sprintf("task-%d", n)}, nil
}

// fakeStatusSource returns a fixed payload.
type fakeStatusSource struct {
	mu      sync.Mutex
	payload []byte
	err     error
	taskID  string
}

func (f *fakeStatusSource) TaskStatus(_ context.Context, taskID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskID = taskID
	return f.payload, f.err
}

func (f *fakeStatusSource) setPayload(payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = []byte(payload)
}

func (f *fakeStatusSource) lastTaskID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.taskID
}

// fakeSessions answers checkout session creation.
type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	err    error
}

func (f *fakeSessions) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/pay/cs_1"}, nil
}

// fakeNotifier records fulfillment emails.
type fakeNotifier struct {
	customer int
	admin    int
	adminErr error
}

func (f *fakeNotifier) SendCustomerConfirmation(context.Context, *payments.CompletedOrder) error {
	f.customer++
	return nil
}

func (f *fakeNotifier) SendAdminNotification(context.Context, *payments.CompletedOrder) error {
	f.admin++
	return f.adminErr
}

// fakeSender records test emails.
type fakeSender struct {
	messages []*mailer.Message
}

func (f *fakeSender) Send(_ context.Context, msg *mailer.Message) (string, error) {
	f.messages = append(f.messages, msg)
	return "msg-1", nil
}

type apiFixture struct {
	api      *API
	provider *fakeProvider
	sessions *fakeSessions
	status   *fakeStatusSource
	notifier *fakeNotifier
	sender   *fakeSender
	stats    *metrics.Store
}

func newAPIFixture(t *testing.T, mode imagegen.Mode) *apiFixture {
	t.Helper()

	f := &apiFixture{
		provider: &fakeProvider{mode: mode},
		sessions: &fakeSessions{},
		status:   &fakeStatusSource{payload: []byte(`{"data":{"successFlag":0}}`)},
		notifier: &fakeNotifier{},
		sender:   &fakeSender{},
	}

	dispatcher, err := imagegen.NewDispatcher(f.provider, nil,
		imagegen.WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	checkout, err := payments.NewCheckoutCreator(f.sessions, nil)
	if err != nil {
		t.Fatalf("NewCheckoutCreator failed: %v", err)
	}
	fulfillment, err := payments.NewFulfillmentHandler(webhookSecret, f.notifier, nil)
	if err != nil {
		t.Fatalf("NewFulfillmentHandler failed: %v", err)
	}
	m, err := mailer.NewMailer(f.sender, mailer.Config{}, nil)
	if err != nil {
		t.Fatalf("NewMailer failed: %v", err)
	}

	// Tight budgets keep the blocking paths fast under test.
	poller, err := imagegen.NewPoller(f.status, imagegen.PollerConfig{
		Interval:    2 * time.Millisecond,
		Budget:      50 * time.Millisecond,
		BatchBudget: 100 * time.Millisecond,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}
	pipeline, err := orderflow.NewPipeline(dispatcher, poller, checkout, nil)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}

	f.stats = metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	f.api = NewAPI(APIConfig{
		Encoder:      imaging.NewEncoder(10<<20, 2048),
		Dispatcher:   dispatcher,
		StatusSource: f.status,
		Poller:       poller,
		Pipeline:     pipeline,
		Checkout:     checkout,
		Fulfillment:  fulfillment,
		Mailer:       m,
		Metrics:      f.stats,
	})
	return f
}

func doJSON(t *testing.T, api *API, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("malformed response %q: %v", rec.Body.String(), err)
	}
	return body
}

func validCheckoutBody() map[string]any {
	return map[string]any{
		"size":     "60x40 cm",
		"price":    55,
		"email":    "customer@example.com",
		"imageUrl": "https://cdn.example.com/result-1.png",
	}
}

func TestCheckoutEndpoint(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodPost, "/checkout", validCheckoutBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["url"]; got != "https://checkout.stripe.com/pay/cs_1" {
		t.Errorf("url = %v", got)
	}
	if got := stripe.Int64Value(f.sessions.params.LineItems[0].PriceData.UnitAmount); got != 5500 {
		t.Errorf("UnitAmount = %d, want 5500", got)
	}
}

func TestCheckoutEndpointRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing size", func(b map[string]any) { delete(b, "size") }},
		{"missing email", func(b map[string]any) { delete(b, "email") }},
		{"missing imageUrl", func(b map[string]any) { delete(b, "imageUrl") }},
		{"unknown size", func(b map[string]any) { b["size"] = "10x10 cm" }},
		{"tampered price", func(b map[string]any) { b["price"] = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, imagegen.ModeAsync)

			body := validCheckoutBody()
			tt.mutate(body)

			rec := doJSON(t, f.api, http.MethodPost, "/checkout", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if f.sessions.params != nil {
				t.Error("invalid request reached the payment provider")
			}
		})
	}
}

func TestCheckoutEndpointProviderError(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.sessions.err = errors.New("api key expired")

	rec := doJSON(t, f.api, http.MethodPost, "/checkout", validCheckoutBody())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCheckoutEndpointUnconfigured(t *testing.T) {
	api := NewAPI(APIConfig{})

	rec := doJSON(t, api, http.MethodPost, "/checkout", validCheckoutBody())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 before any external call", rec.Code)
	}
}

func TestGenerateEndpointAsync(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodPost, "/generate",
		map[string]string{"image": "https://img.example.com/src.jpg"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	taskIDs, ok := body["taskIds"].([]any)
	if !ok || len(taskIDs) != 2 {
		t.Errorf("taskIds = %v", body["taskIds"])
	}
	if _, ok := body["results"]; ok {
		t.Error("async response should not carry results")
	}
}

func TestGenerateEndpointSync(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeSync)

	rec := doJSON(t, f.api, http.MethodPost, "/generate",
		map[string]string{"image": "https://img.example.com/src.jpg"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	results, ok := body["results"].([]any)
	if !ok || len(results) != 2 {
		t.Errorf("results = %v", body["results"])
	}
}

func TestGenerateEndpointNormalizesDataURI(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	dataURI := imaging.EncodeDataURI("image/png", buf.Bytes())

	rec := doJSON(t, f.api, http.MethodPost, "/generate", map[string]string{"image": dataURI})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, req := range f.provider.requests {
		if !imaging.IsDataURI(req.ImageRef) {
			t.Errorf("provider received %q, want a data URI", req.ImageRef)
		}
	}
}

func TestGenerateEndpointRejectsBadInput(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodPost, "/generate", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing image: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, f.api, http.MethodPost, "/generate",
		map[string]string{"image": "data:image/png;base64,!!!"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("garbage data URI: status = %d, want 400", rec.Code)
	}
}

func TestGenerateEndpointDispatchFailure(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.provider.err = errors.New("provider down")

	rec := doJSON(t, f.api, http.MethodPost, "/generate",
		map[string]string{"image": "https://img.example.com/src.jpg"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	// No partial task identifiers leak out of a failed batch.
	body := decodeBody(t, rec)
	if _, ok := body["taskIds"]; ok {
		t.Error("failed dispatch exposed task IDs")
	}
	if _, ok := body["error"]; !ok {
		t.Error("response should carry an error message")
	}
}

func TestGenerateStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	raw := `{"code":200,"data":{"taskId":"t-1","successFlag":1,"response":{"resultUrls":["https://x.png"]}}}`
	f.status.setPayload(raw)

	req := httptest.NewRequest(http.MethodGet, "/generate/status?taskId=t-1", nil)
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	f.api.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != raw {
		t.Errorf("payload altered: %s", rec.Body.String())
	}
	if got := f.status.lastTaskID(); got != "t-1" {
		t.Errorf("taskId = %q", got)
	}
}

func TestGenerateStatusEndpointErrors(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodGet, "/generate/status", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing taskId: status = %d, want 400", rec.Code)
	}

	f.status.err = errors.New("provider down")
	rec = doJSON(t, f.api, http.MethodGet, "/generate/status?taskId=t-1", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("provider error: status = %d, want 500", rec.Code)
	}
}

const finishedPayload = `{"data":{"successFlag":1,"response":{"resultUrls":["https://cdn.example.com/done.png"]}}}`

func TestGenerateEndpointBlockingAsync(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.status.setPayload(finishedPayload)

	rec := doJSON(t, f.api, http.MethodPost, "/generate", map[string]any{
		"image": "https://example.com/upload.jpg",
		"wait":  true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	results, ok := decodeBody(t, rec)["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 final results, got %v", rec.Body.String())
	}
	for _, url := range results {
		if url != "https://cdn.example.com/done.png" {
			t.Errorf("result = %v", url)
		}
	}
}

func TestGenerateEndpointBlockingSync(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeSync)

	rec := doJSON(t, f.api, http.MethodPost, "/generate", map[string]any{
		"image": "https://example.com/upload.jpg",
		"wait":  true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if results, ok := decodeBody(t, rec)["results"].([]any); !ok || len(results) != 2 {
		t.Errorf("expected 2 results, got %v", rec.Body.String())
	}
}

func TestGenerateEndpointBlockingTimeout(t *testing.T) {
	// The fixture's default status payload never completes, so the wait
	// exhausts its budget.
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodPost, "/generate", map[string]any{
		"image": "https://example.com/upload.jpg",
		"wait":  true,
	})
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504, body %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateEndpointBlockingUnconfigured(t *testing.T) {
	provider := &fakeProvider{mode: imagegen.ModeAsync}
	dispatcher, err := imagegen.NewDispatcher(provider, nil)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	api := NewAPI(APIConfig{Dispatcher: dispatcher})

	rec := doJSON(t, api, http.MethodPost, "/generate", map[string]any{
		"image": "https://example.com/upload.jpg",
		"wait":  true,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestGenerateStatusEndpointWait(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.status.setPayload(finishedPayload)

	rec := doJSON(t, f.api, http.MethodGet, "/generate/status?taskId=t-1&wait=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["resultUrl"]; got != "https://cdn.example.com/done.png" {
		t.Errorf("resultUrl = %v", got)
	}
	if got := f.status.lastTaskID(); got != "t-1" {
		t.Errorf("taskId = %q", got)
	}
}

func TestGenerateStatusEndpointWaitTimeout(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodGet, "/generate/status?taskId=t-1&wait=1", nil)
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504, body %s", rec.Code, rec.Body.String())
	}
}

func signWebhook(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookEventPayload() []byte {
	return []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"api_version": "2024-06-20",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"amount_total": 5500,
			"customer_details": {"email": "customer@example.com"},
			"metadata": {"size": "60x40 cm", "imageUrl": "https://x.png"}
		}}
	}`)
}

func postWebhook(t *testing.T, api *API, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)
	return rec
}

func TestWebhookEndpoint(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	payload := webhookEventPayload()
	rec := postWebhook(t, f.api, payload, signWebhook(payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["received"]; got != true {
		t.Errorf("received = %v", got)
	}
	if f.notifier.customer != 1 || f.notifier.admin != 1 {
		t.Errorf("emails: customer=%d admin=%d, want 1/1", f.notifier.customer, f.notifier.admin)
	}
}

func TestWebhookEndpointBadSignature(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	payload := webhookEventPayload()
	for name, sig := range map[string]string{
		"missing": "",
		"invalid": "t=123,v1=deadbeef",
	} {
		rec := postWebhook(t, f.api, payload, sig)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s signature: status = %d, want 400", name, rec.Code)
		}
	}
	if f.notifier.customer != 0 || f.notifier.admin != 0 {
		t.Errorf("unverified deliveries sent emails: customer=%d admin=%d",
			f.notifier.customer, f.notifier.admin)
	}
}

func TestWebhookEndpointAdminFailure(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.notifier.adminErr = errors.New("smtp down")

	payload := webhookEventPayload()
	rec := postWebhook(t, f.api, payload, signWebhook(payload))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 so the provider retries", rec.Code)
	}
}

func TestEmailTestEndpoint(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	rec := doJSON(t, f.api, http.MethodPost, "/email/test",
		map[string]string{"email": "dev@example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody(t, rec)["success"]; got != true {
		t.Errorf("success = %v", got)
	}
	if len(f.sender.messages) != 1 || f.sender.messages[0].To[0] != "dev@example.com" {
		t.Errorf("messages = %v", f.sender.messages)
	}
}

func TestEmailTestEndpointUnconfigured(t *testing.T) {
	api := NewAPI(APIConfig{})

	rec := doJSON(t, api, http.MethodPost, "/email/test", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	for _, target := range []string{"/checkout", "/generate", "/webhooks/payment", "/email/test"} {
		rec := doJSON(t, f.api, http.MethodGet, target, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: status = %d, want 405", target, rec.Code)
		}
	}

	for _, target := range []string{"/generate/status?taskId=t-1", "/metrics"} {
		rec := doJSON(t, f.api, http.MethodPost, target, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: status = %d, want 405", target, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	if rec := doJSON(t, f.api, http.MethodPost, "/checkout", validCheckoutBody()); rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, want 200", rec.Code)
	}
	if rec := doJSON(t, f.api, http.MethodPost, "/email/test", map[string]string{"email": "ops@popart.ee"}); rec.Code != http.StatusOK {
		t.Fatalf("email test status = %d, want 200", rec.Code)
	}

	rec := doJSON(t, f.api, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}

	var snapshot metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Operations.TotalProcessed != 2 {
		t.Errorf("TotalProcessed = %d, want 2", snapshot.Operations.TotalProcessed)
	}
	if snapshot.Operations.TotalSuccess != 2 {
		t.Errorf("TotalSuccess = %d, want 2", snapshot.Operations.TotalSuccess)
	}
	if _, ok := snapshot.Operations.ByType[metrics.OpCheckout]; !ok {
		t.Error("missing checkout stats")
	}
	if _, ok := snapshot.Operations.ByType[metrics.OpEmail]; !ok {
		t.Error("missing email stats")
	}
	if len(snapshot.Recent) != 2 {
		t.Errorf("len(Recent) = %d, want 2", len(snapshot.Recent))
	}
}

func TestMetricsEndpointRecordsFailures(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)
	f.sessions.err = errors.New("stripe unavailable")

	if rec := doJSON(t, f.api, http.MethodPost, "/checkout", validCheckoutBody()); rec.Code != http.StatusInternalServerError {
		t.Fatalf("checkout status = %d, want 500", rec.Code)
	}
	// Validation failures never reach the component and are not counted.
	if rec := doJSON(t, f.api, http.MethodPost, "/checkout", map[string]any{"size": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty checkout status = %d, want 400", rec.Code)
	}

	m := f.stats.GetOperationMetrics()
	if m.TotalProcessed != 1 || m.TotalErrors != 1 {
		t.Errorf("processed/errors = %d/%d, want 1/1", m.TotalProcessed, m.TotalErrors)
	}
}

func TestMetricsEndpointUnconfigured(t *testing.T) {
	api := NewAPI(APIConfig{})
	rec := doJSON(t, api, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequestOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	req.Header.Set("Origin", "https://popart.ee")
	if got := requestOrigin(req); got != "https://popart.ee" {
		t.Errorf("origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "http://storefront.local/checkout", nil)
	if got := requestOrigin(req); got != "http://storefront.local" {
		t.Errorf("origin = %q", got)
	}
}

func TestCheckoutUsesRequestOrigin(t *testing.T) {
	f := newAPIFixture(t, imagegen.ModeAsync)

	data, _ := json.Marshal(validCheckoutBody())
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(data))
	req.Header.Set("Origin", "https://popart.ee")
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	f.api.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := stripe.StringValue(f.sessions.params.SuccessURL); !strings.HasPrefix(got, "https://popart.ee/success") {
		t.Errorf("SuccessURL = %q", got)
	}
}
