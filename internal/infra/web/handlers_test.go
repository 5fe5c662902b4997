//go:build !integration

package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/usecase"
)

func doRequest(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestProductsHideSecrets(t *testing.T) {
	s := newTestServer(ServerDeps{})
	rec := doRequest(t, s, http.MethodGet, "/api/products", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "package4.pdf") || strings.Contains(body, "HELLOBIT") {
		t.Fatalf("catalog secrets leaked: %s", body)
	}

	out := decodeBody(t, rec)
	packages := out["packages"].([]any)
	if len(packages) != 4 {
		t.Fatalf("got %d packages, want 4", len(packages))
	}
	var premiumSupportsCoupon bool
	for _, p := range packages {
		m := p.(map[string]any)
		if m["packageType"] == "5" {
			premiumSupportsCoupon = m["supportsCoupon"].(bool)
		}
	}
	if !premiumSupportsCoupon {
		t.Fatal("premium tier should advertise coupon support")
	}
}

func TestCreateOrderResponses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", domain.ErrInvalidArgument, http.StatusBadRequest},
		{"bad package", domain.ErrInvalidPackage, http.StatusBadRequest},
		{"bad coupon", domain.ErrInvalidCoupon, http.StatusBadRequest},
		{"bad amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"gateway unconfigured", domain.ErrGatewayUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(ServerDeps{OrderUC: &mockOrderUC{
				CreateFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*usecase.CreateOrderResult, error) {
					return nil, tc.err
				},
			}})
			rec := doRequest(t, s, http.MethodPost, "/api/orders/create",
				`{"phone":"9876543210","collegeName":"Test College","packageType":"2"}`, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestCreateOrderSuccessShape(t *testing.T) {
	s := newTestServer(ServerDeps{OrderUC: &mockOrderUC{
		CreateFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*usecase.CreateOrderResult, error) {
			return &usecase.CreateOrderResult{
				Order: &model.Order{ID: "01TEST", PackageType: "2"},
				GatewayOrder: &adapter.GatewayOrder{ID: "order_prov_1", Amount: 5000, Currency: "INR"},
				KeyID: "rzp_test_key",
				Pricing: usecase.PricingBreakdown{
					PackageType: "2", PDFCount: 2, BasePrice: 50, FinalPrice: 50,
				},
			}, nil
		},
	}})

	rec := doRequest(t, s, http.MethodPost, "/api/orders/create",
		`{"phone":"9876543210","collegeName":"Test College","packageType":"2"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	out := decodeBody(t, rec)
	if out["orderId"] != "order_prov_1" || out["keyId"] != "rzp_test_key" {
		t.Fatalf("unexpected body: %v", out)
	}
	if out["amount"].(float64) != 5000 {
		t.Fatalf("amount = %v", out["amount"])
	}
	pricing := out["pricing"].(map[string]any)
	if pricing["finalPrice"].(float64) != 50 {
		t.Fatalf("pricing = %v", pricing)
	}
	if strings.Contains(rec.Body.String(), "downloadToken") {
		t.Fatal("download token must not appear at checkout")
	}
}

func TestVerifyPaymentResponses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing fields", domain.ErrInvalidArgument, http.StatusBadRequest},
		{"unknown order", domain.ErrNotFound, http.StatusNotFound},
		{"bad signature", domain.ErrSignatureMismatch, http.StatusBadRequest},
		{"not pending", domain.ErrInvalidTransition, http.StatusBadRequest},
		{"secret unconfigured", domain.ErrGatewayUnavailable, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(ServerDeps{PaymentUC: &mockPaymentUC{
				VerifyFunc: func(ctx context.Context, o, p, sig string) (*model.Order, error) {
					return nil, tc.err
				},
			}})
			rec := doRequest(t, s, http.MethodPost, "/api/payments/verify",
				`{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"s"}`, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}

	s := newTestServer(ServerDeps{PaymentUC: &mockPaymentUC{
		VerifyFunc: func(ctx context.Context, o, p, sig string) (*model.Order, error) {
			return &model.Order{DownloadToken: "tok123", Status: model.OrderStatusCompleted}, nil
		},
	}})
	rec := doRequest(t, s, http.MethodPost, "/api/payments/verify",
		`{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"s"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if out["success"] != true || out["downloadToken"] != "tok123" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestWebhookSignatureHandling(t *testing.T) {
	var gotBody []byte
	var gotSig string
	s := newTestServer(ServerDeps{PaymentUC: &mockPaymentUC{
		WebhookFunc: func(ctx context.Context, body []byte, signature string) error {
			gotBody, gotSig = body, signature
			if signature != "good" {
				return domain.ErrSignatureMismatch
			}
			return nil
		},
	}})

	raw := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`
	rec := doRequest(t, s, http.MethodPost, "/api/payments/webhook", raw,
		map[string]string{"X-Razorpay-Signature": "good"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if string(gotBody) != raw || gotSig != "good" {
		t.Fatal("raw body or signature not passed through verbatim")
	}

	rec = doRequest(t, s, http.MethodPost, "/api/payments/webhook", raw,
		map[string]string{"X-Razorpay-Signature": "forged"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("forged webhook status = %d, want 400", rec.Code)
	}
}

func TestVerifyDownloadAlways200(t *testing.T) {
	s := newTestServer(ServerDeps{DownloadUC: &mockDownloadUC{
		PeekFunc: func(ctx context.Context, token string) (bool, string, error) {
			return false, "Download link has expired or already used", nil
		},
	}})
	rec := doRequest(t, s, http.MethodGet, "/api/download/verify/deadbeef", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	out := decodeBody(t, rec)
	if out["valid"] != false || out["message"] == "" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestDownloadErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown token", domain.ErrNotFound, http.StatusNotFound},
		{"unpaid order", domain.ErrPaymentRequired, http.StatusForbidden},
		{"expired or used", domain.ErrLinkExpired, http.StatusForbidden},
		{"consumed by a concurrent request", domain.ErrTokenConsumed, http.StatusForbidden},
		{"tampered package", domain.ErrInvalidPackage, http.StatusForbidden},
		{"file missing", domain.ErrFileMissing, http.StatusInternalServerError},
		{"lock busy", domain.ErrLockBusy, http.StatusConflict},
		{"unclassified failure", errors.New("pipe burst"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(ServerDeps{DownloadUC: &mockDownloadUC{
				AuthorizeFunc: func(ctx context.Context, token string) (*usecase.DownloadGrant, error) {
					return nil, tc.err
				},
			}})
			rec := doRequest(t, s, http.MethodGet, "/api/download/deadbeef", "", nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestDownloadStreamsAttachment(t *testing.T) {
	content := "%PDF-1.4 fake"
	s := newTestServer(ServerDeps{DownloadUC: &mockDownloadUC{
		AuthorizeFunc: func(ctx context.Context, token string) (*usecase.DownloadGrant, error) {
			return &usecase.DownloadGrant{
				Order:    &model.Order{ID: "01TEST", PackageType: "2"},
				FileName: "package_2_1000_emails.pdf",
				Size:     int64(len(content)),
				Content:  pdfBody(content),
			}, nil
		},
	}})

	rec := doRequest(t, s, http.MethodGet, "/api/download/deadbeef", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "package_2_1000_emails.pdf") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != content {
		t.Fatal("body does not match file content")
	}
}

func TestHealthAndPing(t *testing.T) {
	s := newTestServer(ServerDeps{DB: &mockPinger{}, GatewayReady: true})
	rec := doRequest(t, s, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	out := decodeBody(t, rec)
	if out["database"] != "ok" || out["gateway"] != "ok" {
		t.Fatalf("unexpected health: %v", out)
	}

	down := newTestServer(ServerDeps{DB: &mockPinger{err: context.DeadlineExceeded}})
	rec = doRequest(t, down, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("health with dead db = %d, want 503", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/ping", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ping status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s := newTestServer(ServerDeps{FrontendOrigin: "http://localhost:5173"})

	rec := doRequest(t, s, http.MethodGet, "/api/products", "",
		map[string]string{"Origin": "http://localhost:5173"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allowed origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials not allowed")
	}

	rec = doRequest(t, s, http.MethodGet, "/api/products", "",
		map[string]string{"Origin": "http://evil.example"})
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("foreign origin must not be allowed")
	}
}

func TestAdminLoginAndAuth(t *testing.T) {
	auth := NewAuthManager("test-secret", false, 30*time.Minute)
	s := newTestServer(ServerDeps{
		Auth:          auth,
		AdminPassword: "hunter2",
		StatsUC:       &mockStatsUC{},
	})

	rec := doRequest(t, s, http.MethodPost, "/api/admin/login", `{"password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/admin/login", `{"password":"hunter2"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	token := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("no session token returned")
	}

	// protected route without credentials
	rec = doRequest(t, s, http.MethodGet, "/api/admin/stats", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated stats status = %d", rec.Code)
	}

	// bearer token works
	rec = doRequest(t, s, http.MethodGet, "/api/admin/stats", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated stats status = %d body=%s", rec.Code, rec.Body.String())
	}
	out := decodeBody(t, rec)
	if _, ok := out["revenue_inr"]; !ok {
		t.Fatalf("unexpected stats body: %v", out)
	}
}

func TestAdminOrdersHideTokens(t *testing.T) {
	auth := NewAuthManager("test-secret", false, 30*time.Minute)
	s := newTestServer(ServerDeps{
		Auth:          auth,
		AdminPassword: "hunter2",
		StatsUC: &mockStatsUC{
			RecentFunc: func(ctx context.Context, offset, limit int) ([]*model.Order, error) {
				return []*model.Order{{
					ID:              "01TEST",
					ProviderOrderID: "order_prov_1",
					DownloadToken:   "secret-token-bytes",
					Status:          model.OrderStatusCompleted,
					CreatedAt:       time.Now(),
					ExpiresAt:       time.Now().Add(24 * time.Hour),
				}}, nil
			},
		},
	})

	rec := doRequest(t, s, http.MethodPost, "/api/admin/login", `{"password":"hunter2"}`, nil)
	token := decodeBody(t, rec)["token"].(string)

	rec = doRequest(t, s, http.MethodGet, "/api/admin/orders", "",
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("orders status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-token-bytes") {
		t.Fatal("download token leaked into admin listing")
	}
}
