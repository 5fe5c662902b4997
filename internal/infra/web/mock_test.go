//go:build !integration

package web

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockOrderUC struct {
	CreateFunc func(ctx context.Context, in usecase.CreateOrderInput) (*usecase.CreateOrderResult, error)
}

func (m *mockOrderUC) Create(ctx context.Context, in usecase.CreateOrderInput) (*usecase.CreateOrderResult, error) {
	return m.CreateFunc(ctx, in)
}

type mockPaymentUC struct {
	VerifyFunc  func(ctx context.Context, providerOrderID, paymentID, signature string) (*model.Order, error)
	WebhookFunc func(ctx context.Context, body []byte, signature string) error
}

func (m *mockPaymentUC) Verify(ctx context.Context, providerOrderID, paymentID, signature string) (*model.Order, error) {
	return m.VerifyFunc(ctx, providerOrderID, paymentID, signature)
}

func (m *mockPaymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return m.WebhookFunc(ctx, body, signature)
}

type mockDownloadUC struct {
	AuthorizeFunc func(ctx context.Context, token string) (*usecase.DownloadGrant, error)
	PeekFunc      func(ctx context.Context, token string) (bool, string, error)
}

func (m *mockDownloadUC) Authorize(ctx context.Context, token string) (*usecase.DownloadGrant, error) {
	return m.AuthorizeFunc(ctx, token)
}

func (m *mockDownloadUC) Peek(ctx context.Context, token string) (bool, string, error) {
	return m.PeekFunc(ctx, token)
}

type mockStatsUC struct {
	TotalsFunc func(ctx context.Context) (map[model.OrderStatus]int, error)
	RecentFunc func(ctx context.Context, offset, limit int) ([]*model.Order, error)
}

func (m *mockStatsUC) Totals(ctx context.Context) (map[model.OrderStatus]int, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx)
	}
	return map[model.OrderStatus]int{}, nil
}

func (m *mockStatsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	return 59, 109, 239, nil
}

func (m *mockStatsUC) RecentOrders(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, offset, limit)
	}
	return nil, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

func pdfBody(content string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(content))
}

func newTestServer(deps ServerDeps) *Server {
	if deps.Catalog == nil {
		deps.Catalog = model.DefaultCatalog()
	}
	return NewServer(deps, newTestLogger())
}
