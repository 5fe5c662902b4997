//go:build !integration

package usecase_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- In-memory order repository ---

type MockOrderRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Order
	Errors struct {
		Create  error
		Find    error
		Update  error
		Consume error
	}
	CreateFunc func(ctx context.Context, tx repository.Tx, o *model.Order) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{byID: make(map[string]*model.Order)}
}

func (m *MockOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, o); err != nil {
			return err
		}
	}
	if m.Errors.Create != nil {
		return m.Errors.Create
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

// Seed stores an order directly, bypassing error hooks.
func (m *MockOrderRepo) Seed(o *model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.byID[o.ID] = &cp
}

// Stored returns a copy of the persisted record.
func (m *MockOrderRepo) Stored(id string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *MockOrderRepo) FindByProviderOrderID(ctx context.Context, tx repository.Tx, providerOrderID string) (*model.Order, error) {
	if m.Errors.Find != nil {
		return nil, m.Errors.Find
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Order, error) {
	if m.Errors.Find != nil {
		return nil, m.Errors.Find
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.DownloadToken == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockOrderRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, paymentID, signature *string) (bool, error) {
	if m.Errors.Update != nil {
		return false, m.Errors.Update
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = status
	if paymentID != nil {
		v := *paymentID
		o.PaymentID = &v
	}
	if signature != nil {
		v := *signature
		o.PaymentSignature = &v
	}
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepo) ConsumeToken(ctx context.Context, tx repository.Tx, token string, now time.Time) (bool, error) {
	if m.Errors.Consume != nil {
		return false, m.Errors.Consume
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.DownloadToken != token {
			continue
		}
		if o.TokenUsed || o.Status != model.OrderStatusCompleted || now.After(o.ExpiresAt) {
			return false, nil
		}
		o.TokenUsed = true
		t := now
		o.TokenUsedAt = &t
		return true, nil
	}
	return false, nil
}

func (m *MockOrderRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	if m.Errors.Update != nil {
		return false, m.Errors.Update
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.Status != model.OrderStatusCompleted {
		return false, nil
	}
	o.Status = model.OrderStatusExpired
	return true, nil
}

func (m *MockOrderRepo) MarkEmailSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		o.EmailSent = true
		t := at
		o.EmailSentAt = &t
	}
	return nil
}

func (m *MockOrderRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.byID {
		if o.Status == model.OrderStatusCompleted && now.After(o.ExpiresAt) {
			o.Status = model.OrderStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockOrderRepo) ListRecent(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Order, 0, len(m.byID))
	for _, o := range m.byID {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOrderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.OrderStatus]int)
	for _, o := range m.byID {
		out[o.Status]++
	}
	return out, nil
}

func (m *MockOrderRepo) SumRevenue(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, o := range m.byID {
		if o.CreatedAt.Before(since) {
			continue
		}
		if o.Status == model.OrderStatusCompleted || o.Status == model.OrderStatusExpired {
			sum += o.FinalPrice
		}
	}
	return sum, nil
}

// --- Transaction manager mock ---

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

// WithTx runs fn with no real transaction; tests that need to observe or
// fail the transactional path assign WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// --- Payment gateway mock ---

type MockPaymentGateway struct {
	SignatureOK bool
	WebhookOK   bool

	CreateOrderErr  error
	CreatedOrders   []*adapter.GatewayOrder
	nextOrderSuffix int
	mu              sync.Mutex
}

func (g *MockPaymentGateway) Name() string  { return "mock" }
func (g *MockPaymentGateway) KeyID() string { return "rzp_test_key" }

func (g *MockPaymentGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.GatewayOrder, error) {
	if g.CreateOrderErr != nil {
		return nil, g.CreateOrderErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextOrderSuffix++
	gw := &adapter.GatewayOrder{
		ID:       "order_mock_" + string(rune('A'+g.nextOrderSuffix-1)),
		Amount:   amountMinor,
		Currency: currency,
	}
	g.CreatedOrders = append(g.CreatedOrders, gw)
	return gw, nil
}

func (g *MockPaymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.SignatureOK
}

func (g *MockPaymentGateway) VerifyWebhook(body []byte, signature string) bool {
	return g.WebhookOK
}

// --- Mailer mock ---

type MockMailer struct {
	mu      sync.Mutex
	Sent    []string // download URLs
	SendErr error
}

func (m *MockMailer) SendDownloadLink(ctx context.Context, toEmail, toName, downloadURL string) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, downloadURL)
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// --- File store mock ---

type MockFileStore struct {
	mu    sync.Mutex
	Files map[string][]byte
}

func NewMockFileStore(names ...string) *MockFileStore {
	fs := &MockFileStore{Files: make(map[string][]byte)}
	for _, n := range names {
		fs.Files[n] = []byte("%PDF-1.4 mock content")
	}
	return fs
}

func (f *MockFileStore) Stat(name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Files[name]
	if !ok {
		return 0, domain.ErrFileMissing
	}
	return int64(len(b)), nil
}

func (f *MockFileStore) Open(name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.Files[name]
	if !ok {
		return nil, domain.ErrFileMissing
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
