package repository

import (
	"context"
	"time"

	"pdf-store-backend/internal/domain/model"
)

// OrderRepository persists order records. The conditional-update methods
// (UpdateStatusIfPending, ConsumeToken, MarkExpired) are check-and-set
// in a single statement; they return false when the guard did not hold,
// which callers treat as "lost the race", not as an error.
type OrderRepository interface {
	Create(ctx context.Context, tx Tx, o *model.Order) error
	FindByProviderOrderID(ctx context.Context, tx Tx, providerOrderID string) (*model.Order, error)
	FindByToken(ctx context.Context, tx Tx, token string) (*model.Order, error)

	// UpdateStatusIfPending moves a pending order to the given terminal
	// status, recording payment id/signature when provided.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.OrderStatus, paymentID, signature *string) (bool, error)

	// ConsumeToken atomically flips token_used for a token that is still
	// unused, completed, and unexpired at `now`. Exactly one concurrent
	// caller can win.
	ConsumeToken(ctx context.Context, tx Tx, token string, now time.Time) (bool, error)

	// MarkExpired transitions a completed order to expired.
	MarkExpired(ctx context.Context, tx Tx, id string) (bool, error)

	MarkEmailSent(ctx context.Context, tx Tx, id string, at time.Time) error

	// ExpireOverdue bulk-expires completed orders past their expiry.
	// Used by the background reaper; returns the number of rows touched.
	ExpireOverdue(ctx context.Context, tx Tx, now time.Time) (int64, error)

	// Admin queries
	ListRecent(ctx context.Context, tx Tx, offset, limit int) ([]*model.Order, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.OrderStatus]int, error)
	SumRevenue(ctx context.Context, tx Tx, since time.Time) (int64, error)
}
