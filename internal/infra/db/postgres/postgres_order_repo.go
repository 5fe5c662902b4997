package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*PostgresOrderRepo)(nil)

const orderColumns = `id, provider_order_id, payment_id, payment_signature,
customer_name, customer_email, customer_phone, college_name,
package_type, pdf_count, currency, base_price, coupon_code, coupon_discount, final_price,
status, download_token, token_used, token_used_at, expires_at,
email_sent, email_sent_at, created_at, updated_at`

const saveOrderSQL = `
INSERT INTO orders (id, provider_order_id, payment_id, payment_signature,
    customer_name, customer_email, customer_phone, college_name,
    package_type, pdf_count, currency, base_price, coupon_code, coupon_discount, final_price,
    status, download_token, token_used, token_used_at, expires_at,
    email_sent, email_sent_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NOW(),NOW())`

const findOrderByProviderIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE provider_order_id = $1`

const findOrderByTokenSQL = `SELECT ` + orderColumns + ` FROM orders WHERE download_token = $1`

// Guarded single-statement updates. The WHERE clauses are the transition
// table in SQL form; RowsAffected() tells the caller whether the guard held.
const updateStatusIfPendingSQL = `
UPDATE orders
SET status = $2,
    payment_id = COALESCE($3, payment_id),
    payment_signature = COALESCE($4, payment_signature),
    updated_at = NOW()
WHERE id = $1 AND status = 'pending'`

const consumeTokenSQL = `
UPDATE orders
SET token_used = TRUE, token_used_at = $2, updated_at = NOW()
WHERE download_token = $1
  AND token_used = FALSE
  AND status = 'completed'
  AND expires_at >= $2`

const markExpiredSQL = `
UPDATE orders
SET status = 'expired', updated_at = NOW()
WHERE id = $1 AND status = 'completed'`

const markEmailSentSQL = `
UPDATE orders
SET email_sent = TRUE, email_sent_at = $2, updated_at = NOW()
WHERE id = $1`

const expireOverdueSQL = `
UPDATE orders
SET status = 'expired', updated_at = NOW()
WHERE status = 'completed' AND expires_at < $1`

const listRecentOrdersSQL = `
SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC OFFSET $1 LIMIT $2`

const countByStatusSQL = `SELECT status, COUNT(*) FROM orders GROUP BY status`

const sumRevenueSQL = `
SELECT COALESCE(SUM(final_price), 0) FROM orders
WHERE status IN ('completed', 'expired') AND created_at >= $1`

// PostgresOrderRepo is the pgx-backed OrderRepository.
type PostgresOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{pool: pool}
}

func (r *PostgresOrderRepo) Create(ctx context.Context, tx repository.Tx, o *model.Order) error {
	_, err := execSQL(ctx, r.pool, tx, saveOrderSQL,
		o.ID, o.ProviderOrderID, o.PaymentID, o.PaymentSignature,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.CollegeName,
		o.PackageType, o.PDFCount, o.Currency, o.BasePrice, o.CouponCode, o.CouponDiscount, o.FinalPrice,
		string(o.Status), o.DownloadToken, o.TokenUsed, o.TokenUsedAt, o.ExpiresAt,
		o.EmailSent, o.EmailSentAt,
	)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresOrderRepo) FindByProviderOrderID(ctx context.Context, tx repository.Tx, providerOrderID string) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, findOrderByProviderIDSQL, providerOrderID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *PostgresOrderRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, findOrderByTokenSQL, token)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *PostgresOrderRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, paymentID, signature *string) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx, updateStatusIfPendingSQL, id, string(status), paymentID, signature)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *PostgresOrderRepo) ConsumeToken(ctx context.Context, tx repository.Tx, token string, now time.Time) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx, consumeTokenSQL, token, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *PostgresOrderRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx, markExpiredSQL, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *PostgresOrderRepo) MarkEmailSent(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	_, err := execSQL(ctx, r.pool, tx, markEmailSentSQL, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *PostgresOrderRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	ct, err := execSQL(ctx, r.pool, tx, expireOverdueSQL, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PostgresOrderRepo) ListRecent(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	rows, err := queryRows(ctx, r.pool, tx, listRecentOrdersSQL, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresOrderRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.OrderStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, countByStatusSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.OrderStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *PostgresOrderRepo) SumRevenue(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, sumRevenueSQL, since)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return total, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	err := row.Scan(
		&o.ID, &o.ProviderOrderID, &o.PaymentID, &o.PaymentSignature,
		&o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.CollegeName,
		&o.PackageType, &o.PDFCount, &o.Currency, &o.BasePrice, &o.CouponCode, &o.CouponDiscount, &o.FinalPrice,
		&status, &o.DownloadToken, &o.TokenUsed, &o.TokenUsedAt, &o.ExpiresAt,
		&o.EmailSent, &o.EmailSentAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.Status = model.OrderStatus(status)
	if !o.Status.Valid() {
		return nil, domain.ErrReadDatabaseRow
	}
	return &o, nil
}
