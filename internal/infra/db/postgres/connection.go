package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// NewPgxPool returns a live connection pool or an error.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the orders table and its unique indexes when they
// do not exist yet. Idempotent; safe to run at every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	// One statement per Exec: pgx's extended protocol does not accept
	// multi-statement strings.
	stmts := []string{`
CREATE TABLE IF NOT EXISTS orders (
    id                 TEXT PRIMARY KEY,
    provider_order_id  TEXT NOT NULL,
    payment_id         TEXT,
    payment_signature  TEXT,
    customer_name      TEXT NOT NULL DEFAULT '',
    customer_email     TEXT NOT NULL DEFAULT '',
    customer_phone     TEXT NOT NULL,
    college_name       TEXT NOT NULL,
    package_type       TEXT NOT NULL,
    pdf_count          INT  NOT NULL,
    currency           TEXT NOT NULL DEFAULT 'INR',
    base_price         BIGINT NOT NULL,
    coupon_code        TEXT,
    coupon_discount    BIGINT NOT NULL DEFAULT 0,
    final_price        BIGINT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending',
    download_token     TEXT NOT NULL,
    token_used         BOOLEAN NOT NULL DEFAULT FALSE,
    token_used_at      TIMESTAMPTZ,
    expires_at         TIMESTAMPTZ NOT NULL,
    email_sent         BOOLEAN NOT NULL DEFAULT FALSE,
    email_sent_at      TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_provider_order_id_key ON orders (provider_order_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS orders_download_token_key ON orders (download_token)`,
		`CREATE INDEX IF NOT EXISTS orders_expires_at_idx ON orders (expires_at) WHERE status = 'completed'`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
