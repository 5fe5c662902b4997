package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/domain/ports/repository"
	"pdf-store-backend/internal/infra/logging"
)

// Compile-time check
var _ DownloadUseCase = (*downloadUC)(nil)

// Locker serializes download attempts per token. Satisfied by the Redis
// locker; nil disables the outer lock (the SQL check-and-set still
// guarantees single consumption).
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// DownloadGrant is a one-time authorization to stream a file. Content
// must be closed by the caller.
type DownloadGrant struct {
	Order    *model.Order
	FileName string // attachment filename presented to the client
	Size     int64
	Content  io.ReadCloser
}

type DownloadUseCase interface {
	// Authorize runs the download gate: it consumes the token and hands
	// back the file exactly once per order. Fail closed on every step.
	Authorize(ctx context.Context, token string) (*DownloadGrant, error)

	// Peek reports link validity without consuming the token.
	Peek(ctx context.Context, token string) (bool, string, error)
}

const downloadLockTTL = 10 * time.Second

type downloadUC struct {
	orders  repository.OrderRepository
	catalog *model.Catalog
	files   adapter.FileStore
	locks   Locker
	log     *zerolog.Logger
	now     func() time.Time
}

func NewDownloadUseCase(orders repository.OrderRepository, catalog *model.Catalog, files adapter.FileStore, locks Locker, logger *zerolog.Logger) *downloadUC {
	l := logger.With().Str("component", "DownloadUC").Logger()
	return &downloadUC{orders: orders, catalog: catalog, files: files, locks: locks, log: &l, now: time.Now}
}

func (u *downloadUC) Authorize(ctx context.Context, token string) (*DownloadGrant, error) {
	if token == "" {
		return nil, domain.ErrInvalidArgument
	}

	if u.locks != nil {
		lockToken, err := u.locks.TryLock(ctx, "download:"+token, downloadLockTTL)
		if err != nil {
			return nil, domain.ErrLockBusy
		}
		defer func() { _ = u.locks.Unlock(ctx, "download:"+token, lockToken) }()
	}

	o, err := u.orders.FindByToken(ctx, repository.NoTX, token)
	if err != nil {
		return nil, err
	}

	if o.Status != model.OrderStatusCompleted {
		u.log.Warn().Str("order_id", o.ID).Str("status", string(o.Status)).Msg("download attempt on unpaid order")
		return nil, domain.ErrPaymentRequired
	}

	now := u.now()
	if !o.IsTokenValid(now) {
		u.expireLazily(ctx, o)
		return nil, domain.ErrLinkExpired
	}

	pkg, ok := u.catalog.Package(o.PackageType)
	if !ok || pkg.SecureFileName == "" {
		// A completed order with no catalog mapping means the package
		// identifier was tampered with somewhere.
		u.log.Error().Str("order_id", o.ID).Str("package", o.PackageType).Msg("no file mapping for package")
		return nil, domain.ErrInvalidPackage
	}

	// File presence is confirmed before the token is consumed: a missing
	// file must not burn the customer's one download.
	size, err := u.files.Stat(pkg.SecureFileName)
	if err != nil {
		u.log.Error().Err(err).Str("file", pkg.SecureFileName).Msg("package file unavailable")
		return nil, domain.ErrFileMissing
	}

	consumed, err := u.orders.ConsumeToken(ctx, repository.NoTX, token, now)
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if !consumed {
		// Lost the race to a concurrent request, or the state changed
		// under us. Either way this attempt is stale.
		u.expireLazily(ctx, o)
		return nil, domain.ErrTokenConsumed
	}
	o.TokenUsed = true
	o.TokenUsedAt = &now

	rc, err := u.files.Open(pkg.SecureFileName)
	if err != nil {
		// Token already consumed; operator intervention territory.
		u.log.Error().Err(err).Str("order_id", o.ID).Str("file", pkg.SecureFileName).Msg("file open failed after token consumption")
		return nil, domain.ErrFileMissing
	}

	u.log.Info().
		Str("order_id", o.ID).
		Str("package", o.PackageType).
		Str("phone", logging.Redact(o.CustomerPhone, false)).
		Msg("download authorized")

	return &DownloadGrant{
		Order:    o,
		FileName: fmt.Sprintf("package_%s_%d_emails.pdf", o.PackageType, pkg.EmailCount),
		Size:     size,
		Content:  rc,
	}, nil
}

func (u *downloadUC) Peek(ctx context.Context, token string) (bool, string, error) {
	if token == "" {
		return false, "Token missing", nil
	}
	o, err := u.orders.FindByToken(ctx, repository.NoTX, token)
	if err != nil {
		if err == domain.ErrNotFound {
			return false, "Invalid download link", nil
		}
		return false, "Error verifying token", err
	}
	if !o.IsTokenValid(u.now()) {
		return false, "Download link has expired or already used", nil
	}
	return true, "Download link is valid", nil
}

// expireLazily flips a completed order to expired on a stale access
// attempt. Best-effort; the guarded UPDATE keeps terminal states final.
func (u *downloadUC) expireLazily(ctx context.Context, o *model.Order) {
	if o.Status != model.OrderStatusCompleted {
		return
	}
	if _, err := u.orders.MarkExpired(ctx, repository.NoTX, o.ID); err != nil {
		u.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to expire order")
		return
	}
	if err := o.Transition(model.OrderStatusExpired); err != nil {
		u.log.Error().Err(err).Str("order_id", o.ID).Msg("in-memory expiry transition refused")
	}
}
