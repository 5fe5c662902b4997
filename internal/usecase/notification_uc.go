package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// SendDownloadLink emails the one-time download URL and records the
	// dispatch on the order. Callers treat any error as non-fatal.
	SendDownloadLink(ctx context.Context, o *model.Order) error
}

type notificationUC struct {
	orders      repository.OrderRepository
	mailer      adapter.Mailer
	frontendURL string
	log         *zerolog.Logger
	now         func() time.Time
}

func NewNotificationUseCase(orders repository.OrderRepository, mailer adapter.Mailer, frontendURL string, logger *zerolog.Logger) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{orders: orders, mailer: mailer, frontendURL: frontendURL, log: &l, now: time.Now}
}

func (u *notificationUC) SendDownloadLink(ctx context.Context, o *model.Order) error {
	if u.mailer == nil {
		u.log.Warn().Str("order_id", o.ID).Msg("mailer not configured; skipping download link email")
		return nil
	}

	downloadURL := fmt.Sprintf("%s/download?token=%s", u.frontendURL, o.DownloadToken)
	if err := u.mailer.SendDownloadLink(ctx, o.CustomerEmail, o.CustomerName, downloadURL); err != nil {
		return fmt.Errorf("send download email: %w", err)
	}

	now := u.now()
	if err := u.orders.MarkEmailSent(ctx, repository.NoTX, o.ID, now); err != nil {
		// The mail went out; a bookkeeping failure is logged, not surfaced.
		u.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to record email dispatch")
	} else {
		o.EmailSent = true
		o.EmailSentAt = &now
	}

	u.log.Info().Str("order_id", o.ID).Msg("download link email sent")
	return nil
}
