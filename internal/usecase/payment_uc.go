package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain"
	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/adapter"
	"pdf-store-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Verify checks the client-side checkout signature and finalizes the
	// order. Idempotent: re-verifying a completed order with the same
	// payment id returns the existing token without re-running checks.
	Verify(ctx context.Context, providerOrderID, paymentID, signature string) (*model.Order, error)

	// HandleWebhook processes a signed server-to-server gateway event.
	// The payload signature is validated over the raw body before the
	// contents are trusted.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type paymentUC struct {
	orders   repository.OrderRepository
	txm      repository.TransactionManager
	gateway  adapter.PaymentGateway
	notifier NotificationUseCase
	log      *zerolog.Logger
}

func NewPaymentUseCase(orders repository.OrderRepository, txm repository.TransactionManager, gateway adapter.PaymentGateway, notifier NotificationUseCase, logger *zerolog.Logger) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{orders: orders, txm: txm, gateway: gateway, notifier: notifier, log: &l}
}

// inTx runs fn inside a transaction when a manager is configured, and on
// the plain pool otherwise. The guarded UPDATEs stay correct either way;
// the transaction just keeps the read and the update consistent.
func (u *paymentUC) inTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if u.txm == nil {
		return fn(ctx, repository.NoTX)
	}
	return u.txm.WithTx(ctx, pgx.TxOptions{}, fn)
}

func (u *paymentUC) Verify(ctx context.Context, providerOrderID, paymentID, signature string) (*model.Order, error) {
	if u.gateway == nil {
		return nil, domain.ErrGatewayUnavailable
	}
	if providerOrderID == "" || paymentID == "" || signature == "" {
		return nil, domain.ErrInvalidArgument
	}

	o, err := u.orders.FindByProviderOrderID(ctx, repository.NoTX, providerOrderID)
	if err != nil {
		return nil, err
	}

	// Duplicate confirmation delivery: already verified with the same
	// payment id is a no-op that returns the existing token.
	if o.Status == model.OrderStatusCompleted && o.PaymentID != nil && *o.PaymentID == paymentID {
		u.log.Info().Str("provider_order_id", providerOrderID).Msg("payment already verified")
		return o, nil
	}

	if !u.gateway.VerifySignature(providerOrderID, paymentID, signature) {
		u.log.Warn().Str("provider_order_id", providerOrderID).Msg("invalid payment signature")
		// Security tracking: a pending order with a forged confirmation
		// is marked failed. Payment fields stay untouched. This write
		// must land even though the request fails, so it stays outside
		// any transaction that the error would roll back.
		if _, err := u.orders.UpdateStatusIfPending(ctx, repository.NoTX, o.ID, model.OrderStatusFailed, nil, nil); err != nil {
			u.log.Error().Err(err).Str("order_id", o.ID).Msg("failed to mark order failed")
		}
		return nil, domain.ErrSignatureMismatch
	}

	err = u.inTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		moved, err := u.orders.UpdateStatusIfPending(ctx, tx, o.ID, model.OrderStatusCompleted, &paymentID, &signature)
		if err != nil {
			return fmt.Errorf("finalize order: %w", err)
		}
		if moved {
			o.PaymentID = &paymentID
			o.PaymentSignature = &signature
			if err := o.Transition(model.OrderStatusCompleted); err != nil {
				return err
			}
			u.log.Info().Str("provider_order_id", providerOrderID).Msg("payment verified")
			return nil
		}
		if o.Status != model.OrderStatusCompleted {
			// The order raced out of pending into a terminal state.
			return domain.ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Email dispatch is best-effort; a failure never reverts the state
	// transition or the success response.
	if !o.EmailSent && u.notifier != nil {
		if err := u.notifier.SendDownloadLink(ctx, o); err != nil {
			u.log.Error().Err(err).Str("order_id", o.ID).Msg("download link email failed")
		}
	}

	return o, nil
}

// webhookEvent mirrors the slice of the gateway payload we act on.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (u *paymentUC) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if u.gateway == nil {
		return domain.ErrGatewayUnavailable
	}
	if !u.gateway.VerifyWebhook(body, signature) {
		u.log.Warn().Msg("invalid webhook signature")
		return domain.ErrSignatureMismatch
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	if ev.Event != "payment.captured" && ev.Event != "payment.authorized" {
		u.log.Debug().Str("event", ev.Event).Msg("ignoring webhook event")
		return nil
	}

	paymentID := ev.Payload.Payment.Entity.ID
	o, err := u.orders.FindByProviderOrderID(ctx, repository.NoTX, ev.Payload.Payment.Entity.OrderID)
	if err != nil {
		// Unknown orders are acked; the gateway retries otherwise.
		u.log.Warn().Str("provider_order_id", ev.Payload.Payment.Entity.OrderID).Msg("webhook for unknown order")
		return nil
	}

	moved, err := u.orders.UpdateStatusIfPending(ctx, repository.NoTX, o.ID, model.OrderStatusCompleted, &paymentID, nil)
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}
	if moved {
		o.PaymentID = &paymentID
		if err := o.Transition(model.OrderStatusCompleted); err != nil {
			return err
		}
		u.log.Info().Str("order_id", o.ID).Str("event", ev.Event).Msg("order completed via webhook")
	}

	if (moved || o.Status == model.OrderStatusCompleted) && !o.EmailSent && u.notifier != nil {
		if err := u.notifier.SendDownloadLink(ctx, o); err != nil {
			u.log.Error().Err(err).Str("order_id", o.ID).Msg("download link email failed")
		}
	}
	return nil
}
