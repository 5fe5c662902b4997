package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain/ports/repository"
	"pdf-store-backend/internal/infra/metrics"
)

// ExpiryWorker periodically sweeps completed orders whose download
// window has lapsed. Downloads already expire lazily at access time;
// the sweep keeps the table honest for reporting.
type ExpiryWorker struct {
	interval time.Duration
	orders   repository.OrderRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewExpiryWorker(interval time.Duration, orders repository.OrderRepository, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		interval: interval,
		orders:   orders,
		log:      &exprLog,
		now:      time.Now,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.orders.ExpireOverdue(ctx, repository.NoTX, w.now())
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		metrics.AddOrdersExpired(n)
		w.log.Info().Int64("count", n).Msg("overdue orders expired")
	}
}
