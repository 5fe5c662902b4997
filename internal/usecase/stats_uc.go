package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pdf-store-backend/internal/domain/model"
	"pdf-store-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase backs the admin dashboard: order counts by status, recent
// orders, and revenue over the usual windows.
type StatsUseCase interface {
	Totals(ctx context.Context) (byStatus map[model.OrderStatus]int, err error)
	Revenue(ctx context.Context) (week int64, month int64, year int64, err error)
	RecentOrders(ctx context.Context, offset, limit int) ([]*model.Order, error)
}

type statsUC struct {
	orders repository.OrderRepository
	log    *zerolog.Logger
	now    func() time.Time
}

func NewStatsUseCase(orders repository.OrderRepository, logger *zerolog.Logger) *statsUC {
	l := logger.With().Str("component", "StatsUC").Logger()
	return &statsUC{orders: orders, log: &l, now: time.Now}
}

func (s *statsUC) Totals(ctx context.Context) (map[model.OrderStatus]int, error) {
	return s.orders.CountByStatus(ctx, repository.NoTX)
}

func (s *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	now := s.now()
	w, err := s.orders.SumRevenue(ctx, repository.NoTX, now.AddDate(0, 0, -7))
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := s.orders.SumRevenue(ctx, repository.NoTX, now.AddDate(0, -1, 0))
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := s.orders.SumRevenue(ctx, repository.NoTX, now.AddDate(-1, 0, 0))
	if err != nil {
		return 0, 0, 0, err
	}
	return w, m, y, nil
}

func (s *statsUC) RecentOrders(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.ListRecent(ctx, repository.NoTX, offset, limit)
}
