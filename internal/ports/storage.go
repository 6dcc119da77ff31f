package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// Journal persiste el historial de órdenes, trades cerrados, ciclos y backtests.
type Journal interface {
	SaveOrder(ctx context.Context, order domain.Order, signal domain.Signal) error
	SaveClosedTrade(ctx context.Context, trade domain.ClosedTrade) error
	SaveCycle(ctx context.Context, summary domain.CycleSummary) error
	SaveBacktest(ctx context.Context, summary domain.BacktestSummary) error

	// Orders devuelve las órdenes creadas desde since, más recientes primero.
	Orders(ctx context.Context, since time.Time) ([]domain.Order, error)
	// Backtests devuelve las últimas limit corridas de backtest.
	Backtests(ctx context.Context, limit int) ([]domain.BacktestSummary, error)
}
