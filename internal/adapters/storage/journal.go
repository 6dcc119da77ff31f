package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// SaveOrder persiste una orden aceptada junto a la señal que la originó.
// Reinsertar el mismo ID actualiza estado e ID del exchange.
func (s *SQLiteStorage) SaveOrder(ctx context.Context, o domain.Order, sig domain.Signal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(id, exchange_id, market_id, token_id, side, price, size, fee,
			 strategy_id, status, estimated_prob, edge, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			exchange_id = excluded.exchange_id,
			status      = excluded.status`,
		o.ID, o.ExchangeID, o.MarketID, o.TokenID, string(o.Side),
		o.Price, o.Size, o.Fee, o.StrategyID, string(o.Status),
		sig.EstimatedProb, sig.Edge(), sig.Confidence, formatTime(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder %s: %w", o.ID, err)
	}
	return nil
}

// SaveClosedTrade persiste una posición cerrada.
func (s *SQLiteStorage) SaveClosedTrade(ctx context.Context, t domain.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO closed_trades
			(order_id, market_id, token_id, strategy_id, side, entry_price,
			 exit_price, size, realized_pnl, reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OrderID, t.MarketID, t.TokenID, t.StrategyID, string(t.Side), t.EntryPrice,
		t.ExitPrice, t.Size, t.RealizedPnL, t.Reason, formatTime(t.OpenedAt), formatTime(t.ClosedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveClosedTrade %s: %w", t.MarketID, err)
	}
	return nil
}

// SaveCycle persiste el resumen de un ciclo.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, c domain.CycleSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (started_at, duration_ms, markets, signals, accepted, rejected, orders, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(c.StartedAt), c.Duration.Milliseconds(), c.Markets, c.Signals,
		c.Accepted, c.Rejected, c.Orders, c.Err,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: %w", err)
	}
	return nil
}

// SaveBacktest persiste las métricas de una corrida. Reescribe si el RunID ya existe.
func (s *SQLiteStorage) SaveBacktest(ctx context.Context, b domain.BacktestSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
			(run_id, strategy_id, from_ts, to_ts, points, initial_balance, final_balance,
			 trades, win_rate, annualized_return, sharpe, max_drawdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.RunID, b.StrategyID, formatTime(b.From), formatTime(b.To), b.Points,
		b.InitialBalance, b.FinalBalance, b.Trades, b.WinRate, b.AnnualizedReturn,
		b.Sharpe, b.MaxDrawdown, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveBacktest %s: %w", b.RunID, err)
	}
	return nil
}

// Orders devuelve las órdenes creadas desde since, más recientes primero.
func (s *SQLiteStorage) Orders(ctx context.Context, since time.Time) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exchange_id, market_id, token_id, side, price, size, fee,
		       strategy_id, status, created_at
		FROM orders
		WHERE created_at >= ?
		ORDER BY created_at DESC, id`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("storage.Orders: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, status, created string
		if err := rows.Scan(&o.ID, &o.ExchangeID, &o.MarketID, &o.TokenID, &side,
			&o.Price, &o.Size, &o.Fee, &o.StrategyID, &status, &created); err != nil {
			return nil, fmt.Errorf("storage.Orders: scan row: %w", err)
		}
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		o.CreatedAt = parseTime(created)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Backtests devuelve las últimas limit corridas de backtest. limit <= 0 → todas.
func (s *SQLiteStorage) Backtests(ctx context.Context, limit int) ([]domain.BacktestSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, strategy_id, from_ts, to_ts, points, initial_balance, final_balance,
		       trades, win_rate, annualized_return, sharpe, max_drawdown
		FROM backtest_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.Backtests: query: %w", err)
	}
	defer rows.Close()

	var out []domain.BacktestSummary
	for rows.Next() {
		var b domain.BacktestSummary
		var from, to string
		if err := rows.Scan(&b.RunID, &b.StrategyID, &from, &to, &b.Points,
			&b.InitialBalance, &b.FinalBalance, &b.Trades, &b.WinRate,
			&b.AnnualizedReturn, &b.Sharpe, &b.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("storage.Backtests: scan row: %w", err)
		}
		b.From = parseTime(from)
		b.To = parseTime(to)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ClosedTradeStats devuelve el número de trades cerrados y su P&L total desde since.
func (s *SQLiteStorage) ClosedTradeStats(ctx context.Context, since time.Time) (count int, pnl float64, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(realized_pnl), 0)
		FROM closed_trades
		WHERE closed_at >= ?`, formatTime(since))
	if err := row.Scan(&count, &pnl); err != nil {
		return 0, 0, fmt.Errorf("storage.ClosedTradeStats: %w", err)
	}
	return count, pnl, nil
}
