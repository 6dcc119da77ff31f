package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/polyalpha/config"
	"github.com/alejandrodnm/polyalpha/internal/adapters/notify"
	"github.com/alejandrodnm/polyalpha/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyalpha/internal/adapters/storage"
	"github.com/alejandrodnm/polyalpha/internal/backtest"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

func runBacktest(ctx context.Context, cfg *config.Config, reg *strategy.Registry, client *polymarket.Client, store *storage.SQLiteStorage, fetch bool) error {
	slog.Info("=== BACKTEST MODE: replay historical snapshots ===",
		"data", cfg.Backtest.DataPath,
		"fetch_history", fetch,
		"initial_balance", cfg.Backtest.InitialBalance,
	)

	strategies := reg.Enabled()
	if len(strategies) == 0 {
		return errors.New("no strategies enabled for backtest")
	}

	var (
		points []backtest.Point
		err    error
	)
	if fetch {
		points, err = fetchSeries(ctx, cfg, client, store)
	} else {
		points, err = backtest.Load(cfg.Backtest.DataPath)
	}
	if err != nil {
		return err
	}

	engine, err := backtest.New(cfg.BacktestConfig(), strategies...)
	if err != nil {
		return err
	}
	rep, err := engine.Run(ctx, points)
	if err != nil {
		return fmt.Errorf("backtest %s: %w", engine.State(), err)
	}

	notify.NewConsole().PrintBacktest(notify.BacktestReportInput{
		Summary: rep.Summary(),
		Trades:  rep.Closed,
	})

	if err := store.SaveBacktest(context.WithoutCancel(ctx), rep.Summary()); err != nil {
		slog.Warn("journal error", "op", "save_backtest", "err", err)
	}

	slog.Info("backtest complete",
		"run_id", rep.RunID,
		"points", rep.Points,
		"trades", rep.Trades(),
		"final_balance", rep.FinalBalance,
	)
	return nil
}

// fetchSeries descarga mercados resueltos, construye la serie y la guarda en DataPath.
func fetchSeries(ctx context.Context, cfg *config.Config, client *polymarket.Client, store *storage.SQLiteStorage) ([]backtest.Point, error) {
	slog.Info("fetching resolved markets for backtest...", "markets", cfg.Backtest.HistoryMarkets)

	points, err := backtest.NewBuilder(client, client, store).Build(ctx, cfg.Backtest.HistoryMarkets)
	if err != nil {
		return nil, err
	}

	path := cfg.Backtest.DataPath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := backtest.WriteCSV(f, points); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("backtest series saved", "path", path, "points", len(points))
	return points, nil
}
