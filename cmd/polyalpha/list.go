package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/polyalpha/internal/adapters/notify"
	"github.com/alejandrodnm/polyalpha/internal/adapters/storage"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

type describer interface {
	Description() string
}

func runList(ctx context.Context, reg *strategy.Registry, store *storage.SQLiteStorage, runs int) error {
	console := notify.NewConsole()

	rows := make([]notify.StrategyRow, 0, reg.Len())
	for _, s := range reg.All() {
		row := notify.StrategyRow{ID: s.ID(), Tier: s.Tier(), Enabled: reg.IsEnabled(s.ID())}
		if d, ok := s.(describer); ok {
			row.Description = d.Description()
		}
		rows = append(rows, row)
	}
	console.PrintStrategies(rows)

	stored, err := store.Backtests(ctx, runs)
	if err != nil {
		return fmt.Errorf("list backtests: %w", err)
	}
	console.PrintBacktestRuns(stored)
	return nil
}
