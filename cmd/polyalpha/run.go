package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyalpha/config"
	"github.com/alejandrodnm/polyalpha/internal/adapters/notify"
	"github.com/alejandrodnm/polyalpha/internal/adapters/paper"
	"github.com/alejandrodnm/polyalpha/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyalpha/internal/adapters/storage"
	"github.com/alejandrodnm/polyalpha/internal/pipeline"
	"github.com/alejandrodnm/polyalpha/internal/ports"
	"github.com/alejandrodnm/polyalpha/internal/risk"
	"github.com/alejandrodnm/polyalpha/internal/scanner"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

const liveAbortWindow = 5 * time.Second

func runPipeline(ctx context.Context, cfg *config.Config, reg *strategy.Registry, client *polymarket.Client, store *storage.SQLiteStorage, once bool) error {
	exec, err := newExecutor(ctx, cfg, client)
	if err != nil {
		return err
	}
	if exec == nil {
		slog.Info("live trading aborted by user")
		return nil
	}

	bankroll := cfg.Bankroll
	if tc, ok := exec.(*polymarket.TradingClient); ok {
		if bankroll, err = liveBankroll(ctx, tc, bankroll); err != nil {
			return err
		}
	}

	console := notify.NewConsole()
	notifier := newNotifier(cfg, console)
	defer notifier.Close()

	trader, err := pipeline.NewTrader(pipeline.TraderConfig{
		Registry:        reg,
		Gate:            risk.NewGate(cfg.Limits(), time.Now()),
		Executor:        exec,
		Portfolio:       pipeline.NewPortfolio(bankroll),
		Notifier:        notifier,
		Journal:         store,
		StrategyTimeout: cfg.StrategyTimeout(),
	})
	if err != nil {
		return err
	}

	engine := pipeline.NewEngine(
		pipeline.Config{Interval: cfg.ScanInterval(), Once: once},
		scanner.New(client, client, strategy.ScanFilter(reg, cfg.Filter())),
		trader,
		pipeline.EngineDeps{
			Lookup:   client,
			Notifier: notifier,
			Journal:  store,
			Reporter: console,
		},
	)

	err = engine.Run(ctx)
	console.PrintPositions(trader.Portfolio().Positions())
	if d := notifier.Dropped(); d > 0 {
		slog.Warn("notifications dropped", "count", d)
	}
	return err
}

// newExecutor devuelve nil, nil si el usuario aborta el arranque en modo live.
func newExecutor(ctx context.Context, cfg *config.Config, client *polymarket.Client) (ports.OrderExecutor, error) {
	if cfg.Execution.Mode != config.ModeLive {
		slog.Info("=== PAPER TRADING MODE ===", "bankroll", cfg.Bankroll, "fee_rate", cfg.Execution.FeeRate)
		return paper.NewExecutor(cfg.Execution.FeeRate), nil
	}

	tc, err := polymarket.NewTradingClient(client, cfg.Execution.OrderEndpoint, polymarket.Credentials{
		PrivateKey: cfg.Execution.PrivateKey,
		APIKey:     cfg.Execution.APIKey,
		Secret:     cfg.Execution.Secret,
		Passphrase: cfg.Execution.Passphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("live executor: %w", err)
	}

	slog.Warn("=== LIVE TRADING MODE (REAL MONEY) ===",
		"wallet", tc.Address(),
		"bankroll", cfg.Bankroll,
		"max_position_pct", cfg.Risk.MaxPositionPct,
		"max_open_positions", cfg.Risk.MaxOpenPositions,
	)
	fmt.Printf("\nLIVE TRADING MODE: real orders will be sent to %s\n", cfg.Execution.OrderEndpoint)
	fmt.Printf("   Press Ctrl+C within %s to abort...\n\n", liveAbortWindow)

	abort := time.NewTimer(liveAbortWindow)
	defer abort.Stop()
	select {
	case <-abort.C:
		return tc, nil
	case <-ctx.Done():
		return nil, nil
	}
}

// liveBankroll limita el bankroll configurado al colateral disponible en el CLOB.
func liveBankroll(ctx context.Context, tc *polymarket.TradingClient, configured float64) (float64, error) {
	bal, err := tc.GetBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("live bankroll: %w", err)
	}
	if bal <= 0 {
		return 0, fmt.Errorf("live bankroll: wallet %s has no USDC collateral", tc.Address())
	}
	if bal < configured {
		slog.Warn("bankroll capped at wallet balance", "configured", configured, "balance", bal)
		return bal, nil
	}
	return configured, nil
}

// newNotifier monta la consola y los sinks remotos configurados detrás de un Async.
func newNotifier(cfg *config.Config, console *notify.Console) *notify.Async {
	sinks := []ports.Notifier{console}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.WebhookTimeout()))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		tg, err := notify.NewTelegram(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	return notify.NewAsync(cfg.Notify.Buffer, sinks...)
}
