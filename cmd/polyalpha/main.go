package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/polyalpha/config"
	"github.com/alejandrodnm/polyalpha/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyalpha/internal/adapters/storage"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one pipeline cycle and exit")
	paperMode := flag.Bool("paper", false, "force paper execution (overrides config)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	list := flag.Bool("list", false, "list strategies and stored backtest runs, then exit")
	runs := flag.Int("runs", 10, "backtest runs to show with -list")
	backtestMode := flag.Bool("backtest", false, "replay historical data instead of trading")
	fetchHistory := flag.Bool("fetch-history", false, "with -backtest: build the series from resolved markets first")
	historyMarkets := flag.Int("markets", 0, "with -fetch-history: resolved markets to download (overrides config)")
	only := flag.String("strategy", "", "comma-separated strategy IDs to run (default: all enabled)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *paperMode {
		cfg.Execution.Mode = config.ModePaper
	}
	if *historyMarkets > 0 {
		cfg.Backtest.HistoryMarkets = *historyMarkets
	}
	setupLogger(cfg.Log)

	slog.Info("polyalpha starting",
		"config", *configPath,
		"mode", cfg.Execution.Mode,
		"interval", cfg.ScanInterval(),
		"once", *once,
		"backtest", *backtestMode,
	)

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	reg, err := strategy.NewCatalog(cfg.StrategySettings(), cfg.Sizer(), strategy.Deps{
		Books:     client,
		Estimator: strategy.EstimateTable(cfg.ModelEstimates),
	})
	if err != nil {
		slog.Error("failed to build strategy catalog", "err", err)
		os.Exit(1)
	}
	if err := selectStrategies(reg, *only); err != nil {
		slog.Error("invalid -strategy", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *list:
		err = runList(ctx, reg, store, *runs)
	case *backtestMode:
		err = runBacktest(ctx, cfg, reg, client, store, *fetchHistory)
	default:
		err = runPipeline(ctx, cfg, reg, client, store, *once)
	}
	if err != nil {
		slog.Error("polyalpha exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("polyalpha stopped cleanly")
}

// selectStrategies deja habilitadas solo las estrategias de ids (lista separada por comas).
func selectStrategies(reg *strategy.Registry, ids string) error {
	if strings.TrimSpace(ids) == "" {
		return nil
	}
	keep := map[string]bool{}
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if _, ok := reg.Get(id); !ok {
			return fmt.Errorf("unknown or unavailable strategy %q", id)
		}
		keep[id] = true
	}
	for _, s := range reg.All() {
		var err error
		if keep[s.ID()] {
			err = reg.Enable(s.ID())
		} else {
			err = reg.Disable(s.ID())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
