package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/ports"
	"github.com/alejandrodnm/polyalpha/internal/scanner"
)

// DefaultInterval es la frecuencia de polling si no se configura otra.
const DefaultInterval = 60 * time.Second

// Config contiene la configuración del loop.
type Config struct {
	Interval time.Duration
	Once     bool // un solo ciclo y salir
}

// Reporter recibe el resumen de cada ciclo para presentarlo.
type Reporter interface {
	PrintCycle(summary domain.CycleSummary, open []domain.Position, cash float64)
}

// CycleResult es el resultado de RunCycle.
type CycleResult struct {
	Summary domain.CycleSummary
	Step    StepResult
}

// Engine es el loop de polling: scan → anotar precios → Trader.Step.
type Engine struct {
	cfg      Config
	scanner  *scanner.Scanner
	memory   *scanner.PriceMemory
	lookup   ports.MarketLookup
	trader   *Trader
	notifier ports.Notifier
	journal  ports.Journal
	reporter Reporter
	now      func() time.Time
}

// EngineDeps agrupa las dependencias opcionales del Engine.
type EngineDeps struct {
	Lookup   ports.MarketLookup // resuelve mercados con posición que ya no salen en el scan
	Notifier ports.Notifier
	Journal  ports.Journal
	Reporter Reporter
}

// NewEngine crea el loop con el scanner y el trader dados.
func NewEngine(cfg Config, sc *scanner.Scanner, trader *Trader, deps EngineDeps) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	n := deps.Notifier
	if n == nil {
		n = nopNotifier{}
	}
	return &Engine{
		cfg:      cfg,
		scanner:  sc,
		memory:   scanner.NewPriceMemory(),
		lookup:   deps.Lookup,
		trader:   trader,
		notifier: n,
		journal:  deps.Journal,
		reporter: deps.Reporter,
		now:      time.Now,
	}
}

// Run ejecuta ciclos hasta que el contexto se cancele.
// Un ciclo fallido se registra y se reintenta en el siguiente tick.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("pipeline starting",
		"interval", e.cfg.Interval,
		"once", e.cfg.Once,
		"strategies", len(e.trader.registry.Enabled()),
	)

	if _, err := e.RunCycle(ctx); err != nil {
		slog.Error("cycle failed", "err", err)
		if e.cfg.Once {
			return err
		}
	}
	if e.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped")
			return nil
		case <-ticker.C:
			if _, err := e.RunCycle(ctx); err != nil {
				slog.Error("cycle failed", "err", err)
			}
		}
	}
}

// RunCycle ejecuta un ciclo completo y persiste su resumen.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	start := e.now().UTC()
	res := CycleResult{Summary: domain.CycleSummary{StartedAt: start}}

	step, err := e.cycle(ctx, start)
	res.Step = step
	res.Summary.Duration = e.now().Sub(start)
	res.Summary.Markets = step.Markets
	res.Summary.Signals = step.Signals
	res.Summary.Orders = len(step.Orders)
	res.Summary.Accepted = len(step.Orders)
	res.Summary.Rejected = len(step.Rejections)

	if err != nil {
		res.Summary.Err = err.Error()
		if !errors.Is(err, context.Canceled) {
			e.notifier.Notify(ctx, domain.Event{
				Kind:    domain.EventCycleFailed,
				Message: err.Error(),
				At:      start,
			})
		}
	}

	if e.journal != nil {
		if jerr := e.journal.SaveCycle(context.WithoutCancel(ctx), res.Summary); jerr != nil {
			slog.Warn("journal error", "op", "save_cycle", "err", jerr)
		}
	}
	if e.reporter != nil {
		e.reporter.PrintCycle(res.Summary, e.trader.portfolio.Positions(), e.trader.portfolio.Cash())
	}

	slog.Info("cycle complete",
		"markets", res.Summary.Markets,
		"signals", res.Summary.Signals,
		"orders", res.Summary.Orders,
		"rejected", res.Summary.Rejected,
		"duration", res.Summary.Duration.Round(time.Millisecond),
	)
	return res, err
}

func (e *Engine) cycle(ctx context.Context, now time.Time) (StepResult, error) {
	markets, err := e.scanner.Scan(ctx)
	if err != nil {
		return StepResult{}, fmt.Errorf("pipeline.cycle: %w", err)
	}
	markets = e.memory.Annotate(markets)
	markets = append(markets, e.missingPositions(ctx, markets)...)

	return e.trader.Step(ctx, markets, now)
}

// missingPositions busca los mercados con posición abierta que el scan no
// devolvió (normalmente porque ya cerraron) para poder liquidarlos.
func (e *Engine) missingPositions(ctx context.Context, markets []domain.Market) []domain.Market {
	if e.lookup == nil {
		return nil
	}
	seen := make(map[string]bool, len(markets))
	for _, m := range markets {
		seen[m.ConditionID] = true
	}
	var ids []string
	for _, p := range e.trader.portfolio.Positions() {
		if !seen[p.MarketID] {
			ids = append(ids, p.MarketID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	found, err := e.lookup.FetchMarketsByID(ctx, ids)
	if err != nil {
		slog.Warn("position lookup failed", "markets", len(ids), "err", err)
		return nil
	}
	return found
}
