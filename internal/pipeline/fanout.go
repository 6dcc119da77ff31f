package pipeline

// fanout.go: reparto de un snapshot entre estrategias.
//
// Cada estrategia corre en su goroutine con su propio timeout. Un error o un
// panic de una estrategia solo descarta sus signals. El resultado se ordena
// después, así que el orden de llegada no influye en qué orden gana un mercado.

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyalpha/internal/domain"
	"github.com/alejandrodnm/polyalpha/internal/strategy"
)

// candidate es un signal válido junto a la estrategia y el snapshot que lo generaron.
type candidate struct {
	strategy strategy.Strategy
	signal   domain.Signal
	market   domain.Market
}

// collect ejecuta Scan + Analyze de todas las estrategias habilitadas.
// Devuelve error solo si ctx terminó: en ese caso no hay que ejecutar nada.
func (t *Trader) collect(ctx context.Context, markets []domain.Market) ([]candidate, error) {
	strategies := t.registry.Enabled()
	if len(strategies) == 0 {
		return nil, ctx.Err()
	}

	tradable := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if m.Tradable() && !m.Resolved() {
			tradable = append(tradable, m)
		}
	}

	perStrategy := make([][]candidate, len(strategies))

	var g errgroup.Group
	g.SetLimit(len(strategies))
	for i, s := range strategies {
		g.Go(func() error {
			perStrategy[i] = t.runStrategy(ctx, s, tradable)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []candidate
	for _, cs := range perStrategy {
		out = append(out, cs...)
	}
	return out, nil
}

// runStrategy corre una estrategia aislada: timeout propio y recover.
func (t *Trader) runStrategy(ctx context.Context, s strategy.Strategy, markets []domain.Market) (out []candidate) {
	sctx, cancel := t.strategyContext(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy panic", "strategy", s.ID(), "panic", fmt.Sprint(r))
			out = nil
		}
	}()

	opps := s.Scan(markets)
	for _, opp := range opps {
		if err := sctx.Err(); err != nil {
			slog.Warn("strategy timed out", "strategy", s.ID(), "analyzed", len(out), "candidates", len(opps), "err", err)
			return out
		}

		sig, err := s.Analyze(sctx, opp)
		if err != nil {
			slog.Debug("analyze failed", "strategy", s.ID(), "market", opp.MarketID(), "err", err)
			continue
		}
		if sig == nil {
			continue
		}

		signal := *sig
		if signal.StrategyID == "" {
			signal.StrategyID = s.ID()
		}
		if err := signal.Validate(); err != nil {
			slog.Warn("invalid signal discarded", "strategy", s.ID(), "market", signal.MarketID, "err", err)
			continue
		}
		out = append(out, candidate{strategy: s, signal: signal, market: opp.Market})
	}
	return out
}

func (t *Trader) strategyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		return context.WithTimeout(ctx, t.timeout)
	}
	return context.WithCancel(ctx)
}

// sortCandidates fija el orden de paso por el gate:
// tier (S primero), edge desc, ID de estrategia, mercado y token.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.strategy.Tier() != b.strategy.Tier() {
			return a.strategy.Tier() < b.strategy.Tier()
		}
		if ea, eb := a.signal.Edge(), b.signal.Edge(); ea != eb {
			return ea > eb
		}
		if a.signal.StrategyID != b.signal.StrategyID {
			return a.signal.StrategyID < b.signal.StrategyID
		}
		if a.signal.MarketID != b.signal.MarketID {
			return a.signal.MarketID < b.signal.MarketID
		}
		return a.signal.TokenID < b.signal.TokenID
	})
}
