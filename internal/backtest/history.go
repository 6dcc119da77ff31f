package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/polyalpha/internal/domain"
)

// DefaultHorizons son los instantes antes del cierre en que se toma un snapshot.
var DefaultHorizons = []time.Duration{
	120 * time.Minute,
	60 * time.Minute,
	30 * time.Minute,
	15 * time.Minute,
	5 * time.Minute,
}

const defaultBuildWorkers = 4

// ClosedMarketSource devuelve mercados ya resueltos.
type ClosedMarketSource interface {
	FetchClosedMarkets(ctx context.Context, limit int) ([]domain.Market, error)
}

// PriceHistorySource devuelve la serie de precios de un token.
type PriceHistorySource interface {
	FetchPriceHistory(ctx context.Context, tokenID string, fidelity int) ([]domain.PricePoint, error)
}

// PriceCache guarda series ya descargadas.
type PriceCache interface {
	Prices(ctx context.Context, tokenID string) ([]domain.PricePoint, error)
	SavePrices(ctx context.Context, tokenID string, history []domain.PricePoint) error
}

// Builder construye series de backtest a partir de mercados resueltos:
// un snapshot por horizonte antes del cierre más el punto de resolución.
type Builder struct {
	markets ClosedMarketSource
	prices  PriceHistorySource
	cache   PriceCache

	Horizons []time.Duration
	Fidelity int // resolución del histórico en minutos
	Workers  int
}

// NewBuilder crea un Builder. cache puede ser nil.
func NewBuilder(markets ClosedMarketSource, prices PriceHistorySource, cache PriceCache) *Builder {
	return &Builder{
		markets:  markets,
		prices:   prices,
		cache:    cache,
		Horizons: DefaultHorizons,
		Fidelity: 1,
		Workers:  defaultBuildWorkers,
	}
}

// Build descarga hasta limit mercados resueltos y devuelve su serie ordenada.
// Un mercado sin histórico se omite; solo falla si no hay lista de mercados.
func (b *Builder) Build(ctx context.Context, limit int) ([]Point, error) {
	markets, err := b.markets.FetchClosedMarkets(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("backtest.Build: %w: %w", domain.ErrDataUnavailable, err)
	}

	perMarket := make([][]Point, len(markets))

	var g errgroup.Group
	g.SetLimit(max(b.Workers, 1))
	for i, m := range markets {
		g.Go(func() error {
			history, err := b.history(ctx, m.YesToken().TokenID)
			if err != nil {
				slog.Warn("price history unavailable", "market", m.ConditionID, "err", err)
				return nil
			}
			perMarket[i] = b.pointsFor(m, history)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("backtest.Build: %w", err)
	}

	var points []Point
	for _, ps := range perMarket {
		points = append(points, ps...)
	}
	SortPoints(points)

	slog.Info("backtest series built", "markets", len(markets), "points", len(points))
	return points, nil
}

// history lee la serie de la cache o la descarga y la guarda.
func (b *Builder) history(ctx context.Context, tokenID string) ([]domain.PricePoint, error) {
	if b.cache != nil {
		cached, err := b.cache.Prices(ctx, tokenID)
		if err != nil {
			slog.Warn("price cache read failed", "token", tokenID, "err", err)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	history, err := b.prices.FetchPriceHistory(ctx, tokenID, b.Fidelity)
	if err != nil {
		return nil, err
	}
	if b.cache != nil && len(history) > 0 {
		if err := b.cache.SavePrices(ctx, tokenID, history); err != nil {
			slog.Warn("price cache write failed", "token", tokenID, "err", err)
		}
	}
	return history, nil
}

// pointsFor genera los snapshots de un mercado resuelto.
func (b *Builder) pointsFor(m domain.Market, history []domain.PricePoint) []Point {
	if len(history) == 0 || m.EndDate.IsZero() || !m.Resolved() {
		return nil
	}

	var out []Point
	for _, h := range b.Horizons {
		at := m.EndDate.Add(-h)
		yes, ok := domain.PriceAt(history, at)
		if !ok {
			continue
		}
		snap := binaryMarket(m.ConditionID, m.Question, m.Category, yes, 1-yes)
		snap.EndDate = m.EndDate
		snap.Volume = m.Volume
		snap.Liquidity = m.Liquidity
		out = append(out, Point{Timestamp: at, Market: snap, Price: yes})
	}
	if len(out) == 0 {
		return nil
	}

	final := binaryMarket(m.ConditionID, m.Question, m.Category, 0, 0)
	final.EndDate = m.EndDate
	final.Volume = m.Volume
	final.Liquidity = m.Liquidity
	resolve(&final, m.YesToken().Winner)
	out = append(out, Point{Timestamp: m.EndDate, Market: final, Price: final.YesToken().Price})
	return out
}
